package audit

import (
	"context"
	"time"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

// Audit actions for the chat gateway.
const (
	ActionConnect     = "gateway.connect"
	ActionJoinRoom    = "gateway.join_room"
	ActionCreateRoom  = "gateway.create_room"
	ActionSendMessage = "gateway.send_message"
	ActionDisconnect  = "gateway.disconnect"
	ActionUpdateRoom  = "api.update_room"
	ActionDeleteRoom  = "api.delete_room"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"

	FieldConnectedMs = "connected_ms"
	FieldIdleMs      = "idle_ms"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, displayName string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDisplayName, displayName).
		Msg(msg)
}

// LogRoom emits an audit entry scoped to a room.
func LogRoom(ctx context.Context, action string, displayName string, roomID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDisplayName, displayName).
		Uint(log.FieldRoomID, roomID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, displayName string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDisplayName, displayName).
		Str(FieldDetail, detail).
		Msg(msg)
}

// LogSession emits an audit entry carrying how long a connection lasted and
// how long it had been idle.
func LogSession(ctx context.Context, action string, displayName string, connected, idle time.Duration, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDisplayName, displayName).
		Int64(FieldConnectedMs, connected.Milliseconds()).
		Int64(FieldIdleMs, idle.Milliseconds()).
		Msg(msg)
}
