package cache

import (
	"context"
	"time"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
)

// RoomListResult is the cached form of the room list.
type RoomListResult struct {
	Rooms []domain.Room `json:"rooms"`
}

// RoomCache caches the full room list between writes.
type RoomCache interface {
	GetRooms(ctx context.Context) (*RoomListResult, error)
	SetRooms(ctx context.Context, result *RoomListResult, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Close() error
}
