package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WebSocket event types from client.
const (
	EventJoinRoom    = "joinRoom"
	EventCreateRoom  = "createRoom"
	EventSendMessage = "sendMessage"
	EventPing        = "ping"
)

// WebSocket event types to client.
const (
	EventAssignIdentity = "assignIdentity"
	EventRoomsList      = "roomsList"
	EventRoomUpdate     = "roomUpdate"
	EventNewRoom        = "newRoom"
	EventNewMessage     = "newMessage"
	EventError          = "error"
	EventPong           = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeRoomNotFound  = "ROOM_NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// FallbackRoomID is where messages with a missing or unusable room id land.
const FallbackRoomID uint = 1

// Envelope is the frame every event travels in.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is the server-side envelope before encoding.
type OutboundEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// NewEvent wraps data in an envelope of the given type.
func NewEvent(eventType string, data interface{}) *OutboundEvent {
	return &OutboundEvent{Type: eventType, Data: data}
}

// Client -> Server payloads

type JoinRoomData struct {
	RoomID RoomRef `json:"roomId"`
}

type CreateRoomData struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

type SendMessageData struct {
	Text   string  `json:"text"`
	RoomID RoomRef `json:"roomId"`
}

// Server -> Client payloads

type AssignIdentityData struct {
	DisplayName string `json:"displayName"`
}

type RoomUpdateData struct {
	RoomID    uint `json:"roomId"`
	Occupancy int  `json:"occupancy"`
}

type NewMessageData struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RoomID    uint   `json:"roomId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *OutboundEvent {
	return NewEvent(EventError, ErrorData{Code: code, Message: message})
}

// RoomRef is a room id that clients send either as a JSON number or a string.
type RoomRef struct {
	raw string
	set bool
}

// NewRoomRef builds a RoomRef from its textual form.
func NewRoomRef(s string) RoomRef {
	return RoomRef{raw: s, set: true}
}

func (r *RoomRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = RoomRef{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = NewRoomRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("roomId must be a number or string: %w", err)
	}
	*r = NewRoomRef(n.String())
	return nil
}

func (r RoomRef) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return json.Marshal(r.raw)
}

// ID parses the reference strictly: a positive base-10 integer, optionally
// quoted. Used where an unknown room must be rejected.
func (r RoomRef) ID() (uint, bool) {
	if !r.set {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(r.raw), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// IDOrFallback parses the leading digits of the reference ("3", 3, "3abc",
// 3.7 all give 3) and returns FallbackRoomID when nothing positive remains.
func (r RoomRef) IDOrFallback() uint {
	s := strings.TrimSpace(r.raw)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseUint(s[:end], 10, 32)
	if err != nil || n == 0 {
		return FallbackRoomID
	}
	return uint(n)
}
