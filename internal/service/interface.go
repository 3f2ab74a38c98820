package service

import (
	"context"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
)

// Conn is one live client connection as the gateway sees it.
type Conn interface {
	ID() string
	Session() *domain.Session
	SendMessage(message interface{}) error
}

// Broadcaster delivers an event to every connected client.
type Broadcaster interface {
	BroadcastAll(message interface{}) error
}

// RoomRegistry is the durable room store the gateway reads and writes.
type RoomRegistry interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	// ListRoomsFresh bypasses any list cache.
	ListRoomsFresh(ctx context.Context) ([]domain.Room, error)
	CountRooms(ctx context.Context) (int64, error)
	GetRoom(ctx context.Context, id uint) (*domain.Room, error)
	CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	AppendMessage(ctx context.Context, roomID uint, sender, text string) (*domain.Message, error)
}

// Relay forwards broadcast events to other gateway instances.
type Relay interface {
	Publish(ctx context.Context, roomID uint, event *domain.OutboundEvent) error
}
