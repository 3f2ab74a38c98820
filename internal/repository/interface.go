package repository

import (
	"context"
	"errors"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
)

// RoomRepository defines the interface for room persistence.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uint) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id uint, req *domain.UpdateRoomRequest) (*domain.Room, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uint) (*domain.Message, error)
	List(ctx context.Context) ([]domain.Message, error)
	ListByChatroom(ctx context.Context, chatroomID uint) ([]domain.Message, error)
	UpdateText(ctx context.Context, id uint, text string) (*domain.Message, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// Models lists the GORM models to migrate.
func Models() []interface{} {
	return []interface{}{&domain.RoomModel{}, &domain.MessageModel{}}
}
