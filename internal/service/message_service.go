package service

import (
	"context"
	"errors"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/repository"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageService is the message store behind both the gateway and the REST API.
type MessageService struct {
	repo repository.MessageRepository
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// AppendMessage persists a chat message sent over the gateway.
func (s *MessageService) AppendMessage(ctx context.Context, roomID uint, sender, text string) (*domain.Message, error) {
	msg := &domain.Message{
		ChatroomID: roomID,
		Username:   sender,
		Message:    text,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) CreateMessage(ctx context.Context, req *domain.CreateMessageRequest) (*domain.Message, error) {
	return s.AppendMessage(ctx, req.ChatroomID, req.Username, req.Message)
}

// ListMessages returns all messages, or those of one room when chatroomID is set.
func (s *MessageService) ListMessages(ctx context.Context, chatroomID *uint) ([]domain.Message, error) {
	if chatroomID != nil {
		return s.repo.ListByChatroom(ctx, *chatroomID)
	}
	return s.repo.List(ctx)
}

func (s *MessageService) GetMessage(ctx context.Context, id uint) (*domain.Message, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapMessageErr(err)
	}
	return msg, nil
}

// UpdateMessage replaces the text when req.Message is set.
func (s *MessageService) UpdateMessage(ctx context.Context, id uint, req *domain.UpdateMessageRequest) (*domain.Message, error) {
	if req.Message == nil {
		return s.GetMessage(ctx, id)
	}
	msg, err := s.repo.UpdateText(ctx, id, *req.Message)
	if err != nil {
		return nil, mapMessageErr(err)
	}
	return msg, nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, id uint) (bool, error) {
	return s.repo.Delete(ctx, id)
}

func mapMessageErr(err error) error {
	if errors.Is(err, repository.ErrMessageNotFound) {
		return ErrMessageNotFound
	}
	return err
}
