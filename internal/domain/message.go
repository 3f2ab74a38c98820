package domain

import "time"

// Message is a persisted chat message.
type Message struct {
	ID         uint      `json:"id"`
	ChatroomID uint      `json:"chatroomId"`
	Username   string    `json:"username"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateMessageRequest is the REST body for POST /api/v1/messages.
type CreateMessageRequest struct {
	ChatroomID uint   `json:"chatroomId" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// UpdateMessageRequest only allows the text to change.
type UpdateMessageRequest struct {
	Message *string `json:"message"`
}

// ListMessagesRequest filters the message list.
type ListMessagesRequest struct {
	ChatroomID *uint `form:"chatroomId"`
}
