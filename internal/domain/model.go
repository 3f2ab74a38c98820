package domain

import "time"

// RoomModel is the GORM model for the chatroom table.
type RoomModel struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Description *string `gorm:"type:varchar(255)"`
	Icon        *string `gorm:"type:varchar(32);default:'💬'"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "chatroom"
}

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
	}
}

// RoomToModel converts domain Room to RoomModel.
func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
	}
}

// MessageModel is the GORM model for the message table.
type MessageModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ChatroomID uint      `gorm:"column:chatroomId;index;not null"`
	Username   string    `gorm:"type:varchar(255);not null"`
	Message    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "message"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		ChatroomID: m.ChatroomID,
		Username:   m.Username,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:         msg.ID,
		ChatroomID: msg.ChatroomID,
		Username:   msg.Username,
		Message:    msg.Message,
		CreatedAt:  msg.CreatedAt,
	}
}
