package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message represents a direct message between two users
type Message struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SenderID     string    `gorm:"type:varchar(36);not null;index:idx_messages_pair,priority:1" json:"senderId"`
	Sender       *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReceiverID   string    `gorm:"type:varchar(36);not null;index:idx_messages_pair,priority:2;index" json:"receiverId"`
	Receiver     *User     `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	RelatedJobID *string   `gorm:"type:varchar(36);index" json:"relatedJobId,omitempty"` // nullable, job the message is about
	CreatedAt    time.Time `gorm:"index:idx_messages_pair,priority:3" json:"createdAt"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Counterpart returns the id of the other participant as seen by selfID
func (m *Message) Counterpart(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}
