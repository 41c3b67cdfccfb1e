package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/models"
	"gorm.io/gorm"
)

// SendMessageInput is the body of POST /messages
type SendMessageInput struct {
	ReceiverID   string  `json:"receiverId" binding:"required,uuid"`
	Content      string  `json:"content" binding:"required,max=5000"`
	RelatedJobID *string `json:"relatedJobId" binding:"omitempty,uuid"`
}

// UnmarshalJSON also accepts receiver and relatedJob, the keys used by older
// clients. The *Id keys win when both are present.
func (in *SendMessageInput) UnmarshalJSON(data []byte) error {
	type plain SendMessageInput
	var body struct {
		plain
		Receiver   string  `json:"receiver"`
		RelatedJob *string `json:"relatedJob"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*in = SendMessageInput(body.plain)
	if in.ReceiverID == "" {
		in.ReceiverID = body.Receiver
	}
	if in.RelatedJobID == nil {
		in.RelatedJobID = body.RelatedJob
	}
	return nil
}

// MessageService stores direct messages and builds conversation views
type MessageService struct {
	db *gorm.DB
}

// NewMessageService creates a message service
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Send stores a message from caller to the receiver
func (s *MessageService) Send(ctx context.Context, caller *models.User, input SendMessageInput) (*models.Message, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.ReceiverID == caller.ID {
		return nil, apperrors.Validation("You cannot send a message to yourself")
	}

	var receiver models.User
	if err := s.db.WithContext(ctx).Select("id").First(&receiver, "id = ?", input.ReceiverID).Error; err != nil {
		return nil, notFoundOr(err, "Recipient not found")
	}

	if input.RelatedJobID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", *input.RelatedJobID).Count(&count).Error; err != nil {
			return nil, apperrors.Internal(err)
		}
		if count == 0 {
			return nil, apperrors.NotFound(msgJobNotFound)
		}
	}

	msg := models.Message{
		SenderID:     caller.ID,
		ReceiverID:   input.ReceiverID,
		Content:      input.Content,
		RelatedJobID: input.RelatedJobID,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	err := s.db.WithContext(ctx).
		Preload("Sender", publicProfile(contactColumns)).
		Preload("Receiver", publicProfile(contactColumns)).
		First(&msg, "id = ?", msg.ID).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &msg, nil
}

// UnreadCount is the number of unread messages addressed to userID
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return count, nil
}

// Conversations groups every message involving userID by counterpart
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Preload("Sender", publicProfile(contactColumns)).
		Preload("Receiver", publicProfile(contactColumns)).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return BuildConversations(userID, msgs), nil
}

// OpenConversation marks messages from counterpartID to userID as read and
// returns the whole thread, oldest first
func (s *MessageService) OpenConversation(ctx context.Context, userID, counterpartID string) ([]models.Message, error) {
	var counterpart models.User
	if err := s.db.WithContext(ctx).Select("id").First(&counterpart, "id = ?", counterpartID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	var msgs []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND read = ?", counterpartID, userID, false).
			Update("read", true).Error
		if err != nil {
			return err
		}

		return tx.
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, counterpartID, counterpartID, userID).
			Preload("Sender", publicProfile(contactColumns)).
			Order("created_at ASC").
			Order("id ASC").
			Find(&msgs).Error
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return msgs, nil
}
