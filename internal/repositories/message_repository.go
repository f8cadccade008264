package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"planforge/internal/models"
)

type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	ListBySession(ctx context.Context, sessionID uint) ([]models.Message, error)
	// ListPrefix returns the session's messages up to and including the given
	// message id, preserving append order.
	ListPrefix(ctx context.Context, sessionID, messageID uint) ([]models.Message, error)
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	LastUserMessage(ctx context.Context, sessionID uint) (*models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.Message, error) {
	var messages []models.Message
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id asc").Find(&messages)
	if res.Error != nil {
		return nil, res.Error
	}
	return messages, nil
}

func (r *messageRepository) ListPrefix(ctx context.Context, sessionID, messageID uint) ([]models.Message, error) {
	var messages []models.Message
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND id <= ?", sessionID, messageID).
		Order("id asc").Find(&messages)
	if res.Error != nil {
		return nil, res.Error
	}
	return messages, nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	res := r.db.WithContext(ctx).Take(&message, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &message, nil
}

func (r *messageRepository) LastUserMessage(ctx context.Context, sessionID uint) (*models.Message, error) {
	var message models.Message
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND role = ?", sessionID, models.RoleUser).
		Order("id desc").Take(&message)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &message, nil
}
