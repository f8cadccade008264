package mocks

import (
	"context"

	"planforge/internal/models"
)

type MessageRepositoryMock struct {
	AppendFunc          func(ctx context.Context, message *models.Message) error
	ListBySessionFunc   func(ctx context.Context, sessionID uint) ([]models.Message, error)
	ListPrefixFunc      func(ctx context.Context, sessionID, messageID uint) ([]models.Message, error)
	GetByIDFunc         func(ctx context.Context, id uint) (*models.Message, error)
	LastUserMessageFunc func(ctx context.Context, sessionID uint) (*models.Message, error)
}

func (m *MessageRepositoryMock) Append(ctx context.Context, message *models.Message) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, message)
	}
	return nil
}

func (m *MessageRepositoryMock) ListBySession(ctx context.Context, sessionID uint) ([]models.Message, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	return []models.Message{}, nil
}

func (m *MessageRepositoryMock) ListPrefix(ctx context.Context, sessionID, messageID uint) ([]models.Message, error) {
	if m.ListPrefixFunc != nil {
		return m.ListPrefixFunc(ctx, sessionID, messageID)
	}
	return []models.Message{}, nil
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MessageRepositoryMock) LastUserMessage(ctx context.Context, sessionID uint) (*models.Message, error) {
	if m.LastUserMessageFunc != nil {
		return m.LastUserMessageFunc(ctx, sessionID)
	}
	return nil, nil
}
