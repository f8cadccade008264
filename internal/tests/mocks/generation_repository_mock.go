package mocks

import (
	"context"

	"planforge/internal/models"
)

type GenerationRepositoryMock struct {
	CreateRunFunc       func(ctx context.Context, record *models.GenerationRecord, documents []models.GeneratedDocument) error
	LatestBySessionFunc func(ctx context.Context, sessionID uint) (*models.GenerationRecord, error)
	ListBySessionFunc   func(ctx context.Context, sessionID uint) ([]models.GenerationRecord, error)
}

func (m *GenerationRepositoryMock) CreateRun(ctx context.Context, record *models.GenerationRecord, documents []models.GeneratedDocument) error {
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(ctx, record, documents)
	}
	return nil
}

func (m *GenerationRepositoryMock) LatestBySession(ctx context.Context, sessionID uint) (*models.GenerationRecord, error) {
	if m.LatestBySessionFunc != nil {
		return m.LatestBySessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *GenerationRepositoryMock) ListBySession(ctx context.Context, sessionID uint) ([]models.GenerationRecord, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	return []models.GenerationRecord{}, nil
}
