package mocks

import (
	"context"

	"planforge/internal/models"
)

type DocumentRepositoryMock struct {
	CurrentSetFunc    func(ctx context.Context, sessionID uint, runID string) (map[string]models.GeneratedDocument, error)
	ListBySessionFunc func(ctx context.Context, sessionID uint) ([]models.GeneratedDocument, error)
	HistoryFunc       func(ctx context.Context, sessionID uint, filename string) ([]models.GeneratedDocument, error)
	NextVersionsFunc  func(ctx context.Context, sessionID uint) (map[string]int, error)
}

func (m *DocumentRepositoryMock) CurrentSet(ctx context.Context, sessionID uint, runID string) (map[string]models.GeneratedDocument, error) {
	if m.CurrentSetFunc != nil {
		return m.CurrentSetFunc(ctx, sessionID, runID)
	}
	return map[string]models.GeneratedDocument{}, nil
}

func (m *DocumentRepositoryMock) ListBySession(ctx context.Context, sessionID uint) ([]models.GeneratedDocument, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	return []models.GeneratedDocument{}, nil
}

func (m *DocumentRepositoryMock) History(ctx context.Context, sessionID uint, filename string) ([]models.GeneratedDocument, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, sessionID, filename)
	}
	return []models.GeneratedDocument{}, nil
}

func (m *DocumentRepositoryMock) NextVersions(ctx context.Context, sessionID uint) (map[string]int, error) {
	if m.NextVersionsFunc != nil {
		return m.NextVersionsFunc(ctx, sessionID)
	}
	return map[string]int{}, nil
}
