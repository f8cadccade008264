package mocks

import (
	"context"

	"planforge/internal/models"
)

type SessionRepositoryMock struct {
	CreateFunc        func(ctx context.Context, session *models.Session) error
	GetByIDFunc       func(ctx context.Context, id uint) (*models.Session, error)
	ListFunc          func(ctx context.Context) ([]models.Session, error)
	RenameFunc        func(ctx context.Context, id uint, name string) error
	SetStatusFunc     func(ctx context.Context, id uint, status string) error
	TouchFunc         func(ctx context.Context, id uint) error
	DeleteCascadeFunc func(ctx context.Context, ids []uint) (*uint, error)
}

func (m *SessionRepositoryMock) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *SessionRepositoryMock) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *SessionRepositoryMock) List(ctx context.Context) ([]models.Session, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []models.Session{}, nil
}

func (m *SessionRepositoryMock) Rename(ctx context.Context, id uint, name string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, id, name)
	}
	return nil
}

func (m *SessionRepositoryMock) SetStatus(ctx context.Context, id uint, status string) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *SessionRepositoryMock) Touch(ctx context.Context, id uint) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id)
	}
	return nil
}

func (m *SessionRepositoryMock) DeleteCascade(ctx context.Context, ids []uint) (*uint, error) {
	if m.DeleteCascadeFunc != nil {
		return m.DeleteCascadeFunc(ctx, ids)
	}
	return nil, nil
}
