package mocks

import (
	"context"

	"planforge/internal/models"
)

type WorkspaceLinkRepositoryMock struct {
	GetBySessionFunc    func(ctx context.Context, sessionID uint) (*models.WorkspaceLink, error)
	UpsertFunc          func(ctx context.Context, sessionID uint, name, repoPath string) (*models.WorkspaceLink, error)
	DeleteBySessionFunc func(ctx context.Context, sessionID uint) error
}

func (m *WorkspaceLinkRepositoryMock) GetBySession(ctx context.Context, sessionID uint) (*models.WorkspaceLink, error) {
	if m.GetBySessionFunc != nil {
		return m.GetBySessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *WorkspaceLinkRepositoryMock) Upsert(ctx context.Context, sessionID uint, name, repoPath string) (*models.WorkspaceLink, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, sessionID, name, repoPath)
	}
	return &models.WorkspaceLink{SessionID: sessionID, Name: name, RepoPath: repoPath}, nil
}

func (m *WorkspaceLinkRepositoryMock) DeleteBySession(ctx context.Context, sessionID uint) error {
	if m.DeleteBySessionFunc != nil {
		return m.DeleteBySessionFunc(ctx, sessionID)
	}
	return nil
}
