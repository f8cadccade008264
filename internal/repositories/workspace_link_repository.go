package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planforge/internal/models"
)

type WorkspaceLinkRepository interface {
	GetBySession(ctx context.Context, sessionID uint) (*models.WorkspaceLink, error)
	Upsert(ctx context.Context, sessionID uint, name, repoPath string) (*models.WorkspaceLink, error)
	DeleteBySession(ctx context.Context, sessionID uint) error
}

type workspaceLinkRepository struct {
	db *gorm.DB
}

func NewWorkspaceLinkRepository(db *gorm.DB) WorkspaceLinkRepository {
	return &workspaceLinkRepository{db: db}
}

func (r *workspaceLinkRepository) GetBySession(ctx context.Context, sessionID uint) (*models.WorkspaceLink, error) {
	var link models.WorkspaceLink
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&link)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &link, nil
}

func (r *workspaceLinkRepository) Upsert(ctx context.Context, sessionID uint, name, repoPath string) (*models.WorkspaceLink, error) {
	if sessionID == 0 {
		return nil, fmt.Errorf("session id is required")
	}
	if repoPath == "" {
		return nil, fmt.Errorf("repository path is required")
	}
	link := models.WorkspaceLink{
		SessionID: sessionID,
		Name:      name,
		RepoPath:  repoPath,
	}
	// Upsert on the session's unique index
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "repo_path", "updated_at"}),
	}).Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *workspaceLinkRepository) DeleteBySession(ctx context.Context, sessionID uint) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.WorkspaceLink{}).Error
}
