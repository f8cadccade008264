package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"planforge/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uint) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
	Rename(ctx context.Context, id uint, name string) error
	SetStatus(ctx context.Context, id uint, status string) error
	Touch(ctx context.Context, id uint) error
	// DeleteCascade removes the sessions plus all owned messages, documents,
	// generation records and workspace links in one transaction, and
	// reassigns the active-session pointer when it referenced a deleted
	// session. Returns the new active session id (nil when none remain).
	DeleteCascade(ctx context.Context, ids []uint) (*uint, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	res := r.db.WithContext(ctx).Take(&session, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	res := r.db.WithContext(ctx).Order("updated_at desc").Find(&sessions)
	if res.Error != nil {
		return nil, res.Error
	}
	return sessions, nil
}

func (r *sessionRepository) Rename(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).
		Update("name", name).Error
}

func (r *sessionRepository) SetStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).
		Update("status", status).Error
}

// Touch bumps updated_at so recency ordering follows conversation activity,
// not just renames.
func (r *sessionRepository) Touch(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *sessionRepository) DeleteCascade(ctx context.Context, ids []uint) (*uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var newActive *uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id IN ?", ids).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&models.GeneratedDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&models.GenerationRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&models.WorkspaceLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Session{}).Error; err != nil {
			return err
		}

		var settings models.AppSettings
		if err := tx.First(&settings, 1).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if settings.ActiveSessionID == nil || !containsID(ids, *settings.ActiveSessionID) {
			return nil
		}

		// The active session is gone: promote the most recently created
		// survivor, or clear the pointer. Same transaction, so the pointer
		// can never dangle.
		var replacement models.Session
		res := tx.Order("created_at desc").Take(&replacement)
		if res.Error != nil {
			if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return res.Error
			}
			settings.ActiveSessionID = nil
		} else {
			settings.ActiveSessionID = &replacement.ID
			newActive = &replacement.ID
		}
		return tx.Save(&settings).Error
	})
	if err != nil {
		return nil, err
	}
	return newActive, nil
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
