package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"planforge/internal/models"
)

type GenerationRepository interface {
	// CreateRun persists the record and the full document set in a single
	// transaction: either the run becomes authoritative with all its
	// documents, or nothing changes.
	CreateRun(ctx context.Context, record *models.GenerationRecord, documents []models.GeneratedDocument) error
	LatestBySession(ctx context.Context, sessionID uint) (*models.GenerationRecord, error)
	ListBySession(ctx context.Context, sessionID uint) ([]models.GenerationRecord, error)
}

type generationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{db: db}
}

func (r *generationRepository) CreateRun(ctx context.Context, record *models.GenerationRecord, documents []models.GeneratedDocument) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range documents {
			documents[i].RunID = record.RunID
			if err := tx.Create(&documents[i]).Error; err != nil {
				return err
			}
		}
		// The record goes in last: a crash before this point leaves the old
		// record authoritative and the half-written documents orphaned but
		// invisible to reads.
		return tx.Create(record).Error
	})
}

func (r *generationRepository) LatestBySession(ctx context.Context, sessionID uint) (*models.GenerationRecord, error) {
	var record models.GenerationRecord
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("id desc").Take(&record)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &record, nil
}

func (r *generationRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("id desc").Find(&records)
	if res.Error != nil {
		return nil, res.Error
	}
	return records, nil
}
