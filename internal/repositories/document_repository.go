package repositories

import (
	"context"

	"gorm.io/gorm"

	"planforge/internal/models"
)

type DocumentRepository interface {
	// CurrentSet returns the documents belonging to the given run, keyed by
	// filename. The run id comes from the authoritative GenerationRecord, so
	// reads reconcile documents against metadata rather than trusting
	// whatever row happens to carry the highest version.
	CurrentSet(ctx context.Context, sessionID uint, runID string) (map[string]models.GeneratedDocument, error)
	ListBySession(ctx context.Context, sessionID uint) ([]models.GeneratedDocument, error)
	History(ctx context.Context, sessionID uint, filename string) ([]models.GeneratedDocument, error)
	NextVersions(ctx context.Context, sessionID uint) (map[string]int, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) CurrentSet(ctx context.Context, sessionID uint, runID string) (map[string]models.GeneratedDocument, error) {
	var docs []models.GeneratedDocument
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND run_id = ?", sessionID, runID).
		Order("filename asc").Find(&docs)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[string]models.GeneratedDocument, len(docs))
	for _, doc := range docs {
		out[doc.Filename] = doc
	}
	return out, nil
}

func (r *documentRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.GeneratedDocument, error) {
	var docs []models.GeneratedDocument
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("filename asc, version asc").Find(&docs)
	if res.Error != nil {
		return nil, res.Error
	}
	return docs, nil
}

func (r *documentRepository) History(ctx context.Context, sessionID uint, filename string) ([]models.GeneratedDocument, error) {
	var docs []models.GeneratedDocument
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND filename = ?", sessionID, filename).
		Order("version asc").Find(&docs)
	if res.Error != nil {
		return nil, res.Error
	}
	return docs, nil
}

// NextVersions returns, per filename, the version the next run should write:
// max(version)+1, or 1 for filenames never generated.
func (r *documentRepository) NextVersions(ctx context.Context, sessionID uint) (map[string]int, error) {
	type row struct {
		Filename string
		Max      int
	}
	var rows []row
	res := r.db.WithContext(ctx).Model(&models.GeneratedDocument{}).
		Select("filename, MAX(version) as max").
		Where("session_id = ?", sessionID).
		Group("filename").Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Filename] = r.Max + 1
	}
	return out, nil
}
