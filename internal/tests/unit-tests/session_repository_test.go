package unit_tests

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"planforge/internal/database"
	"planforge/internal/models"
	"planforge/internal/repositories"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(database.Config{
		Path:     filepath.Join(t.TempDir(), "planforge.db"),
		LogLevel: logger.Silent,
	})
	assert.NoError(t, err)
	return db
}

func TestSessionRepository_DeleteCascade_PromotesNewestSurvivor(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sessions := repositories.NewSessionRepository(db)
	messages := repositories.NewMessageRepository(db)
	settings := repositories.NewAppSettingsRepository(db)

	base := time.Now().Add(-time.Hour)
	first := &models.Session{Name: "first", CreatedAt: base}
	second := &models.Session{Name: "second", CreatedAt: base.Add(time.Minute)}
	third := &models.Session{Name: "third", CreatedAt: base.Add(2 * time.Minute)}
	for _, s := range []*models.Session{first, second, third} {
		assert.NoError(t, sessions.Create(ctx, s))
	}
	assert.NoError(t, messages.Append(ctx, &models.Message{
		SessionID: second.ID, Role: models.RoleUser, Content: "hello",
	}))

	current, err := settings.Get(ctx)
	assert.NoError(t, err)
	current.ActiveSessionID = &second.ID
	assert.NoError(t, settings.Update(ctx, current))

	newActive, err := sessions.DeleteCascade(ctx, []uint{second.ID})
	assert.NoError(t, err)
	assert.NotNil(t, newActive)
	assert.Equal(t, third.ID, *newActive)

	gone, err := sessions.GetByID(ctx, second.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)

	orphaned, err := messages.ListBySession(ctx, second.ID)
	assert.NoError(t, err)
	assert.Empty(t, orphaned)

	saved, err := settings.Get(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, saved.ActiveSessionID)
	assert.Equal(t, third.ID, *saved.ActiveSessionID)
}

func TestSessionRepository_DeleteCascade_ClearsPointerWhenNoneRemain(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sessions := repositories.NewSessionRepository(db)
	settings := repositories.NewAppSettingsRepository(db)

	only := &models.Session{Name: "only"}
	assert.NoError(t, sessions.Create(ctx, only))

	current, err := settings.Get(ctx)
	assert.NoError(t, err)
	current.ActiveSessionID = &only.ID
	assert.NoError(t, settings.Update(ctx, current))

	newActive, err := sessions.DeleteCascade(ctx, []uint{only.ID})
	assert.NoError(t, err)
	assert.Nil(t, newActive)

	saved, err := settings.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, saved.ActiveSessionID)
}

func TestSessionRepository_DeleteCascade_LeavesUnrelatedPointerAlone(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sessions := repositories.NewSessionRepository(db)
	settings := repositories.NewAppSettingsRepository(db)

	keep := &models.Session{Name: "keep"}
	drop := &models.Session{Name: "drop"}
	assert.NoError(t, sessions.Create(ctx, keep))
	assert.NoError(t, sessions.Create(ctx, drop))

	current, err := settings.Get(ctx)
	assert.NoError(t, err)
	current.ActiveSessionID = &keep.ID
	assert.NoError(t, settings.Update(ctx, current))

	newActive, err := sessions.DeleteCascade(ctx, []uint{drop.ID})
	assert.NoError(t, err)
	assert.Nil(t, newActive)

	saved, err := settings.Get(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, saved.ActiveSessionID)
	assert.Equal(t, keep.ID, *saved.ActiveSessionID)
}
