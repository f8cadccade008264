package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"planforge/internal/repositories"
)

// DbServices aggregates all domain services backed by the database.
type DbServices struct {
	Sessions    SessionService
	Streams     *StreamService
	Forge       ForgeService
	Exports     ExportService
	Workspaces  WorkspaceService
	Templates   TemplateService
	AppSettings AppSettingsService
	Models      ModelConfigService
	Keyring     *KeyringService
	Git         *GitService
}

// NewDbServices constructs the service container using repositories backed
// by db, and cross-binds the stream/forge mutual-exclusion guards.
func NewDbServices(db *gorm.DB) *DbServices {
	sessionRepo := repositories.NewSessionRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	generationRepo := repositories.NewGenerationRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	settingsRepo := repositories.NewAppSettingsRepository(db)
	modelSettingRepo := repositories.NewModelSettingRepository(db)
	linkRepo := repositories.NewWorkspaceLinkRepository(db)

	git := NewGitService()
	keyring := NewKeyringService()
	modelConfig := NewModelConfigService(modelSettingRepo)
	sessions := NewSessionService(sessionRepo, messageRepo, templateRepo, settingsRepo)
	streams := NewStreamService(sessions, modelConfig, keyring, settingsRepo)
	forge := NewForgeService(sessionRepo, messageRepo, documentRepo, generationRepo)

	streams.BindForgeGuard(forge.IsForging)
	forge.BindStreamGuard(streams.IsStreaming)

	return &DbServices{
		Sessions:    sessions,
		Streams:     streams,
		Forge:       forge,
		Exports:     NewExportService(sessionRepo, messageRepo, documentRepo, generationRepo, linkRepo, git),
		Workspaces:  NewWorkspaceService(sessionRepo, linkRepo, git),
		Templates:   NewTemplateService(templateRepo),
		AppSettings: NewAppSettingsService(settingsRepo, modelConfig),
		Models:      modelConfig,
		Keyring:     keyring,
		Git:         git,
	}
}

// StartDbServices hands the runtime context to every service. The model
// catalog also seeds its settings rows here.
func (s *DbServices) StartDbServices(ctx context.Context) error {
	s.Sessions.Startup(ctx)
	s.Streams.Startup(ctx)
	s.Forge.Startup(ctx)
	s.Exports.Startup(ctx)
	s.Workspaces.Startup(ctx)
	s.Templates.Startup(ctx)
	s.AppSettings.Startup(ctx)
	s.Git.Startup(ctx)
	if err := s.Models.Startup(ctx); err != nil {
		return fmt.Errorf("start model catalog: %w", err)
	}
	return nil
}
