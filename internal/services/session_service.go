package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"planforge/internal/apperrors"
	"planforge/internal/models"
	"planforge/internal/repositories"
)

// SessionService owns conversation state and session lifecycle. Messages
// are append-only; branching copies a prefix into a new session and never
// mutates the origin.
type SessionService interface {
	Startup(ctx context.Context)
	CreateSession(name, description string) (*models.Session, error)
	CreateSessionFromTemplate(templateID uint) (*models.Session, error)
	CreateBranchFromMessage(sessionID uint, fromMessageID *uint) (*models.Session, error)
	GetSession(id uint) (*models.Session, error)
	ListSessions() ([]models.Session, error)
	RenameSession(id uint, name string) error
	SetSessionStatus(id uint, status string) error
	DeleteSession(id uint) (*uint, error)
	DeleteSessions(ids []uint) (*uint, error)

	ListMessages(sessionID uint) ([]models.Message, error)
	AppendMessage(message *models.Message) error
	LastUserMessage(sessionID uint) (*models.Message, error)

	ActiveSessionID() (*uint, error)
	SetActiveSession(id uint) error
}

type sessionService struct {
	sessions  repositories.SessionRepository
	messages  repositories.MessageRepository
	templates repositories.TemplateRepository
	settings  repositories.AppSettingsRepository
	ctx       context.Context
}

func NewSessionService(
	sessions repositories.SessionRepository,
	messages repositories.MessageRepository,
	templates repositories.TemplateRepository,
	settings repositories.AppSettingsRepository,
) SessionService {
	return &sessionService{
		sessions:  sessions,
		messages:  messages,
		templates: templates,
		settings:  settings,
	}
}

func (s *sessionService) Startup(ctx context.Context) {
	s.ctx = ctx
}

func (s *sessionService) CreateSession(name, description string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled session"
	}
	session := &models.Session{
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      models.SessionStatusActive,
	}
	if err := s.sessions.Create(s.ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *sessionService) CreateSessionFromTemplate(templateID uint) (*models.Session, error) {
	if templateID == 0 {
		return nil, apperrors.NotFound("template id is required")
	}
	tmpl, err := s.templates.Get(s.ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, apperrors.NotFound("template %d does not exist", templateID)
	}

	var seeds []models.SeedMessage
	if err := json.Unmarshal([]byte(tmpl.SeedMessagesJSON), &seeds); err != nil {
		return nil, fmt.Errorf("parse template %q seed messages: %w", tmpl.Name, err)
	}

	session, err := s.CreateSession(tmpl.Name, tmpl.Description)
	if err != nil {
		return nil, err
	}
	for _, seed := range seeds {
		msg := &models.Message{
			SessionID: session.ID,
			Role:      seed.Role,
			Content:   seed.Content,
		}
		if err := s.messages.Append(s.ctx, msg); err != nil {
			return nil, fmt.Errorf("seed session from template %q: %w", tmpl.Name, err)
		}
	}
	return session, nil
}

func (s *sessionService) CreateBranchFromMessage(sessionID uint, fromMessageID *uint) (*models.Session, error) {
	origin, err := s.requireSession(sessionID)
	if err != nil {
		return nil, err
	}

	var prefix []models.Message
	if fromMessageID != nil {
		fork, err := s.messages.GetByID(s.ctx, *fromMessageID)
		if err != nil {
			return nil, fmt.Errorf("load fork message: %w", err)
		}
		if fork == nil || fork.SessionID != sessionID {
			return nil, apperrors.InvalidState("message %d does not belong to session %d", derefID(fromMessageID), sessionID)
		}
		prefix, err = s.messages.ListPrefix(s.ctx, sessionID, *fromMessageID)
		if err != nil {
			return nil, fmt.Errorf("load branch prefix: %w", err)
		}
	} else {
		prefix, err = s.messages.ListBySession(s.ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load branch history: %w", err)
		}
	}

	branch := &models.Session{
		Name:              origin.Name + " (branch)",
		Description:       origin.Description,
		Status:            models.SessionStatusActive,
		ParentSessionID:   &origin.ID,
		ForkedAtMessageID: fromMessageID,
	}
	if err := s.sessions.Create(s.ctx, branch); err != nil {
		return nil, fmt.Errorf("create branch session: %w", err)
	}

	// The prefix is copied as fresh rows; the origin stays untouched.
	for _, msg := range prefix {
		clone := models.Message{
			SessionID:         branch.ID,
			Role:              msg.Role,
			Content:           msg.Content,
			ModelKey:          msg.ModelKey,
			Provider:          msg.Provider,
			SearchQuery:       msg.SearchQuery,
			SearchResultsJSON: msg.SearchResultsJSON,
			TokenCount:        msg.TokenCount,
		}
		if err := s.messages.Append(s.ctx, &clone); err != nil {
			return nil, fmt.Errorf("copy branch messages: %w", err)
		}
	}
	return branch, nil
}

func (s *sessionService) GetSession(id uint) (*models.Session, error) {
	return s.sessions.GetByID(s.ctx, id)
}

func (s *sessionService) ListSessions() ([]models.Session, error) {
	return s.sessions.List(s.ctx)
}

func (s *sessionService) RenameSession(id uint, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.InvalidState("session name cannot be empty")
	}
	if _, err := s.requireSession(id); err != nil {
		return err
	}
	return s.sessions.Rename(s.ctx, id, name)
}

func (s *sessionService) SetSessionStatus(id uint, status string) error {
	switch status {
	case models.SessionStatusActive, models.SessionStatusCompleted, models.SessionStatusArchived:
	default:
		return apperrors.InvalidState("unknown session status %q", status)
	}
	if _, err := s.requireSession(id); err != nil {
		return err
	}
	return s.sessions.SetStatus(s.ctx, id, status)
}

func (s *sessionService) DeleteSession(id uint) (*uint, error) {
	return s.DeleteSessions([]uint{id})
}

func (s *sessionService) DeleteSessions(ids []uint) (*uint, error) {
	if len(ids) == 0 {
		return nil, apperrors.InvalidState("no sessions given to delete")
	}
	newActive, err := s.sessions.DeleteCascade(s.ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("delete sessions: %w", err)
	}
	return newActive, nil
}

func (s *sessionService) ListMessages(sessionID uint) ([]models.Message, error) {
	if _, err := s.requireSession(sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(s.ctx, sessionID)
}

func (s *sessionService) AppendMessage(message *models.Message) error {
	if message == nil {
		return apperrors.InvalidState("message is required")
	}
	if _, err := s.requireSession(message.SessionID); err != nil {
		return err
	}
	if err := s.messages.Append(s.ctx, message); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	// Recency ordering follows conversation activity.
	return s.sessions.Touch(s.ctx, message.SessionID)
}

func (s *sessionService) LastUserMessage(sessionID uint) (*models.Message, error) {
	return s.messages.LastUserMessage(s.ctx, sessionID)
}

func (s *sessionService) ActiveSessionID() (*uint, error) {
	settings, err := s.settings.Get(s.ctx)
	if err != nil {
		return nil, err
	}
	return settings.ActiveSessionID, nil
}

func (s *sessionService) SetActiveSession(id uint) error {
	if _, err := s.requireSession(id); err != nil {
		return err
	}
	settings, err := s.settings.Get(s.ctx)
	if err != nil {
		return err
	}
	settings.ActiveSessionID = &id
	return s.settings.Update(s.ctx, settings)
}

func (s *sessionService) requireSession(id uint) (*models.Session, error) {
	if id == 0 {
		return nil, apperrors.NotFound("session id is required")
	}
	session, err := s.sessions.GetByID(s.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", id, err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session %d does not exist", id)
	}
	return session, nil
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
