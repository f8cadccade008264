package unit_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"planforge/internal/apperrors"
	"planforge/internal/models"
	"planforge/internal/services"
	"planforge/internal/tests/mocks"
)

func newSessionService(
	sessions *mocks.SessionRepositoryMock,
	messages *mocks.MessageRepositoryMock,
	templates *mocks.TemplateRepositoryMock,
	settings *mocks.AppSettingsRepositoryMock,
) services.SessionService {
	if sessions == nil {
		sessions = &mocks.SessionRepositoryMock{}
	}
	if messages == nil {
		messages = &mocks.MessageRepositoryMock{}
	}
	if templates == nil {
		templates = &mocks.TemplateRepositoryMock{}
	}
	if settings == nil {
		settings = &mocks.AppSettingsRepositoryMock{}
	}
	service := services.NewSessionService(sessions, messages, templates, settings)
	service.Startup(context.Background())
	return service
}

func TestSessionService_CreateSession_DefaultsName(t *testing.T) {
	sessions := &mocks.SessionRepositoryMock{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			session.ID = 1
			return nil
		},
	}
	service := newSessionService(sessions, nil, nil, nil)

	session, err := service.CreateSession("   ", "")
	assert.NoError(t, err)
	assert.Equal(t, "Untitled session", session.Name)
	assert.Equal(t, models.SessionStatusActive, session.Status)
}

func TestSessionService_RenameSession_RejectsEmptyName(t *testing.T) {
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id, Name: "Old"}, nil
		},
	}
	service := newSessionService(sessions, nil, nil, nil)

	err := service.RenameSession(1, "  ")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestSessionService_SetSessionStatus_RejectsUnknownStatus(t *testing.T) {
	service := newSessionService(nil, nil, nil, nil)

	err := service.SetSessionStatus(1, "paused")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestSessionService_GetMissingSession_NotFound(t *testing.T) {
	service := newSessionService(nil, nil, nil, nil)

	_, err := service.ListMessages(99)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestSessionService_CreateSessionFromTemplate_SeedsMessages(t *testing.T) {
	templates := &mocks.TemplateRepositoryMock{
		GetFunc: func(ctx context.Context, id uint) (*models.Template, error) {
			return &models.Template{
				ID:               id,
				Name:             "Feature kickoff",
				SeedMessagesJSON: `[{"role":"system","content":"Be thorough."},{"role":"user","content":"Plan a feature."}]`,
			}, nil
		},
	}
	sessions := &mocks.SessionRepositoryMock{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			session.ID = 5
			return nil
		},
	}
	var appended []models.Message
	messages := &mocks.MessageRepositoryMock{
		AppendFunc: func(ctx context.Context, message *models.Message) error {
			appended = append(appended, *message)
			return nil
		},
	}
	service := newSessionService(sessions, messages, templates, nil)

	session, err := service.CreateSessionFromTemplate(3)
	assert.NoError(t, err)
	assert.Equal(t, "Feature kickoff", session.Name)
	assert.Len(t, appended, 2)
	assert.Equal(t, models.RoleSystem, appended[0].Role)
	assert.Equal(t, uint(5), appended[1].SessionID)
}

func TestSessionService_CreateSessionFromTemplate_MissingTemplate(t *testing.T) {
	service := newSessionService(nil, nil, nil, nil)

	_, err := service.CreateSessionFromTemplate(404)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestSessionService_CreateBranchFromMessage_CopiesPrefix(t *testing.T) {
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id, Name: "Original", Description: "desc"}, nil
		},
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			session.ID = 20
			return nil
		},
	}
	var copied []models.Message
	messages := &mocks.MessageRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Message, error) {
			return &models.Message{ID: id, SessionID: 10, Role: models.RoleUser, Content: "fork here"}, nil
		},
		ListPrefixFunc: func(ctx context.Context, sessionID, messageID uint) ([]models.Message, error) {
			return []models.Message{
				{ID: 1, SessionID: 10, Role: models.RoleUser, Content: "first"},
				{ID: 2, SessionID: 10, Role: models.RoleAssistant, Content: "second"},
			}, nil
		},
		AppendFunc: func(ctx context.Context, message *models.Message) error {
			copied = append(copied, *message)
			return nil
		},
	}
	service := newSessionService(sessions, messages, nil, nil)

	forkID := uint(2)
	branch, err := service.CreateBranchFromMessage(10, &forkID)
	assert.NoError(t, err)
	assert.Equal(t, "Original (branch)", branch.Name)
	assert.Equal(t, uint(10), *branch.ParentSessionID)
	assert.Equal(t, forkID, *branch.ForkedAtMessageID)
	assert.Len(t, copied, 2)
	for _, msg := range copied {
		assert.Equal(t, uint(20), msg.SessionID)
	}
}

func TestSessionService_CreateBranchFromMessage_ForeignMessageRejected(t *testing.T) {
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id, Name: "Original"}, nil
		},
	}
	messages := &mocks.MessageRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Message, error) {
			return &models.Message{ID: id, SessionID: 999}, nil
		},
	}
	service := newSessionService(sessions, messages, nil, nil)

	forkID := uint(7)
	_, err := service.CreateBranchFromMessage(10, &forkID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestSessionService_AppendMessage_TouchesSession(t *testing.T) {
	touched := false
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id}, nil
		},
		TouchFunc: func(ctx context.Context, id uint) error {
			touched = true
			return nil
		},
	}
	service := newSessionService(sessions, nil, nil, nil)

	err := service.AppendMessage(&models.Message{SessionID: 1, Role: models.RoleUser, Content: "hi"})
	assert.NoError(t, err)
	assert.True(t, touched)
}

func TestSessionService_DeleteSessions_ReturnsNewActive(t *testing.T) {
	survivor := uint(4)
	sessions := &mocks.SessionRepositoryMock{
		DeleteCascadeFunc: func(ctx context.Context, ids []uint) (*uint, error) {
			assert.Equal(t, []uint{1, 2}, ids)
			return &survivor, nil
		},
	}
	service := newSessionService(sessions, nil, nil, nil)

	newActive, err := service.DeleteSessions([]uint{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, survivor, *newActive)
}

func TestSessionService_DeleteSessions_RejectsEmptyList(t *testing.T) {
	service := newSessionService(nil, nil, nil, nil)

	_, err := service.DeleteSessions(nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestSessionService_SetActiveSession_UpdatesSettings(t *testing.T) {
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id}, nil
		},
	}
	var saved *models.AppSettings
	settings := &mocks.AppSettingsRepositoryMock{
		UpdateFunc: func(ctx context.Context, s *models.AppSettings) error {
			saved = s
			return nil
		},
	}
	service := newSessionService(sessions, nil, nil, settings)

	assert.NoError(t, service.SetActiveSession(6))
	assert.NotNil(t, saved)
	assert.Equal(t, uint(6), *saved.ActiveSessionID)
}
