package unit_tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"

	"planforge/internal/apperrors"
	"planforge/internal/events"
	"planforge/internal/models"
	"planforge/internal/services"
	"planforge/internal/tests/mocks"
)

const localModelKey = "local|llama3.1:8b"

type streamEventLog struct {
	mu     sync.Mutex
	events []events.StreamEvent
	done   chan events.StreamEvent
}

func captureStreamEvents(t *testing.T) *streamEventLog {
	t.Helper()
	log := &streamEventLog{done: make(chan events.StreamEvent, 4)}
	events.SetCustomStreamEmitter(func(ctx context.Context, evt events.StreamEvent) {
		log.mu.Lock()
		log.events = append(log.events, evt)
		log.mu.Unlock()
		if evt.Kind == events.StreamDone || evt.Kind == events.StreamError {
			log.done <- evt
		}
	})
	t.Cleanup(func() { events.SetCustomStreamEmitter(nil) })
	return log
}

func (l *streamEventLog) waitTerminal(t *testing.T) events.StreamEvent {
	t.Helper()
	select {
	case evt := <-l.done:
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal stream event arrived")
		return events.StreamEvent{}
	}
}

func (l *streamEventLog) fragments() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, evt := range l.events {
		if evt.Kind == events.StreamFragment {
			b.WriteString(evt.Content)
		}
	}
	return b.String()
}

type streamFixture struct {
	service  *services.StreamService
	appended *[]models.Message
}

func newStreamFixture(t *testing.T, client *mocks.ChatClientMock) streamFixture {
	t.Helper()

	appended := &[]models.Message{}
	var mu sync.Mutex
	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id, Name: "Planning"}, nil
		},
	}
	messages := &mocks.MessageRepositoryMock{
		AppendFunc: func(ctx context.Context, message *models.Message) error {
			mu.Lock()
			defer mu.Unlock()
			message.ID = uint(len(*appended) + 1)
			*appended = append(*appended, *message)
			return nil
		},
		ListBySessionFunc: func(ctx context.Context, sessionID uint) ([]models.Message, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([]models.Message, len(*appended))
			copy(out, *appended)
			return out, nil
		},
		LastUserMessageFunc: func(ctx context.Context, sessionID uint) (*models.Message, error) {
			mu.Lock()
			defer mu.Unlock()
			for i := len(*appended) - 1; i >= 0; i-- {
				if (*appended)[i].Role == models.RoleUser {
					msg := (*appended)[i]
					return &msg, nil
				}
			}
			return nil, nil
		},
	}
	settingsRepo := &mocks.AppSettingsRepositoryMock{}
	modelConfig := services.NewModelConfigService(&mocks.ModelSettingRepositoryMock{})
	assert.NoError(t, modelConfig.Startup(context.Background()))

	sessionService := services.NewSessionService(sessions, messages, &mocks.TemplateRepositoryMock{}, settingsRepo)
	sessionService.Startup(context.Background())

	stream := services.NewStreamService(sessionService, modelConfig, services.NewKeyringService(), settingsRepo)
	stream.Startup(context.Background())
	stream.SetClientFactory(func(ctx context.Context, model *models.LLMModel, baseURL, apiKey string) (services.ChatClient, error) {
		return client, nil
	})
	return streamFixture{service: stream, appended: appended}
}

func TestStreamService_SendMessage_PersistsTurns(t *testing.T) {
	log := captureStreamEvents(t)
	fx := newStreamFixture(t, &mocks.ChatClientMock{Fragments: []string{"Let's ", "plan ", "it."}})

	err := fx.service.SendMessage(1, "Help me plan a digest service", localModelKey)
	assert.NoError(t, err)

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamDone, terminal.Kind)
	assert.Equal(t, "session:1", terminal.SessionKey)
	assert.NotEmpty(t, terminal.RunID)

	assert.Len(t, *fx.appended, 2)
	user, assistant := (*fx.appended)[0], (*fx.appended)[1]
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.RoleAssistant, assistant.Role)
	assert.Equal(t, "Let's plan it.", assistant.Content)
	assert.Equal(t, "local", assistant.Provider)
	assert.Equal(t, localModelKey, assistant.ModelKey)

	assert.False(t, fx.service.IsStreaming(1))
}

func TestStreamService_SendMessage_RejectsEmptyContent(t *testing.T) {
	fx := newStreamFixture(t, &mocks.ChatClientMock{})

	err := fx.service.SendMessage(1, "   ", localModelKey)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestStreamService_SendMessage_ConflictWhileStreaming(t *testing.T) {
	log := captureStreamEvents(t)
	release := make(chan struct{})
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](1)
			go func() {
				defer writer.Close()
				select {
				case <-release:
					writer.Send(schema.AssistantMessage("late answer", nil), nil)
				case <-ctx.Done():
				}
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "first", localModelKey))
	assert.True(t, fx.service.IsStreaming(1))

	err := fx.service.SendMessage(1, "second", localModelKey)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	// The losing send must not leave its user message behind.
	assert.Len(t, *fx.appended, 1)
	assert.Equal(t, "first", (*fx.appended)[0].Content)

	close(release)
	log.waitTerminal(t)
	assert.False(t, fx.service.IsStreaming(1))
}

func TestStreamService_SendMessage_ConflictWhileForging(t *testing.T) {
	fx := newStreamFixture(t, &mocks.ChatClientMock{})
	fx.service.BindForgeGuard(func(sessionID uint) bool { return true })

	err := fx.service.SendMessage(1, "hello", localModelKey)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestStreamService_CancelResponse_StopsStream(t *testing.T) {
	log := captureStreamEvents(t)
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](1)
			go func() {
				defer writer.Close()
				<-ctx.Done()
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "never finishes", localModelKey))
	fx.service.CancelResponse(1)

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamDone, terminal.Kind)
	assert.Equal(t, "cancelled", terminal.Message)
	assert.False(t, fx.service.IsStreaming(1))
	assert.Len(t, *fx.appended, 1)
}

func TestStreamService_CancelResponse_DiscardsPartialAnswer(t *testing.T) {
	log := captureStreamEvents(t)
	started := make(chan struct{})
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](2)
			go func() {
				defer writer.Close()
				writer.Send(schema.AssistantMessage("half an ", nil), nil)
				close(started)
				<-ctx.Done()
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "question", localModelKey))
	<-started
	fx.service.CancelResponse(1)

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamDone, terminal.Kind)
	assert.Equal(t, "cancelled", terminal.Message)

	// Only the user turn survives; the partial answer is not persisted.
	assert.Len(t, *fx.appended, 1)
	assert.Equal(t, models.RoleUser, (*fx.appended)[0].Role)
	assert.False(t, fx.service.IsStreaming(1))
}

func TestStreamService_CancelResponse_BackendErrorIsCleanCancel(t *testing.T) {
	log := captureStreamEvents(t)
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](1)
			go func() {
				defer writer.Close()
				<-ctx.Done()
				writer.Send(nil, context.Canceled)
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "question", localModelKey))
	fx.service.CancelResponse(1)

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamDone, terminal.Kind)
	assert.Equal(t, "cancelled", terminal.Message)
	assert.Len(t, *fx.appended, 1)
}

func TestStreamService_ForcedResetDiscardsLateOutput(t *testing.T) {
	log := captureStreamEvents(t)
	lateRelease := make(chan struct{})
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](2)
			// Ignores cancellation entirely; output arrives only after the
			// coordinator has already force-reset the session.
			go func() {
				defer writer.Close()
				<-lateRelease
				writer.Send(schema.AssistantMessage("late output", nil), nil)
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "question", localModelKey))
	fx.service.CancelResponse(1)

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamDone, terminal.Kind)
	assert.Equal(t, "cancelled", terminal.Message)
	assert.False(t, fx.service.IsStreaming(1))

	close(lateRelease)
	time.Sleep(300 * time.Millisecond)

	assert.Len(t, *fx.appended, 1)
	assert.NotContains(t, log.fragments(), "late output")
	select {
	case evt := <-log.done:
		t.Fatalf("superseded run emitted a terminal event: %+v", evt)
	default:
	}
}

func TestStreamService_CancelResponse_NoopWhenIdle(t *testing.T) {
	fx := newStreamFixture(t, &mocks.ChatClientMock{})
	fx.service.CancelResponse(42)
	assert.False(t, fx.service.IsStreaming(42))
}

func TestStreamService_StreamError_Emitted(t *testing.T) {
	log := captureStreamEvents(t)
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			reader, writer := schema.Pipe[*schema.Message](1)
			go func() {
				defer writer.Close()
				writer.Send(nil, errors.New("connection reset"))
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "hello", localModelKey))

	terminal := log.waitTerminal(t)
	assert.Equal(t, events.StreamError, terminal.Kind)
	assert.Contains(t, terminal.Message, apperrors.CodeUpstreamError)
	assert.False(t, fx.service.IsStreaming(1))
	assert.Len(t, *fx.appended, 1)
}

func TestStreamService_RetryLastMessage_PayloadEndsWithUserTurn(t *testing.T) {
	log := captureStreamEvents(t)
	var payloads [][]*schema.Message
	client := &mocks.ChatClientMock{
		StreamChatFunc: func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			payloads = append(payloads, messages)
			reader, writer := schema.Pipe[*schema.Message](1)
			go func() {
				defer writer.Close()
				writer.Send(schema.AssistantMessage("answer", nil), nil)
			}()
			return reader, nil
		},
	}
	fx := newStreamFixture(t, client)

	assert.NoError(t, fx.service.SendMessage(1, "question", localModelKey))
	log.waitTerminal(t)
	assert.Len(t, *fx.appended, 2)

	assert.NoError(t, fx.service.RetryLastMessage(1, localModelKey))
	log.waitTerminal(t)

	// The retry resends the history only up to the user turn it answers;
	// the superseded assistant answer is not part of the request.
	assert.Len(t, payloads, 2)
	retry := payloads[1]
	last := retry[len(retry)-1]
	assert.Equal(t, schema.User, last.Role)
	assert.Equal(t, "question", last.Content)
	for _, msg := range retry {
		assert.NotEqual(t, schema.Assistant, msg.Role)
	}
}

func TestStreamService_RetryLastMessage_RequiresHistory(t *testing.T) {
	fx := newStreamFixture(t, &mocks.ChatClientMock{})

	err := fx.service.RetryLastMessage(1, localModelKey)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestStreamService_RetryLastMessage_AppendsFreshAnswer(t *testing.T) {
	log := captureStreamEvents(t)
	fx := newStreamFixture(t, &mocks.ChatClientMock{Fragments: []string{"better answer"}})

	assert.NoError(t, fx.service.SendMessage(1, "question", localModelKey))
	log.waitTerminal(t)
	assert.Len(t, *fx.appended, 2)

	assert.NoError(t, fx.service.RetryLastMessage(1, localModelKey))
	log.waitTerminal(t)

	assert.Len(t, *fx.appended, 3)
	assert.Equal(t, models.RoleAssistant, (*fx.appended)[2].Role)
	assert.Equal(t, "better answer", (*fx.appended)[2].Content)
	assert.Contains(t, log.fragments(), "better answer")
}
