package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"planforge/internal/apperrors"
	"planforge/internal/events"
	"planforge/internal/llm/client"
	"planforge/internal/models"
	"planforge/internal/repositories"
)

const (
	// flushInterval bounds how often buffered fragments become a visible
	// update. Fragments arriving faster are merged, never dropped.
	flushInterval = 75 * time.Millisecond

	// cancelGrace is how long a cancellation waits for the backend's
	// terminal event before the coordinator force-resets to idle locally.
	cancelGrace = 2 * time.Second
)

// ChatClient is the narrow streaming capability the coordinator consumes.
// *client.LLMClient satisfies it; tests substitute their own.
type ChatClient interface {
	StreamChat(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
	ProviderID() string
	APIName() string
}

// ClientFactory builds a chat client for a catalog model. The default wires
// eino providers; tests inject fakes.
type ClientFactory func(ctx context.Context, model *models.LLMModel, baseURL, apiKey string) (ChatClient, error)

type activeStream struct {
	runID    string
	cancel   context.CancelFunc
	modelKey string
}

// StreamService coordinates at most one in-flight model response per
// session: buffering, cancellation, and safety-timeout recovery.
type StreamService struct {
	ctx          context.Context
	sessions     SessionService
	modelConfigs ModelConfigService
	keyring      *KeyringService
	settings     repositories.AppSettingsRepository

	factory ClientFactory

	mu      sync.Mutex
	streams map[uint]*activeStream

	// forgeActive is bound after construction to break the cycle with the
	// forge service; nil means "no forge running".
	forgeActive func(sessionID uint) bool
}

func NewStreamService(
	sessions SessionService,
	modelConfigs ModelConfigService,
	keyring *KeyringService,
	settings repositories.AppSettingsRepository,
) *StreamService {
	return &StreamService{
		sessions:     sessions,
		modelConfigs: modelConfigs,
		keyring:      keyring,
		settings:     settings,
		factory:      defaultClientFactory,
		streams:      make(map[uint]*activeStream),
	}
}

func (s *StreamService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// BindForgeGuard installs the forge-in-progress check used to reject sends
// while a generation run owns the session.
func (s *StreamService) BindForgeGuard(f func(sessionID uint) bool) {
	s.forgeActive = f
}

// SetClientFactory overrides chat client construction.
func (s *StreamService) SetClientFactory(f ClientFactory) {
	if f != nil {
		s.factory = f
	}
}

// IsStreaming reports whether the session currently has an in-flight
// response.
func (s *StreamService) IsStreaming(sessionID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[sessionID] != nil
}

// SendMessage appends the user message synchronously, then streams the
// assistant response. Rejected with Conflict while the session is already
// streaming or forging. The run slot is reserved before the append so a
// racing second send cannot leave an orphaned user message behind.
func (s *StreamService) SendMessage(sessionID uint, content, modelKey string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apperrors.InvalidState("message content is required")
	}
	entry, runCtx, err := s.reserveRun(sessionID)
	if err != nil {
		return err
	}

	userMsg := &models.Message{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   content,
	}
	if err := s.sessions.AppendMessage(userMsg); err != nil {
		s.abortRun(sessionID, entry)
		return err
	}
	return s.startRun(runCtx, entry, sessionID, modelKey)
}

// RetryLastMessage re-submits the most recent user message as a new
// request. The prior assistant answer stays in place; the retry appends a
// fresh one.
func (s *StreamService) RetryLastMessage(sessionID uint, modelKey string) error {
	entry, runCtx, err := s.reserveRun(sessionID)
	if err != nil {
		return err
	}
	last, err := s.sessions.LastUserMessage(sessionID)
	if err != nil {
		s.abortRun(sessionID, entry)
		return err
	}
	if last == nil {
		s.abortRun(sessionID, entry)
		return apperrors.InvalidState("session %d has no user message to retry", sessionID)
	}
	return s.startRun(runCtx, entry, sessionID, modelKey)
}

// CancelResponse requests cancellation of the in-flight response. If no
// terminal event lands within the grace period the coordinator forces the
// session back to idle; the run id bump makes late fragments discardable.
// Safe no-op when nothing is streaming.
func (s *StreamService) CancelResponse(sessionID uint) {
	s.mu.Lock()
	entry := s.streams[sessionID]
	s.mu.Unlock()
	if entry == nil {
		return
	}

	runID := entry.runID
	entry.cancel()
	emitSessionWarn(s.ctx, makeSessionKey(sessionID), "Cancel requested: stopping model response")

	time.AfterFunc(cancelGrace, func() {
		if s.finishRun(sessionID, runID) {
			evt := events.NewStreamEvent(events.StreamDone, makeSessionKey(sessionID), runID)
			evt.Message = "cancelled"
			events.EmitStream(s.ctx, evt)
		}
	})
}

// HealthCheck probes the endpoint behind the given model key.
func (s *StreamService) HealthCheck(modelKey string) (client.HealthStatus, error) {
	chatClient, _, err := s.buildClient(modelKey)
	if err != nil {
		return client.HealthStatus{}, err
	}
	if probe, ok := chatClient.(interface {
		HealthCheck(ctx context.Context) client.HealthStatus
	}); ok {
		return probe.HealthCheck(s.ctx), nil
	}
	return client.HealthStatus{Reachable: true, ModelAvailable: true}, nil
}

// reserveRun atomically claims the session's single run slot. Claiming
// happens before any persistence so a losing racer is rejected without
// side effects.
func (s *StreamService) reserveRun(sessionID uint) (*activeStream, context.Context, error) {
	if sessionID == 0 {
		return nil, nil, apperrors.NotFound("session id is required")
	}
	if s.forgeActive != nil && s.forgeActive(sessionID) {
		return nil, nil, apperrors.Conflict("session %d is forging documents", sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams[sessionID] != nil {
		return nil, nil, apperrors.Conflict("session %d already has a response in flight", sessionID)
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	entry := &activeStream{runID: uuid.NewString(), cancel: cancel}
	s.streams[sessionID] = entry
	return entry, runCtx, nil
}

// abortRun releases a reservation whose run never started.
func (s *StreamService) abortRun(sessionID uint, entry *activeStream) {
	s.finishRun(sessionID, entry.runID)
	entry.cancel()
}

func (s *StreamService) startRun(runCtx context.Context, entry *activeStream, sessionID uint, modelKey string) error {
	history, err := s.sessions.ListMessages(sessionID)
	if err != nil {
		s.abortRun(sessionID, entry)
		return err
	}
	// The payload always ends with the user turn being answered; a retry
	// must not resend the assistant answer it is replacing.
	history = throughLastUserTurn(history)
	if len(history) == 0 {
		s.abortRun(sessionID, entry)
		return apperrors.InvalidState("session %d has no user message to answer", sessionID)
	}

	chatClient, resolvedKey, err := s.buildClient(modelKey)
	if err != nil {
		s.abortRun(sessionID, entry)
		return err
	}

	s.mu.Lock()
	entry.modelKey = resolvedKey
	s.mu.Unlock()

	reader, err := chatClient.StreamChat(runCtx, toSchemaMessages(history))
	if err != nil {
		s.abortRun(sessionID, entry)
		return apperrors.Upstream("model request failed: %v", err).WithCause(err)
	}

	go s.pump(runCtx, entry.cancel, sessionID, entry.runID, resolvedKey, chatClient, reader)
	return nil
}

func throughLastUserTurn(history []models.Message) []models.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return history[:i+1]
		}
	}
	return nil
}

// pump drains one response stream. It is the only reader of its
// StreamReader, so fragment order within the session is preserved exactly;
// the rate-limited flush merges bursts into single visible updates.
func (s *StreamService) pump(ctx context.Context, cancel context.CancelFunc, sessionID uint, runID, modelKey string, chatClient ChatClient, reader *schema.StreamReader[*schema.Message]) {
	defer cancel()
	defer reader.Close()

	sessionKey := makeSessionKey(sessionID)
	var full strings.Builder
	var pending strings.Builder
	lastFlush := time.Now()

	flush := func() {
		if pending.Len() == 0 {
			return
		}
		// A run superseded by a forced reset stays silent; its buffered
		// fragments are dropped rather than re-surfaced.
		if !s.isLive(sessionID, runID) {
			pending.Reset()
			return
		}
		evt := events.NewStreamEvent(events.StreamFragment, sessionKey, runID)
		evt.Content = pending.String()
		events.EmitStream(s.ctx, evt)
		pending.Reset()
		lastFlush = time.Now()
	}

	for {
		msg, recvErr := reader.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				flush()
				s.completeRun(ctx, sessionID, runID, modelKey, chatClient, full.String())
				return
			}
			flush()
			if s.finishRun(sessionID, runID) {
				// A backend that honours the cancel by failing its stream is
				// still a clean cancellation, not an upstream fault.
				if ctx.Err() != nil || errors.Is(recvErr, context.Canceled) {
					evt := events.NewStreamEvent(events.StreamDone, sessionKey, runID)
					evt.Message = "cancelled"
					events.EmitStream(s.ctx, evt)
					return
				}
				evt := events.NewStreamEvent(events.StreamError, sessionKey, runID)
				evt.Message = apperrors.Upstream("stream failed: %v", recvErr).Error()
				events.EmitStream(s.ctx, evt)
			}
			return
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		full.WriteString(msg.Content)
		pending.WriteString(msg.Content)
		if time.Since(lastFlush) >= flushInterval {
			flush()
		}
	}
}

// completeRun persists the assistant turn and emits done, but only when
// the run is still live. A run superseded by a forced reset is discarded
// whole, keyed by run id, so late output cannot reappear. A cancelled or
// empty run terminates without persisting anything.
func (s *StreamService) completeRun(ctx context.Context, sessionID uint, runID, modelKey string, chatClient ChatClient, content string) {
	if !s.finishRun(sessionID, runID) {
		return
	}
	if ctx.Err() != nil || content == "" {
		evt := events.NewStreamEvent(events.StreamDone, makeSessionKey(sessionID), runID)
		if ctx.Err() != nil {
			evt.Message = "cancelled"
		} else {
			evt.Message = "empty response"
		}
		events.EmitStream(s.ctx, evt)
		return
	}

	assistant := &models.Message{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   content,
		ModelKey:  modelKey,
		Provider:  chatClient.ProviderID(),
	}
	sessionKey := makeSessionKey(sessionID)
	if err := s.sessions.AppendMessage(assistant); err != nil {
		evt := events.NewStreamEvent(events.StreamError, sessionKey, runID)
		evt.Message = fmt.Sprintf("failed to persist assistant message: %v", err)
		events.EmitStream(s.ctx, evt)
		return
	}

	evt := events.NewStreamEvent(events.StreamDone, sessionKey, runID)
	events.EmitStream(s.ctx, evt)
}

// isLive reports whether the session's stream slot still belongs to the
// given run.
func (s *StreamService) isLive(sessionID uint, runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.streams[sessionID]
	return entry != nil && entry.runID == runID
}

// finishRun clears the session's stream entry iff it still belongs to the
// given run. Returns false when the run was already superseded.
func (s *StreamService) finishRun(sessionID uint, runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.streams[sessionID]
	if entry == nil || entry.runID != runID {
		return false
	}
	delete(s.streams, sessionID)
	return true
}

func (s *StreamService) buildClient(modelKey string) (ChatClient, string, error) {
	modelKey = strings.TrimSpace(modelKey)
	settings, err := s.settings.Get(s.ctx)
	if err != nil {
		return nil, "", err
	}
	if modelKey == "" {
		modelKey = strings.TrimSpace(settings.DefaultModelKey)
	}
	if modelKey == "" {
		return nil, "", apperrors.InvalidState("no model selected and no default model configured")
	}

	model, err := s.modelConfigs.GetModel(modelKey)
	if err != nil {
		return nil, "", err
	}
	if model == nil {
		return nil, "", apperrors.NotFound("model %s is not in the catalog", modelKey)
	}
	if !model.Enabled {
		return nil, "", apperrors.InvalidState("model %s is disabled", model.DisplayName)
	}

	apiKey := ""
	if !model.Local {
		apiKey, err = s.keyring.GetApiKey(model.ProviderID)
		if err != nil {
			// Headless runs have no OS keychain; the environment is the
			// fallback there.
			apiKey = os.Getenv(strings.ToUpper(model.ProviderID) + "_API_KEY")
		}
		if apiKey == "" {
			return nil, "", apperrors.InvalidState("API key for %s is not configured", model.ProviderID).
				WithSuggestion("add the provider key in settings")
		}
	}

	chatClient, err := s.factory(s.ctx, model, settings.LocalBaseURL, apiKey)
	if err != nil {
		return nil, "", apperrors.Upstream("failed to create %s client: %v", model.ProviderID, err).WithCause(err)
	}
	return chatClient, modelKey, nil
}

func defaultClientFactory(ctx context.Context, model *models.LLMModel, baseURL, apiKey string) (ChatClient, error) {
	if model.Local {
		return client.NewLocalClient(ctx, client.LocalModelOptions{
			Model:   model.APIName,
			BaseURL: baseURL,
		})
	}
	switch model.ProviderID {
	case "anthropic":
		return client.NewClaudeClient(ctx, apiKey, client.ClaudeModelOptions{
			Model:    model.APIName,
			Thinking: model.Thinking != nil && *model.Thinking,
		})
	case "openai":
		return client.NewOpenAIClient(ctx, apiKey, client.OpenAIModelOptions{
			Model:           model.APIName,
			ReasoningEffort: model.ReasoningEffort,
		})
	case "gemini":
		return client.NewGeminiClient(ctx, apiKey, client.GeminiModelOptions{
			Model:    model.APIName,
			Thinking: model.Thinking != nil && *model.Thinking,
		})
	}
	return nil, fmt.Errorf("unsupported provider: %s", model.ProviderID)
}

func toSchemaMessages(history []models.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history)+1)
	out = append(out, schema.SystemMessage(
		"You are a planning partner. Help the user turn their idea into a concrete, buildable plan: "+
			"probe for goals, scope, users, requirements, data, constraints, risks and success criteria."))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case models.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		case models.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		}
	}
	return out
}
