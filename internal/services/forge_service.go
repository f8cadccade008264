package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"planforge/internal/apperrors"
	"planforge/internal/coverage"
	"planforge/internal/events"
	"planforge/internal/forge"
	"planforge/internal/models"
	"planforge/internal/repositories"
)

// ForgeService turns a session's conversation into the generated document
// set: evaluates coverage, renders the catalog, diffs against the previous
// run and persists everything as one atomic generation run.
type ForgeService interface {
	Startup(ctx context.Context)
	Forge(sessionID uint, target string, force bool) (*models.ForgeResult, error)
	EvaluateReadiness(sessionID uint) (*models.ReadinessReport, error)
	EvaluateCoverage(sessionID uint) (*models.CoverageReport, error)
	ListDocuments(sessionID uint) ([]models.DocumentInfo, error)
	GetDocument(sessionID uint, filename string) (*models.GeneratedDocument, error)
	DocumentHistory(sessionID uint, filename string) ([]models.DocumentInfo, error)
	LatestRun(sessionID uint) (*models.GenerationRecord, error)
	IsForging(sessionID uint) bool
	BindStreamGuard(f func(sessionID uint) bool)
}

type forgeService struct {
	ctx      context.Context
	sessions repositories.SessionRepository
	messages repositories.MessageRepository
	docs     repositories.DocumentRepository
	runs     repositories.GenerationRepository

	mu       sync.Mutex
	inFlight map[uint]bool

	streamActive func(sessionID uint) bool
}

func NewForgeService(
	sessions repositories.SessionRepository,
	messages repositories.MessageRepository,
	docs repositories.DocumentRepository,
	runs repositories.GenerationRepository,
) ForgeService {
	return &forgeService{
		sessions: sessions,
		messages: messages,
		docs:     docs,
		runs:     runs,
		inFlight: make(map[uint]bool),
	}
}

func (s *forgeService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// BindStreamGuard installs the streaming-in-progress check; a session with
// a response in flight cannot forge until the stream settles.
func (s *forgeService) BindStreamGuard(f func(sessionID uint) bool) {
	s.streamActive = f
}

func (s *forgeService) IsForging(sessionID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[sessionID]
}

// Forge runs one generation pass for the session. At most one run per
// session is in flight; concurrent calls get a Conflict. The run either
// lands whole (record plus every document, one transaction) or not at all.
// Without force, a conversation whose fingerprint already matches the
// latest run is left alone.
func (s *forgeService) Forge(sessionID uint, target string, force bool) (*models.ForgeResult, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		target = models.TargetProfileGeneric
	}
	if !forge.ValidTarget(target) {
		return nil, apperrors.InvalidState("unknown target profile: %s", target)
	}

	session, err := s.sessions.GetByID(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("session %d does not exist", sessionID)
	}

	if err := s.acquire(sessionID); err != nil {
		return nil, err
	}
	defer s.release(sessionID)

	history, err := s.messages.ListBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}

	coverageReport := coverage.Evaluate(history)
	readiness := coverage.Readiness(coverageReport)
	fingerprint := forge.Fingerprint(sessionID, history)

	latest, err := s.runs.LatestBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !force && latest != nil && latest.Fingerprint == fingerprint {
		return nil, apperrors.InvalidState("documents already reflect the conversation").
			WithSuggestion("regenerate with force to supersede the current set")
	}

	previous, err := s.previousContents(sessionID, latest)
	if err != nil {
		return nil, err
	}

	rendered := forge.Render(forge.Input{
		SessionName: session.Name,
		Target:      target,
		Messages:    history,
		Coverage:    coverageReport,
		Readiness:   readiness,
	})
	diff := forge.Diff(previous, rendered)
	confidence := forge.Confidence(rendered)

	versions, err := s.docs.NextVersions(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	sessionKey := makeSessionKey(sessionID)
	provider, modelKey := lastAssistantModel(history)
	filenames := forge.CatalogFilenames()

	documents := make([]models.GeneratedDocument, 0, len(filenames))
	for i, filename := range filenames {
		events.EmitProgress(s.ctx, events.ProgressEvent{
			SessionKey: sessionKey,
			RunID:      runID,
			Current:    i + 1,
			Total:      len(filenames),
			Filename:   filename,
		})
		documents = append(documents, models.GeneratedDocument{
			SessionID: sessionID,
			RunID:     runID,
			Filename:  filename,
			Version:   versions[filename],
			Content:   rendered[filename],
		})
	}

	record := &models.GenerationRecord{
		RunID:          runID,
		SessionID:      sessionID,
		Target:         target,
		Provider:       provider,
		ModelKey:       modelKey,
		Fingerprint:    fingerprint,
		ReadinessJSON:  marshalReport(readiness),
		ConfidenceJSON: marshalReport(confidence),
		DiffJSON:       marshalReport(diff),
	}
	if err := s.runs.CreateRun(s.ctx, record, documents); err != nil {
		emitSessionError(s.ctx, sessionKey, "Document generation failed: "+err.Error())
		return nil, apperrors.IOError("failed to persist generation run: %v", err).WithCause(err)
	}
	if err := s.sessions.Touch(s.ctx, sessionID); err != nil {
		emitSessionWarn(s.ctx, sessionKey, "Failed to update session timestamp: "+err.Error())
	}

	result := &models.ForgeResult{
		SessionID:   sessionID,
		RunID:       runID,
		Target:      target,
		Provider:    provider,
		ModelKey:    modelKey,
		Fingerprint: fingerprint,
		Documents:   toDocumentInfos(documents),
		Diff:        diff,
		Confidence:  confidence,
		Readiness:   readiness,
	}

	done := events.NewSuccess("Generated " + session.Name + " documents")
	done.SessionKey = sessionKey
	done.Metadata = map[string]string{"runId": runID}
	events.Emit(s.ctx, events.ForgeDone, done)

	return result, nil
}

// EvaluateReadiness scores the conversation without generating anything.
func (s *forgeService) EvaluateReadiness(sessionID uint) (*models.ReadinessReport, error) {
	report, err := s.EvaluateCoverage(sessionID)
	if err != nil {
		return nil, err
	}
	return coverage.Readiness(report), nil
}

func (s *forgeService) EvaluateCoverage(sessionID uint) (*models.CoverageReport, error) {
	session, err := s.sessions.GetByID(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("session %d does not exist", sessionID)
	}
	history, err := s.messages.ListBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return coverage.Evaluate(history), nil
}

// ListDocuments returns the current document set of the latest run. Empty
// when the session has never forged.
func (s *forgeService) ListDocuments(sessionID uint) ([]models.DocumentInfo, error) {
	record, err := s.runs.LatestBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return []models.DocumentInfo{}, nil
	}
	current, err := s.docs.CurrentSet(s.ctx, sessionID, record.RunID)
	if err != nil {
		return nil, err
	}
	docs := make([]models.GeneratedDocument, 0, len(current))
	for _, filename := range forge.CatalogFilenames() {
		if doc, ok := current[filename]; ok {
			docs = append(docs, doc)
		}
	}
	return toDocumentInfos(docs), nil
}

func (s *forgeService) GetDocument(sessionID uint, filename string) (*models.GeneratedDocument, error) {
	record, err := s.runs.LatestBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NotFound("session %d has no generated documents", sessionID)
	}
	current, err := s.docs.CurrentSet(s.ctx, sessionID, record.RunID)
	if err != nil {
		return nil, err
	}
	doc, ok := current[filename]
	if !ok {
		return nil, apperrors.NotFound("document %s is not part of the current set", filename)
	}
	return &doc, nil
}

func (s *forgeService) DocumentHistory(sessionID uint, filename string) ([]models.DocumentInfo, error) {
	history, err := s.docs.History(s.ctx, sessionID, filename)
	if err != nil {
		return nil, err
	}
	return toDocumentInfos(history), nil
}

func (s *forgeService) LatestRun(sessionID uint) (*models.GenerationRecord, error) {
	return s.runs.LatestBySession(s.ctx, sessionID)
}

func (s *forgeService) acquire(sessionID uint) error {
	if s.streamActive != nil && s.streamActive(sessionID) {
		return apperrors.Conflict("session %d has a response in flight", sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return apperrors.Conflict("session %d is already forging documents", sessionID)
	}
	s.inFlight[sessionID] = true
	return nil
}

func (s *forgeService) release(sessionID uint) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// previousContents loads the prior run's documents keyed by filename, for
// diffing. A session without a prior run diffs against an empty set.
func (s *forgeService) previousContents(sessionID uint, record *models.GenerationRecord) (map[string]string, error) {
	if record == nil {
		return map[string]string{}, nil
	}
	current, err := s.docs.CurrentSet(s.ctx, sessionID, record.RunID)
	if err != nil {
		return nil, err
	}
	contents := make(map[string]string, len(current))
	for filename, doc := range current {
		contents[filename] = doc.Content
	}
	return contents, nil
}

// lastAssistantModel attributes the run to the model that produced the most
// recent assistant turn. Empty for conversations without one.
func lastAssistantModel(history []models.Message) (provider, modelKey string) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			return history[i].Provider, history[i].ModelKey
		}
	}
	return "", ""
}

func toDocumentInfos(docs []models.GeneratedDocument) []models.DocumentInfo {
	infos := make([]models.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, models.DocumentInfo{
			Filename:  doc.Filename,
			Version:   doc.Version,
			RunID:     doc.RunID,
			CreatedAt: doc.CreatedAt,
		})
	}
	return infos
}

func marshalReport(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
