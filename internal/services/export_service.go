package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/forge"
	"planforge/internal/models"
	"planforge/internal/repositories"
	"planforge/internal/utils"
)

const manifestFilename = "manifest.json"

// ExportService writes the current document set to disk and answers
// whether that set still reflects the conversation.
type ExportService interface {
	Startup(ctx context.Context)
	CheckStale(sessionID uint) (*models.StalenessInfo, error)
	SaveToFolder(sessionID uint, folder string) (*models.ExportManifest, error)
	ReadManifest(folder string) (*models.ExportManifest, error)
	CommitToWorkspace(sessionID uint, subdir string) (string, error)
}

type exportService struct {
	ctx      context.Context
	sessions repositories.SessionRepository
	messages repositories.MessageRepository
	docs     repositories.DocumentRepository
	runs     repositories.GenerationRepository
	links    repositories.WorkspaceLinkRepository
	git      *GitService
}

func NewExportService(
	sessions repositories.SessionRepository,
	messages repositories.MessageRepository,
	docs repositories.DocumentRepository,
	runs repositories.GenerationRepository,
	links repositories.WorkspaceLinkRepository,
	git *GitService,
) ExportService {
	return &exportService{
		sessions: sessions,
		messages: messages,
		docs:     docs,
		runs:     runs,
		links:    links,
		git:      git,
	}
}

func (s *exportService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// CheckStale recomputes the conversation fingerprint and compares it with
// the latest run's. Equality is exact: any appended message flips the set
// to stale. A session that never forged reports NotFound.
func (s *exportService) CheckStale(sessionID uint) (*models.StalenessInfo, error) {
	record, err := s.runs.LatestBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NotFound("session %d has no generated documents", sessionID)
	}

	history, err := s.messages.ListBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	current := forge.Fingerprint(sessionID, history)

	info := &models.StalenessInfo{
		RunID:       record.RunID,
		Fingerprint: record.Fingerprint,
		Current:     current,
	}
	if current != record.Fingerprint {
		info.Stale = true
		info.Reason = "conversation changed since the last generation"
	}
	return info, nil
}

// SaveToFolder exports the current document set plus a manifest. Files are
// staged in a temporary directory and moved into place with a single
// rename, so a failed export never leaves a half-written folder behind.
func (s *exportService) SaveToFolder(sessionID uint, folder string) (*models.ExportManifest, error) {
	session, err := s.sessions.GetByID(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("session %d does not exist", sessionID)
	}

	record, err := s.runs.LatestBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NotFound("session %d has no generated documents to export", sessionID)
	}

	current, err := s.docs.CurrentSet(s.ctx, sessionID, record.RunID)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, apperrors.NotFound("run %s has no documents", record.RunID)
	}

	target, err := resolveExportFolder(folder)
	if err != nil {
		return nil, err
	}

	manifest := &models.ExportManifest{
		SchemaVersion: models.ManifestSchemaVersion,
		RunID:         record.RunID,
		SessionID:     sessionID,
		SessionName:   session.Name,
		Target:        record.Target,
		Fingerprint:   record.Fingerprint,
		ExportedAt:    time.Now(),
	}
	for _, filename := range forge.CatalogFilenames() {
		if _, ok := current[filename]; ok {
			manifest.Files = append(manifest.Files, filename)
		}
	}

	if err := s.writeExport(target, current, manifest); err != nil {
		return nil, err
	}

	emitSessionInfo(s.ctx, makeSessionKey(sessionID), fmt.Sprintf("Exported %d documents to %s", len(manifest.Files), target))
	return manifest, nil
}

// ReadManifest loads and validates a manifest written by a previous export.
// Manifests newer than this build, or older than the compatibility floor,
// are rejected.
func (s *exportService) ReadManifest(folder string) (*models.ExportManifest, error) {
	target, err := resolveExportFolder(folder)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(target, manifestFilename))
	if os.IsNotExist(err) {
		return nil, apperrors.NotFound("no manifest found in %s", target)
	}
	if err != nil {
		return nil, apperrors.IOError("failed to read manifest: %v", err).WithCause(err)
	}

	var manifest models.ExportManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperrors.IOError("manifest is not valid JSON: %v", err).WithCause(err)
	}
	if manifest.SchemaVersion > models.ManifestSchemaVersion || manifest.SchemaVersion < models.ManifestMinReadableVersion {
		return nil, apperrors.InvalidState("manifest schema version %d is outside the readable range [%d, %d]",
			manifest.SchemaVersion, models.ManifestMinReadableVersion, models.ManifestSchemaVersion)
	}
	return &manifest, nil
}

// CommitToWorkspace exports into the session's linked repository and
// commits the documents there. Returns the commit hash.
func (s *exportService) CommitToWorkspace(sessionID uint, subdir string) (string, error) {
	link, err := s.links.GetBySession(s.ctx, sessionID)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", apperrors.InvalidState("session %d has no linked workspace", sessionID).
			WithSuggestion("link a repository to the session first")
	}
	if subdir == "" {
		subdir = "docs/planforge"
	}
	if filepath.IsAbs(subdir) {
		return "", apperrors.InvalidState("export subdirectory must be relative to the workspace root")
	}

	// A linked folder that is not a repository yet gets one initialized;
	// CommitPaths handles the initial commit on the unborn branch.
	repo, err := s.git.Open(link.RepoPath)
	if err != nil {
		repo, err = s.git.Init(link.RepoPath)
		if err != nil {
			return "", apperrors.IOError("failed to initialize workspace repository: %v", err).WithCause(err)
		}
	}

	manifest, err := s.SaveToFolder(sessionID, filepath.Join(link.RepoPath, subdir))
	if err != nil {
		return "", err
	}

	paths := make([]string, 0, len(manifest.Files)+1)
	for _, f := range manifest.Files {
		paths = append(paths, filepath.Join(subdir, f))
	}
	paths = append(paths, filepath.Join(subdir, manifestFilename))

	message := fmt.Sprintf("docs: update %s planning documents (run %s)", manifest.SessionName, manifest.RunID)
	hash, err := s.git.CommitPaths(repo, paths, message)
	if err != nil {
		return "", apperrors.IOError("failed to commit documents: %v", err).WithCause(err)
	}

	emitSessionInfo(s.ctx, makeSessionKey(sessionID), "Committed planning documents as "+hash[:8])
	return hash, nil
}

// writeExport stages everything in a sibling temp directory and swaps it in
// with one rename.
func (s *exportService) writeExport(target string, current map[string]models.GeneratedDocument, manifest *models.ExportManifest) error {
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return apperrors.IOError("failed to create %s: %v", parent, err).WithCause(err)
	}

	staging, err := os.MkdirTemp(parent, ".planforge-export-*")
	if err != nil {
		return apperrors.IOError("failed to create staging directory: %v", err).WithCause(err)
	}
	defer os.RemoveAll(staging)

	for _, filename := range manifest.Files {
		doc := current[filename]
		if err := os.WriteFile(filepath.Join(staging, filename), []byte(doc.Content), 0644); err != nil {
			return apperrors.IOError("failed to write %s: %v", filename, err).WithCause(err)
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return apperrors.IOError("failed to encode manifest: %v", err).WithCause(err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFilename), data, 0644); err != nil {
		return apperrors.IOError("failed to write manifest: %v", err).WithCause(err)
	}

	if err := os.RemoveAll(target); err != nil {
		return apperrors.IOError("failed to replace %s: %v", target, err).WithCause(err)
	}
	if err := os.Rename(staging, target); err != nil {
		return apperrors.IOError("failed to move export into place: %v", err).WithCause(err)
	}
	return nil
}

func resolveExportFolder(folder string) (string, error) {
	if strings.TrimSpace(folder) == "" {
		return "", apperrors.InvalidState("export folder is required")
	}
	expanded, err := utils.ExpandPath(folder)
	if err != nil {
		return "", apperrors.InvalidState("invalid export folder: %v", err).WithCause(err)
	}
	return expanded, nil
}
