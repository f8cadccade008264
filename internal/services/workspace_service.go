package services

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yargevad/filepathx"

	"planforge/internal/apperrors"
	"planforge/internal/models"
	"planforge/internal/repositories"
	"planforge/internal/utils"
)

// contextFileLimit caps how many matched files a glob listing returns.
const contextFileLimit = 200

// WorkspaceService links a local git repository to a session so planning
// conversations can reference real project files and branches.
type WorkspaceService interface {
	Startup(ctx context.Context)
	LinkRepository(sessionID uint, name, path string) (*models.WorkspaceLink, error)
	GetLink(sessionID uint) (*models.WorkspaceLink, error)
	Unlink(sessionID uint) error
	ListBranches(sessionID uint) ([]models.BranchInfo, error)
	CheckoutBranch(sessionID uint, branch string) error
	GlobContextFiles(sessionID uint, pattern string) ([]string, error)
}

type workspaceService struct {
	ctx      context.Context
	sessions repositories.SessionRepository
	links    repositories.WorkspaceLinkRepository
	git      *GitService
}

func NewWorkspaceService(
	sessions repositories.SessionRepository,
	links repositories.WorkspaceLinkRepository,
	git *GitService,
) WorkspaceService {
	return &workspaceService{sessions: sessions, links: links, git: git}
}

func (s *workspaceService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// LinkRepository attaches the git repository at path to the session,
// replacing any previous link. The path may point inside the repo; the
// stored path is always the repository root.
func (s *workspaceService) LinkRepository(sessionID uint, name, path string) (*models.WorkspaceLink, error) {
	session, err := s.sessions.GetByID(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("session %d does not exist", sessionID)
	}

	expanded, err := utils.ExpandPath(path)
	if err != nil {
		return nil, apperrors.InvalidState("invalid repository path: %v", err).WithCause(err)
	}
	if !utils.DirectoryExists(expanded) {
		return nil, apperrors.NotFound("directory %s does not exist", expanded)
	}
	root, ok := utils.FindGitRepoRoot(expanded)
	if !ok {
		return nil, apperrors.InvalidState("%s is not inside a git repository", expanded).
			WithSuggestion("initialize the repository or pick a different folder")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(root)
	}
	return s.links.Upsert(s.ctx, sessionID, name, root)
}

func (s *workspaceService) GetLink(sessionID uint) (*models.WorkspaceLink, error) {
	return s.links.GetBySession(s.ctx, sessionID)
}

func (s *workspaceService) Unlink(sessionID uint) error {
	return s.links.DeleteBySession(s.ctx, sessionID)
}

func (s *workspaceService) ListBranches(sessionID uint) ([]models.BranchInfo, error) {
	link, err := s.requireLink(sessionID)
	if err != nil {
		return nil, err
	}
	branches, err := s.git.ListBranchesByPath(link.RepoPath)
	if err != nil {
		return nil, apperrors.IOError("failed to list branches: %v", err).WithCause(err)
	}
	return branches, nil
}

// CheckoutBranch switches the linked repository to an existing local
// branch so planning context reads from the right tree.
func (s *workspaceService) CheckoutBranch(sessionID uint, branch string) error {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return apperrors.InvalidState("branch name is required")
	}
	link, err := s.requireLink(sessionID)
	if err != nil {
		return err
	}
	repo, err := s.git.Open(link.RepoPath)
	if err != nil {
		return apperrors.IOError("failed to open workspace repository: %v", err).WithCause(err)
	}
	if err := s.git.Checkout(repo, branch); err != nil {
		return apperrors.InvalidState("failed to check out branch %s: %v", branch, err).WithCause(err)
	}
	return nil
}

// GlobContextFiles matches files in the linked workspace against a
// doublestar pattern, honoring the repo's .planforgeignore when present.
// Results are repo-relative, sorted, and capped.
func (s *workspaceService) GlobContextFiles(sessionID uint, pattern string) ([]string, error) {
	link, err := s.requireLink(sessionID)
	if err != nil {
		return nil, err
	}

	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "**/*.md"
	}
	if filepath.IsAbs(pattern) || strings.Contains(pattern, "..") {
		return nil, apperrors.InvalidState("pattern must stay inside the workspace")
	}

	ignores, err := s.loadIgnorePatterns(link.RepoPath)
	if err != nil {
		return nil, err
	}

	matches, err := filepathx.Glob(filepath.Join(link.RepoPath, pattern))
	if err != nil {
		return nil, apperrors.IOError("glob failed: %v", err).WithCause(err)
	}

	var files []string
	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr != nil || info.IsDir() {
			continue
		}
		rel, relErr := filepath.Rel(link.RepoPath, match)
		if relErr != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, ".git/") || ignored(rel, ignores) {
			continue
		}
		files = append(files, rel)
	}
	sort.Strings(files)
	if len(files) > contextFileLimit {
		files = files[:contextFileLimit]
	}
	return files, nil
}

func (s *workspaceService) requireLink(sessionID uint) (*models.WorkspaceLink, error) {
	link, err := s.links.GetBySession(s.ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, apperrors.InvalidState("session %d has no linked workspace", sessionID).
			WithSuggestion("link a repository to the session first")
	}
	return link, nil
}

func (s *workspaceService) loadIgnorePatterns(repoPath string) ([]string, error) {
	lines, err := utils.ReadNonEmptyLines(filepath.Join(repoPath, ".planforgeignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.IOError("failed to read ignore file: %v", err).WithCause(err)
	}
	return lines, nil
}

// ignored applies prefix-style ignore patterns to a repo-relative path.
func ignored(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimPrefix(strings.TrimSpace(p), "/")
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if rel == p || strings.HasPrefix(rel, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}
