package unit_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"

	"planforge/internal/apperrors"
	"planforge/internal/models"
	"planforge/internal/services"
	"planforge/internal/tests/mocks"
)

type workspaceFixture struct {
	service services.WorkspaceService
	links   *mocks.WorkspaceLinkRepositoryMock
}

func newWorkspaceFixture(t *testing.T) workspaceFixture {
	t.Helper()

	sessions := &mocks.SessionRepositoryMock{
		GetByIDFunc: func(ctx context.Context, id uint) (*models.Session, error) {
			return &models.Session{ID: id, Name: "Weekly Digest"}, nil
		},
	}
	links := &mocks.WorkspaceLinkRepositoryMock{
		UpsertFunc: func(ctx context.Context, sessionID uint, name, repoPath string) (*models.WorkspaceLink, error) {
			return &models.WorkspaceLink{SessionID: sessionID, Name: name, RepoPath: repoPath}, nil
		},
	}

	service := services.NewWorkspaceService(sessions, links, services.NewGitService())
	service.Startup(context.Background())
	return workspaceFixture{service: service, links: links}
}

func (fx workspaceFixture) linkTo(repoPath string) {
	fx.links.GetBySessionFunc = func(ctx context.Context, sessionID uint) (*models.WorkspaceLink, error) {
		return &models.WorkspaceLink{SessionID: sessionID, Name: "proj", RepoPath: repoPath}, nil
	}
}

func TestWorkspaceService_LinkRepository_ResolvesRepoRoot(t *testing.T) {
	fx := newWorkspaceFixture(t)
	root := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "internal", "services")
	assert.NoError(t, os.MkdirAll(nested, 0755))

	link, err := fx.service.LinkRepository(1, "", nested)
	assert.NoError(t, err)
	assert.Equal(t, root, link.RepoPath)
	assert.Equal(t, filepath.Base(root), link.Name)
}

func TestWorkspaceService_LinkRepository_KeepsExplicitName(t *testing.T) {
	fx := newWorkspaceFixture(t)
	root := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))

	link, err := fx.service.LinkRepository(1, "billing service", root)
	assert.NoError(t, err)
	assert.Equal(t, "billing service", link.Name)
}

func TestWorkspaceService_LinkRepository_NotARepo(t *testing.T) {
	fx := newWorkspaceFixture(t)

	_, err := fx.service.LinkRepository(1, "", t.TempDir())
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWorkspaceService_LinkRepository_MissingDirectory(t *testing.T) {
	fx := newWorkspaceFixture(t)

	_, err := fx.service.LinkRepository(1, "", filepath.Join(t.TempDir(), "nope"))
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestWorkspaceService_GlobContextFiles_HonorsIgnoreFile(t *testing.T) {
	fx := newWorkspaceFixture(t)
	root := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	assert.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.md"), []byte("b"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(root, ".planforgeignore"), []byte("docs/\n"), 0644))
	fx.linkTo(root)

	files, err := fx.service.GlobContextFiles(1, "")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, files)
}

func TestWorkspaceService_GlobContextFiles_SkipsGitInternals(t *testing.T) {
	fx := newWorkspaceFixture(t)
	root := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(root, ".git", "notes.md"), []byte("x"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(root, "plan.md"), []byte("p"), 0644))
	fx.linkTo(root)

	files, err := fx.service.GlobContextFiles(1, "")
	assert.NoError(t, err)
	assert.Equal(t, []string{"plan.md"}, files)
}

func TestWorkspaceService_GlobContextFiles_RejectsEscapingPattern(t *testing.T) {
	fx := newWorkspaceFixture(t)
	fx.linkTo(t.TempDir())

	_, err := fx.service.GlobContextFiles(1, "../secrets/*.md")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWorkspaceService_GlobContextFiles_RequiresLink(t *testing.T) {
	fx := newWorkspaceFixture(t)

	_, err := fx.service.GlobContextFiles(1, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWorkspaceService_ListBranches_RequiresLink(t *testing.T) {
	fx := newWorkspaceFixture(t)

	_, err := fx.service.ListBranches(1)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWorkspaceService_CheckoutBranch_SwitchesBranch(t *testing.T) {
	fx := newWorkspaceFixture(t)
	git := services.NewGitService()
	dir := initWorkspaceRepo(t, git)
	repo, err := git.Open(dir)
	assert.NoError(t, err)
	head, err := repo.Head()
	assert.NoError(t, err)
	work := plumbing.NewHashReference(plumbing.NewBranchReferenceName("work"), head.Hash())
	assert.NoError(t, repo.Storer.SetReference(work))
	fx.linkTo(dir)

	assert.NoError(t, fx.service.CheckoutBranch(1, "work"))

	after, err := repo.Head()
	assert.NoError(t, err)
	assert.Equal(t, "refs/heads/work", after.Name().String())
}

func TestWorkspaceService_CheckoutBranch_UnknownBranch(t *testing.T) {
	fx := newWorkspaceFixture(t)
	fx.linkTo(initWorkspaceRepo(t, services.NewGitService()))

	err := fx.service.CheckoutBranch(1, "does-not-exist")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWorkspaceService_CheckoutBranch_RequiresLink(t *testing.T) {
	fx := newWorkspaceFixture(t)

	err := fx.service.CheckoutBranch(1, "master")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}
