package unit_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"planforge/internal/services"
)

func TestGitService_InitAndOpen(t *testing.T) {
	git := services.NewGitService()
	dir := t.TempDir()

	repo, err := git.Init(dir)
	assert.NoError(t, err)
	assert.NotNil(t, repo)

	opened, err := git.Open(dir)
	assert.NoError(t, err)
	assert.NotNil(t, opened)
}

func TestGitService_Open_NotARepo(t *testing.T) {
	git := services.NewGitService()

	_, err := git.Open(t.TempDir())
	assert.Error(t, err)
}

func TestGitService_ValidateRepository(t *testing.T) {
	git := services.NewGitService()

	assert.Error(t, git.ValidateRepository(""))
	assert.Error(t, git.ValidateRepository(t.TempDir()))

	// A fresh repo has no commits, so HEAD does not resolve yet.
	unborn := t.TempDir()
	_, err := git.Init(unborn)
	assert.NoError(t, err)
	assert.Error(t, git.ValidateRepository(unborn))

	dir := initWorkspaceRepo(t, git)
	assert.NoError(t, git.ValidateRepository(dir))
}

func TestGitService_CommitPaths(t *testing.T) {
	git := services.NewGitService()
	dir := t.TempDir()
	repo, err := git.Init(dir)
	assert.NoError(t, err)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("notes\n"), 0644))
	hash, err := git.CommitPaths(repo, []string{"notes.md"}, "add notes")
	assert.NoError(t, err)
	assert.Len(t, hash, 40)

	latest, err := git.LatestCommit(dir)
	assert.NoError(t, err)
	assert.Equal(t, hash, latest)
}

func TestGitService_CommitPaths_RequiresMessage(t *testing.T) {
	git := services.NewGitService()
	repo, err := git.Init(t.TempDir())
	assert.NoError(t, err)

	_, err = git.CommitPaths(repo, nil, "")
	assert.Error(t, err)
}

func TestGitService_ListBranchesByPath(t *testing.T) {
	git := services.NewGitService()
	dir := initWorkspaceRepo(t, git)

	branches, err := git.ListBranchesByPath(dir)
	assert.NoError(t, err)
	assert.Len(t, branches, 1)
	assert.Equal(t, "master", branches[0].Name)
	assert.False(t, branches[0].LastCommitDate.IsZero())
}

func TestGitService_LatestCommit_EmptyPath(t *testing.T) {
	git := services.NewGitService()

	_, err := git.LatestCommit("")
	assert.Error(t, err)
}
