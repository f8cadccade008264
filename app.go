package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"planforge/internal/models"
	"planforge/internal/services"
)

// App struct
type App struct {
	ctx     context.Context
	svc     *services.DbServices
	dbClose func() error
}

// NewApp creates a new App application struct
func NewApp(svc *services.DbServices) *App {
	return &App{svc: svc}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			runtime.LogError(ctx, fmt.Sprintf("failed to close database: %v", err))
		} else {
			runtime.LogInfo(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// SelectDirectory opens a native directory picker dialog
func (a *App) SelectDirectory() (string, error) {
	dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Directory",
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

// SendMessage submits a user message and starts streaming the response.
func (a *App) SendMessage(sessionID uint, content, modelKey string) error {
	return a.svc.Streams.SendMessage(sessionID, content, modelKey)
}

// CancelResponse stops the in-flight response for the session, if any.
func (a *App) CancelResponse(sessionID uint) {
	a.svc.Streams.CancelResponse(sessionID)
}

// RetryLastMessage re-submits the session's last user message.
func (a *App) RetryLastMessage(sessionID uint, modelKey string) error {
	return a.svc.Streams.RetryLastMessage(sessionID, modelKey)
}

// ForgeDocuments generates the document set for the session. force
// regenerates even when the conversation has not changed.
func (a *App) ForgeDocuments(sessionID uint, target string, force bool) (*models.ForgeResult, error) {
	return a.svc.Forge.Forge(sessionID, target, force)
}

// EvaluateReadiness scores how forge-ready the conversation is.
func (a *App) EvaluateReadiness(sessionID uint) (*models.ReadinessReport, error) {
	return a.svc.Forge.EvaluateReadiness(sessionID)
}

// CheckDocumentsStale reports whether the generated set lags the conversation.
func (a *App) CheckDocumentsStale(sessionID uint) (*models.StalenessInfo, error) {
	return a.svc.Exports.CheckStale(sessionID)
}

// ExportDocuments writes the current document set to a folder on disk.
func (a *App) ExportDocuments(sessionID uint, folder string) (*models.ExportManifest, error) {
	return a.svc.Exports.SaveToFolder(sessionID, folder)
}

// CommitDocuments exports into the linked workspace and commits them.
func (a *App) CommitDocuments(sessionID uint, subdir string) (string, error) {
	return a.svc.Exports.CommitToWorkspace(sessionID, subdir)
}

// LinkWorkspace attaches a local git repository to the session.
func (a *App) LinkWorkspace(sessionID uint, name, path string) (*models.WorkspaceLink, error) {
	return a.svc.Workspaces.LinkRepository(sessionID, name, path)
}

// ListWorkspaceBranches returns the linked repo's branches.
func (a *App) ListWorkspaceBranches(sessionID uint) ([]models.BranchInfo, error) {
	return a.svc.Workspaces.ListBranches(sessionID)
}

// CheckoutWorkspaceBranch switches the linked repo to a local branch.
func (a *App) CheckoutWorkspaceBranch(sessionID uint, branch string) error {
	return a.svc.Workspaces.CheckoutBranch(sessionID, branch)
}

// GetAppSettings returns the current application settings
func (a *App) GetAppSettings() (*models.AppSettings, error) {
	return a.svc.AppSettings.Get()
}

// UpdateAppSettings updates theme and locale and returns the updated settings
func (a *App) UpdateAppSettings(theme, locale string) (*models.AppSettings, error) {
	return a.svc.AppSettings.Update(theme, locale)
}
