package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"organizer/internal/domain"
	"organizer/internal/service"
)

// ============================================================
// Sync targets
// ============================================================

func (a *App) ListSyncTargets() ([]domain.SyncTarget, error) {
	return a.svc.mirrors.ListTargets()
}

func (a *App) CreateSyncTarget(in service.SyncTargetInput) (*domain.SyncTarget, error) {
	t, err := a.svc.mirrors.CreateTarget(in)
	if err != nil {
		return nil, err
	}
	a.reloadSchedule()
	return t, nil
}

// UpdateSyncTarget saves a target. An empty password keeps the stored one.
func (a *App) UpdateSyncTarget(id string, in service.SyncTargetInput) (*domain.SyncTarget, error) {
	t, err := a.svc.mirrors.UpdateTarget(id, in)
	if err != nil {
		return nil, err
	}
	a.reloadSchedule()
	return t, nil
}

func (a *App) DeleteSyncTarget(id string) error {
	if err := a.svc.mirrors.DeleteTarget(id); err != nil {
		return err
	}
	a.reloadSchedule()
	return nil
}

// reloadSchedule picks up changed sync schedules.
func (a *App) reloadSchedule() {
	if err := a.svc.scheduler.Reload(); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Reload schedule: %v", err)
	}
}

func (a *App) TestSyncTarget(id string) error {
	return a.svc.mirrors.TestTarget(a.ctx, id)
}

func (a *App) PushPage(targetID, pageID string) (*service.SyncResult, error) {
	return a.svc.mirrors.PushPage(a.ctx, targetID, pageID)
}

func (a *App) PullPage(targetID, pageID string) (*service.SyncResult, error) {
	return a.svc.mirrors.PullPage(a.ctx, targetID, pageID)
}

// PushAllPages copies every page to the target in the background.
func (a *App) PushAllPages(targetID string) {
	go func() {
		if err := a.svc.mirrors.PushAll(a.ctx, targetID); err != nil {
			wailsRuntime.LogErrorf(a.ctx, "Push all pages: %v", err)
		}
	}()
}

// ============================================================
// Notes file picker
// ============================================================

// PickNotesFile asks for a markdown file and links it to the widget.
// Returns nil if the dialog was dismissed.
func (a *App) PickNotesFile(widgetID string) (*domain.Widget, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            "Link notes file",
		DefaultDirectory: a.cfg.NotesDir(),
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Markdown (*.md)", Pattern: "*.md;*.markdown;*.txt"},
		},
	})
	if err != nil || path == "" {
		return nil, err
	}
	return a.svc.notes.LinkFile(a.ctx, widgetID, path)
}
