package app

import (
	"context"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"organizer/internal/config"
	"organizer/internal/domain"
	"organizer/internal/grid"
	mcpserver "organizer/internal/mcp"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg *config.Config

	svc     *services
	watcher *pageWatcher

	// Pointer drag in progress, if any
	dragMu   sync.Mutex
	drag     *grid.DragSession
	dragPage *domain.WidgetPage
}

// New creates a new App.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	svc, err := openServices(a.cfg, wailsEmitter{})
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.svc = svc
	if err := svc.start(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Startup: %v", err)
	}

	size := svc.settings.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	// The standalone MCP process writes to the same database
	a.watcher = newPageWatcher(ctx, svc, wailsEmitter{}, a.cfg.WatchInterval)
	if id, err := a.activePageID(); err == nil {
		a.watcher.SetPage(id)
	}
	a.watcher.Start()
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.svc == nil {
		return
	}
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.svc.settings.SaveWindowSize(w, h); err != nil {
		wailsRuntime.LogErrorf(ctx, "Save window size: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	a.svc.close(waitCtx)
}

// ============================================================
// MCP approvals
// ============================================================

// ListPendingApprovals returns actions the MCP process is waiting on.
func (a *App) ListPendingApprovals() ([]mcpserver.PendingAction, error) {
	return mcpserver.PendingInDB(a.svc.db.Conn())
}

// ApproveAction lets a destructive MCP tool call proceed.
func (a *App) ApproveAction(actionID string) error {
	return mcpserver.ResolveInDB(a.svc.db.Conn(), actionID, true)
}

// RejectAction refuses a destructive MCP tool call.
func (a *App) RejectAction(actionID string) error {
	return mcpserver.ResolveInDB(a.svc.db.Conn(), actionID, false)
}
