package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	mcpserver "organizer/internal/mcp"
	"organizer/internal/service"
)

// pageWatcher polls the database for writes made outside this process
// (the standalone MCP server) and re-emits them as frontend events.
type pageWatcher struct {
	ctx      context.Context
	db       *sql.DB
	pages    *service.PageService
	emitter  service.EventEmitter
	interval time.Duration

	mu sync.Mutex
	// Active page tracking
	pageID      string
	lastWidgets string // count + max updated_at
	lastPages   string // count + max updated_at, for the sidebar
	// Approval IDs already announced
	announced map[string]bool

	stopCh chan struct{}
	done   chan struct{}
}

func newPageWatcher(ctx context.Context, svc *services, emitter service.EventEmitter, interval time.Duration) *pageWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &pageWatcher{
		ctx:       ctx,
		db:        svc.db.Conn(),
		pages:     svc.pages,
		emitter:   emitter,
		interval:  interval,
		announced: map[string]bool{},
	}
}

// SetPage switches the watched page. The next poll only records a baseline.
func (w *pageWatcher) SetPage(pageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pageID = pageID
	w.lastWidgets = ""
}

func (w *pageWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it to exit.
func (w *pageWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *pageWatcher) pollLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) check() {
	w.mu.Lock()
	pageID := w.pageID
	w.mu.Unlock()

	pagesFP, err := w.fingerprint(`SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM pages`)
	if err != nil {
		log.Printf("[watcher] pages: %v", err)
		return
	}
	var widgetsFP string
	if pageID != "" {
		widgetsFP, err = w.fingerprint(
			`SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM widgets WHERE page_id = ?`, pageID)
		if err != nil {
			log.Printf("[watcher] widgets: %v", err)
			return
		}
	}

	w.mu.Lock()
	pagesChanged := w.lastPages != "" && w.lastPages != pagesFP
	widgetsChanged := w.lastWidgets != "" && w.lastWidgets != widgetsFP
	w.lastPages = pagesFP
	w.lastWidgets = widgetsFP
	w.mu.Unlock()

	if pagesChanged {
		if pages, err := w.pages.ListPages(); err == nil {
			w.emitter.Emit(w.ctx, service.EventPagesChanged, pages)
		}
	}
	if widgetsChanged {
		if state, err := w.pages.PageState(pageID); err == nil {
			w.emitter.Emit(w.ctx, service.EventWidgetsChanged, state)
		}
	}

	w.checkApprovals()
}

func (w *pageWatcher) fingerprint(query string, args ...any) (string, error) {
	var count int
	var maxUpdated string
	if err := w.db.QueryRow(query, args...).Scan(&count, &maxUpdated); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", count, maxUpdated), nil
}

// checkApprovals announces each pending MCP approval once. IDs that are no
// longer pending are forgotten.
func (w *pageWatcher) checkApprovals() {
	pending, err := mcpserver.PendingInDB(w.db)
	if err != nil {
		log.Printf("[watcher] approvals: %v", err)
		return
	}

	var fresh []mcpserver.PendingAction
	w.mu.Lock()
	still := make(map[string]bool, len(pending))
	for _, a := range pending {
		still[a.ID] = true
		if !w.announced[a.ID] {
			fresh = append(fresh, a)
		}
	}
	w.announced = still
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(w.ctx, service.EventApprovalRequired, a)
	}
}
