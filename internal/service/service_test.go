package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"organizer/internal/domain"
	"organizer/internal/service"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// syncGuard tests
// ─────────────────────────────────────────────────────────────

func TestSyncGuard_Acquire(t *testing.T) {
	var g service.ExportedSyncGuard

	release1, err := g.Acquire("pg", "page-1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Acquire("pg", "page-1")
	var running *service.ErrSyncRunning
	if !errors.As(err, &running) || running.PageID != "page-1" {
		t.Fatalf("expected ErrSyncRunning, got %v", err)
	}
	release2, err := g.Acquire("pg", "page-2")
	if err != nil {
		t.Fatalf("different page should not block: %v", err)
	}
	if g.Running() != 2 {
		t.Errorf("Running = %d, want 2", g.Running())
	}
	release1()
	release1() // second release is a no-op
	release2()

	if _, err := g.Acquire("pg", "page-1"); err != nil {
		t.Fatalf("expected Acquire to succeed after release: %v", err)
	}
}

func TestSyncGuard_QueueKeepsClaimForOneMorePush(t *testing.T) {
	var g service.ExportedSyncGuard

	release, err := g.Acquire("pg", "page-1")
	if err != nil {
		t.Fatal(err)
	}
	// two follow-ups while busy collapse into one
	for i := 0; i < 2; i++ {
		if _, err := g.Queue("pg", "page-1"); err == nil {
			t.Fatal("Queue on a busy pair should not hand out a second claim")
		}
	}
	if _, err := g.Acquire("pg", "page-1"); err == nil {
		t.Fatal("Acquire should still fail while queued")
	}

	if !release() {
		t.Fatal("first release should report the queued push")
	}
	if g.Running() != 1 {
		t.Errorf("claim dropped while a push is queued: Running = %d", g.Running())
	}
	if release() {
		t.Error("second release should end the claim")
	}
	if g.Running() != 0 {
		t.Errorf("Running = %d, want 0", g.Running())
	}

	// stale release must not end a newer claim
	again, err := g.Queue("pg", "page-1")
	if err != nil {
		t.Fatal(err)
	}
	release()
	if g.Running() != 1 {
		t.Errorf("stale release ended a newer claim")
	}
	again()
}

func TestSyncGuard_Wait(t *testing.T) {
	var g service.ExportedSyncGuard
	release, _ := g.Acquire("pg", "page-a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait with a running sync = %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait = %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
}

func TestMockEmitter_LastEvent(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", "second")

	if m.Events[len(m.Events)-1].Event != "b" {
		t.Errorf("expected last event 'b', got %q", m.Events[len(m.Events)-1].Event)
	}
}

func TestMockEmitter_Named(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventWidgetsChanged, 1)
	m.Emit(ctx, service.EventPagesChanged, 2)
	m.Emit(ctx, service.EventWidgetsChanged, 3)

	got := m.Named(service.EventWidgetsChanged)
	if len(got) != 2 || got[1].Data != 3 {
		t.Errorf("Named = %+v", got)
	}
	if len(m.Named("missing")) != 0 {
		t.Error("expected no events for unknown name")
	}
}

// ─────────────────────────────────────────────────────────────
// Shared fixtures
// ─────────────────────────────────────────────────────────────

type testEnv struct {
	db      *storage.DB
	emitter *service.MockEmitter
	pages   *service.PageService
	widgets *service.WidgetService
	history *service.HistoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "notes"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pageStore := storage.NewPageStore(db)
	widgetStore := storage.NewWidgetStore(db)
	emitter := &service.MockEmitter{}
	history := service.NewHistoryService(storage.NewLayoutHistoryStore(db), widgetStore)
	return &testEnv{
		db:      db,
		emitter: emitter,
		pages:   service.NewPageService(pageStore, widgetStore, domain.DefaultGridConfig(), emitter),
		widgets: service.NewWidgetService(pageStore, widgetStore, history, emitter),
		history: history,
	}
}

func (e *testEnv) page(t *testing.T, name string) *domain.WidgetPage {
	t.Helper()
	p, err := e.pages.CreatePage(context.Background(), name, "")
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	return p
}

func (e *testEnv) add(t *testing.T, pageID string, kind domain.WidgetKind) *domain.Widget {
	t.Helper()
	w, err := e.widgets.AddWidget(context.Background(), service.AddWidgetInput{PageID: pageID, Kind: kind})
	if err != nil {
		t.Fatalf("add %s: %v", kind, err)
	}
	return w
}
