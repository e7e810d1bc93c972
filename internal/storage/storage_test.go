package storage_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"organizer/internal/domain"
	"organizer/internal/grid"
	"organizer/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "notes"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPage(t *testing.T, db *storage.DB, id string) *domain.WidgetPage {
	t.Helper()
	p := &domain.WidgetPage{ID: id, Name: "Page " + id, Grid: domain.DefaultGridConfig()}
	if err := storage.NewPageStore(db).CreatePage(p); err != nil {
		t.Fatalf("create page: %v", err)
	}
	return p
}

// ─────────────────────────────────────────────────────────────
// Pages
// ─────────────────────────────────────────────────────────────

func TestPageStore_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewPageStore(db)

	p := &domain.WidgetPage{ID: "p1", Name: "Home", Description: "start", Grid: domain.DefaultGridConfig()}
	p.Grid.Compact = true
	if err := store.CreatePage(p); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetPage("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Home" || got.Description != "start" {
		t.Errorf("got %+v", got)
	}
	if got.Grid.Cols != 9 || got.Grid.Rows != 8 || !got.Grid.Compact || got.Grid.Breakpoints.LG != 1200 {
		t.Errorf("grid config not preserved: %+v", got.Grid)
	}

	got.Name = "Renamed"
	if err := store.UpdatePage(got); err != nil {
		t.Fatal(err)
	}
	again, _ := store.GetPage("p1")
	if again.Name != "Renamed" {
		t.Errorf("expected rename, got %q", again.Name)
	}
}

func TestPageStore_NotFound(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewPageStore(db)

	if _, err := store.GetPage("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPage: expected ErrNotFound, got %v", err)
	}
	if err := store.UpdatePage(&domain.WidgetPage{ID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdatePage: expected ErrNotFound, got %v", err)
	}
	if err := store.SetMainPage("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetMainPage: expected ErrNotFound, got %v", err)
	}
	if err := store.DeletePage("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeletePage: expected ErrNotFound, got %v", err)
	}
}

func TestPageStore_SetMainPageIsExclusive(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewPageStore(db)
	seedPage(t, db, "a")
	seedPage(t, db, "b")
	seedPage(t, db, "c")

	if err := store.SetMainPage("a"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetMainPage("c"); err != nil {
		t.Fatal(err)
	}

	pages, err := store.ListPages()
	if err != nil {
		t.Fatal(err)
	}
	mains := 0
	for _, p := range pages {
		if p.IsMain {
			mains++
			if p.ID != "c" {
				t.Errorf("expected c to be main, got %s", p.ID)
			}
		}
	}
	if mains != 1 {
		t.Errorf("expected exactly 1 main page, got %d", mains)
	}
}

func TestPageStore_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	widgets := storage.NewWidgetStore(db)
	history := storage.NewLayoutHistoryStore(db)

	if err := widgets.CreateWidget(&domain.Widget{ID: "w1", PageID: "p1", Kind: domain.WidgetKindClock, Rect: grid.Rect{W: 2, H: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := history.PushNode("p1", "n1", "", "initial", "[]"); err != nil {
		t.Fatal(err)
	}

	if err := storage.NewPageStore(db).DeletePage("p1"); err != nil {
		t.Fatal(err)
	}
	list, _ := widgets.ListWidgets("p1")
	if len(list) != 0 {
		t.Errorf("expected widgets removed, got %d", len(list))
	}
	tree, _ := history.LoadTree("p1")
	if tree != nil {
		t.Errorf("expected history removed, got %d nodes", len(tree.Nodes))
	}
}

// ─────────────────────────────────────────────────────────────
// Widgets
// ─────────────────────────────────────────────────────────────

func TestWidgetStore_CreateAssignsOrder(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewWidgetStore(db)

	for i := 0; i < 3; i++ {
		w := &domain.Widget{
			ID:       fmt.Sprintf("w%d", i),
			PageID:   "p1",
			Kind:     domain.WidgetKindNotes,
			Rect:     grid.Rect{X: i, W: 1, H: 1},
			Settings: domain.Settings{"title": fmt.Sprintf("n%d", i)},
		}
		if err := store.CreateWidget(w); err != nil {
			t.Fatal(err)
		}
		if w.Order != i {
			t.Errorf("widget %d: expected order %d, got %d", i, i, w.Order)
		}
	}

	list, err := store.ListWidgets("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 widgets, got %d", len(list))
	}
	for i, w := range list {
		if w.ID != fmt.Sprintf("w%d", i) {
			t.Errorf("position %d: got %s", i, w.ID)
		}
		if w.Settings["title"] != fmt.Sprintf("n%d", i) {
			t.Errorf("settings not preserved: %v", w.Settings)
		}
	}
}

func TestWidgetStore_UpdateWidgetRects(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewWidgetStore(db)
	store.CreateWidget(&domain.Widget{ID: "a", PageID: "p1", Kind: domain.WidgetKindClock, Rect: grid.Rect{W: 1, H: 1}})
	store.CreateWidget(&domain.Widget{ID: "b", PageID: "p1", Kind: domain.WidgetKindClock, Rect: grid.Rect{X: 1, W: 1, H: 1}})

	err := store.UpdateWidgetRects("p1", []grid.Placement{
		{ID: "a", Rect: grid.Rect{X: 0, Y: 0, W: 3, H: 3}},
		{ID: "b", Rect: grid.Rect{X: 3, Y: 0, W: 1, H: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := store.GetWidget("a")
	b, _ := store.GetWidget("b")
	if a.Rect != (grid.Rect{W: 3, H: 3}) || b.Rect != (grid.Rect{X: 3, W: 1, H: 1}) {
		t.Errorf("unexpected rects a=%v b=%v", a.Rect, b.Rect)
	}
}

func TestWidgetStore_UpdateWidgetRectsIsAtomic(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewWidgetStore(db)
	store.CreateWidget(&domain.Widget{ID: "a", PageID: "p1", Kind: domain.WidgetKindClock, Rect: grid.Rect{W: 1, H: 1}})

	err := store.UpdateWidgetRects("p1", []grid.Placement{
		{ID: "a", Rect: grid.Rect{X: 5, Y: 5, W: 1, H: 1}},
		{ID: "missing", Rect: grid.Rect{W: 1, H: 1}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	a, _ := store.GetWidget("a")
	if a.Rect != (grid.Rect{W: 1, H: 1}) {
		t.Errorf("expected rollback, got %v", a.Rect)
	}
}

func TestWidgetStore_ReplacePageWidgets(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewWidgetStore(db)
	store.CreateWidget(&domain.Widget{ID: "old", PageID: "p1", Kind: domain.WidgetKindClock, Rect: grid.Rect{W: 1, H: 1}})

	snapshot := []domain.Widget{
		{ID: "x", Kind: domain.WidgetKindWeather, Rect: grid.Rect{W: 3, H: 1}},
		{ID: "y", Kind: domain.WidgetKindTodo, Rect: grid.Rect{Y: 1, W: 2, H: 3}, FilePath: ""},
	}
	if err := store.ReplacePageWidgets("p1", snapshot); err != nil {
		t.Fatal(err)
	}

	list, _ := store.ListWidgets("p1")
	if len(list) != 2 || list[0].ID != "x" || list[1].ID != "y" {
		t.Fatalf("unexpected widgets after replace: %+v", list)
	}
	if list[1].PageID != "p1" || list[1].Order != 1 {
		t.Errorf("expected page id and order to be normalised, got %+v", list[1])
	}
	if _, err := store.GetWidget("old"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected old widget to be gone, got %v", err)
	}
}

func TestWidgetStore_ListLinkedWidgets(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewWidgetStore(db)
	store.CreateWidget(&domain.Widget{ID: "plain", PageID: "p1", Kind: domain.WidgetKindNotes, Rect: grid.Rect{W: 1, H: 1}})
	store.CreateWidget(&domain.Widget{ID: "linked", PageID: "p1", Kind: domain.WidgetKindNotes, Rect: grid.Rect{X: 1, W: 1, H: 1}, FilePath: "/tmp/a.md"})

	list, err := store.ListLinkedWidgets()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "linked" {
		t.Errorf("expected only the linked widget, got %+v", list)
	}
}

// ─────────────────────────────────────────────────────────────
// Layout history
// ─────────────────────────────────────────────────────────────

func TestLayoutHistory_PushAndNavigate(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewLayoutHistoryStore(db)

	if tree, err := store.LoadTree("p1"); err != nil || tree != nil {
		t.Fatalf("expected empty history, got %v, %v", tree, err)
	}

	store.PushNode("p1", "n1", "", "initial", `[]`)
	store.PushNode("p1", "n2", "n1", "add", `[1]`)

	cur, err := store.Current("p1")
	if err != nil || cur.ID != "n2" {
		t.Fatalf("expected current n2, got %v, %v", cur, err)
	}
	if cur.ParentID == nil || *cur.ParentID != "n1" {
		t.Errorf("expected parent n1, got %v", cur.ParentID)
	}

	if err := store.GoTo("p1", "n1"); err != nil {
		t.Fatal(err)
	}
	child, err := store.LatestChild("n1")
	if err != nil || child.ID != "n2" {
		t.Fatalf("expected latest child n2, got %v, %v", child, err)
	}

	// a new branch wins over the old one
	store.PushNode("p1", "n3", "n1", "move", `[2]`)
	child, _ = store.LatestChild("n1")
	if child.ID != "n3" {
		t.Errorf("expected latest child n3, got %s", child.ID)
	}

	tree, _ := store.LoadTree("p1")
	if tree.RootID != "n1" || tree.CurrentID != "n3" || len(tree.Nodes) != 3 {
		t.Errorf("unexpected tree: root=%s current=%s nodes=%d", tree.RootID, tree.CurrentID, len(tree.Nodes))
	}
}

func TestLayoutHistory_Prune(t *testing.T) {
	db := newTestDB(t)
	seedPage(t, db, "p1")
	store := storage.NewLayoutHistoryStore(db)

	parent := ""
	total := storage.MaxLayoutNodes + 5
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("n%02d", i)
		if _, err := store.PushNode("p1", id, parent, "step", "[]"); err != nil {
			t.Fatalf("push %s: %v", id, err)
		}
		parent = id
	}

	tree, err := store.LoadTree("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Nodes) != storage.MaxLayoutNodes {
		t.Fatalf("expected %d nodes, got %d", storage.MaxLayoutNodes, len(tree.Nodes))
	}
	if tree.Nodes[0].ID != "n05" {
		t.Errorf("expected oldest kept node n05, got %s", tree.Nodes[0].ID)
	}
	if tree.Nodes[0].ParentID != nil {
		t.Errorf("expected the oldest kept node to become the root, parent=%v", *tree.Nodes[0].ParentID)
	}
	if tree.CurrentID != fmt.Sprintf("n%02d", total-1) {
		t.Errorf("current moved: %s", tree.CurrentID)
	}
}

// ─────────────────────────────────────────────────────────────
// Sync targets
// ─────────────────────────────────────────────────────────────

func TestSyncTargetStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSyncTargetStore(db)

	target := &domain.SyncTarget{
		ID:       "t1",
		Name:     "supabase",
		Driver:   domain.MirrorDriverPostgres,
		Host:     "db.example.com",
		Port:     5432,
		Database: "postgres",
		Username: "organizer",
		SSLMode:  "require",
		Schedule: "@every 15m",
	}
	if err := store.CreateTarget(target); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetTargetByName("supabase")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "t1" || got.Port != 5432 || got.LastSyncAt != nil || got.ExtraJSON != "{}" {
		t.Errorf("unexpected target: %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	got.LastSyncAt = &now
	got.LastError = "boom"
	if err := store.UpdateTarget(got); err != nil {
		t.Fatal(err)
	}
	again, _ := store.GetTarget("t1")
	if again.LastSyncAt == nil || !again.LastSyncAt.Equal(now) || again.LastError != "boom" {
		t.Errorf("sync status not stored: %+v", again)
	}

	if err := store.DeleteTarget("t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetTarget("t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
