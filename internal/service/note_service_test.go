package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"organizer/internal/domain"
	"organizer/internal/service"
	"organizer/internal/storage"
)

func newNoteService(t *testing.T, env *testEnv) *service.NoteService {
	t.Helper()
	svc := service.NewNoteService(storage.NewWidgetStore(env.db), env.db.NotesDir(), env.emitter)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	env.widgets.AddObserver(svc)
	return svc
}

func TestNoteService_LinkDefaultFile(t *testing.T) {
	env := newTestEnv(t)
	svc := newNoteService(t, env)
	ctx := context.Background()
	p := env.page(t, "Home")
	w, err := env.widgets.AddWidget(ctx, service.AddWidgetInput{
		PageID:   p.ID,
		Kind:     domain.WidgetKindNotes,
		Settings: domain.Settings{"content": "buy milk"},
	})
	if err != nil {
		t.Fatal(err)
	}

	linked, err := svc.LinkFile(ctx, w.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(env.db.NotesDir(), w.ID+".md")
	if linked.FilePath != want {
		t.Errorf("file path = %q, want %q", linked.FilePath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "buy milk" {
		t.Errorf("seeded file = %q, %v", data, err)
	}

	if err := os.WriteFile(want, []byte("buy oat milk\n"), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := env.widgets.GetWidget(w.ID)
		if got.Settings["content"] == "buy oat milk" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("external edit was not copied into the widget")
}

func TestNoteService_OnlyNotesWidgets(t *testing.T) {
	env := newTestEnv(t)
	svc := newNoteService(t, env)
	p := env.page(t, "Home")
	clock := env.add(t, p.ID, domain.WidgetKindClock)

	if _, err := svc.LinkFile(context.Background(), clock.ID, ""); err == nil {
		t.Fatal("expected error linking a clock widget")
	}
}

func TestNoteService_Unlink(t *testing.T) {
	env := newTestEnv(t)
	svc := newNoteService(t, env)
	ctx := context.Background()
	p := env.page(t, "Home")
	w := env.add(t, p.ID, domain.WidgetKindNotes)

	path := filepath.Join(t.TempDir(), "todo.md")
	if err := os.WriteFile(path, []byte("  first  "), 0644); err != nil {
		t.Fatal(err)
	}
	linked, err := svc.LinkFile(ctx, w.ID, path)
	if err != nil {
		t.Fatal(err)
	}
	if linked.Settings["content"] != "first" {
		t.Errorf("content = %q", linked.Settings["content"])
	}
	if len(env.emitter.Named(service.EventContentUpdated)) != 1 {
		t.Error("expected a content event on link")
	}

	if err := svc.UnlinkFile(w.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := env.widgets.GetWidget(w.ID)
	if got.FilePath != "" || got.Settings["content"] != "first" {
		t.Errorf("after unlink: %+v", got)
	}
}
