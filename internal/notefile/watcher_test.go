package notefile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"organizer/internal/notefile"
)

type change struct {
	widgetID string
	content  string
}

func TestWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.md")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan change, 8)
	w, err := notefile.New(func(id, content string) {
		changes <- change{id, content}
	}, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch("w1", path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("  second draft \n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c.widgetID != "w1" || c.content != "second draft" {
			t.Errorf("unexpected change %+v", c)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_IgnoresUnlinkedFiles(t *testing.T) {
	dir := t.TempDir()
	linked := filepath.Join(dir, "linked.md")
	other := filepath.Join(dir, "other.md")
	os.WriteFile(linked, []byte("a"), 0644)

	changes := make(chan change, 8)
	w, err := notefile.New(func(id, content string) {
		changes <- change{id, content}
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.Watch("w1", linked)
	os.WriteFile(other, []byte("b"), 0644)

	select {
	case c := <-changes:
		t.Errorf("unexpected change for unlinked file: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	os.WriteFile(path, []byte("a"), 0644)

	w, err := notefile.New(nil, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.Watch("w1", path)
	if w.Watched() != 1 {
		t.Fatalf("expected 1 watched file, got %d", w.Watched())
	}
	// relinking replaces the previous file
	w.Watch("w1", filepath.Join(dir, "b.md"))
	if w.Watched() != 1 {
		t.Fatalf("expected relink to keep 1 watched file, got %d", w.Watched())
	}
	w.Unwatch("w1")
	if w.Watched() != 0 {
		t.Errorf("expected 0 watched files, got %d", w.Watched())
	}
}

func TestEnsure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")

	path, err := notefile.Ensure(dir, "w1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "w1.md" {
		t.Errorf("unexpected path %s", path)
	}
	// existing content is left alone
	os.WriteFile(path, []byte("edited"), 0644)
	if _, err := notefile.Ensure(dir, "w1", "hello"); err != nil {
		t.Fatal(err)
	}
	got, _ := notefile.Read(path)
	if got != "edited" {
		t.Errorf("Ensure overwrote file: %q", got)
	}
}

func TestWatcher_Retain(t *testing.T) {
	dir := t.TempDir()
	w, err := notefile.New(nil, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, id := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, id+".md")
		os.WriteFile(path, []byte(id), 0644)
		if err := w.Watch(id, path); err != nil {
			t.Fatal(err)
		}
	}

	w.Retain(map[string]bool{"b": true})
	if w.Watched() != 1 {
		t.Errorf("expected 1 watched file, got %d", w.Watched())
	}
	w.Retain(nil)
	if w.Watched() != 0 {
		t.Errorf("expected nothing watched, got %d", w.Watched())
	}
}
