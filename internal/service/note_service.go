package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"organizer/internal/domain"
	"organizer/internal/notefile"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Note Service — notes widgets backed by markdown files
// ─────────────────────────────────────────────────────────────

// ContentEvent carries new content of a linked notes file.
type ContentEvent struct {
	WidgetID string `json:"widgetId"`
	PageID   string `json:"pageId"`
	Content  string `json:"content"`
}

// NoteService links notes widgets to files and copies external edits into
// the widget's "content" setting.
type NoteService struct {
	widgets  *storage.WidgetStore
	notesDir string
	emitter  EventEmitter
	watcher  *notefile.Watcher
	ctx      context.Context
}

func NewNoteService(widgets *storage.WidgetStore, notesDir string, emitter EventEmitter) *NoteService {
	return &NoteService{widgets: widgets, notesDir: notesDir, emitter: emitter}
}

// Start watches every linked file. Stop must be called on shutdown.
func (s *NoteService) Start(ctx context.Context) error {
	w, err := notefile.New(func(widgetID, content string) {
		if err := s.applyContent(widgetID, content); err != nil {
			log.Printf("notefile: update widget %s: %v", widgetID, err)
		}
	}, 300*time.Millisecond)
	if err != nil {
		return err
	}
	s.ctx = ctx
	s.watcher = w

	linked, err := s.widgets.ListLinkedWidgets()
	if err != nil {
		return fmt.Errorf("list linked widgets: %w", err)
	}
	for _, lw := range linked {
		if err := w.Watch(lw.ID, lw.FilePath); err != nil {
			log.Printf("notefile: watch %s: %v", lw.FilePath, err)
		}
	}
	return nil
}

// LinkFile links a notes widget to path. An empty path creates
// <notesDir>/<widgetID>.md seeded with the widget's current content.
func (s *NoteService) LinkFile(ctx context.Context, widgetID, path string) (*domain.Widget, error) {
	w, err := s.widgets.GetWidget(widgetID)
	if err != nil {
		return nil, err
	}
	if w.Kind != domain.WidgetKindNotes {
		return nil, fmt.Errorf("widget %s is a %s widget, only notes can link files", widgetID, w.Kind)
	}
	if path == "" {
		seed, _ := w.Settings["content"].(string)
		if path, err = notefile.Ensure(s.notesDir, widgetID, seed); err != nil {
			return nil, err
		}
	}
	content, err := notefile.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read notes file: %w", err)
	}

	w.FilePath = path
	if w.Settings == nil {
		w.Settings = domain.Settings{}
	}
	w.Settings["content"] = content
	if err := s.widgets.UpdateWidget(w); err != nil {
		return nil, err
	}
	if s.watcher != nil {
		if err := s.watcher.Watch(widgetID, path); err != nil {
			return nil, err
		}
	}
	s.emitter.Emit(ctx, EventContentUpdated, ContentEvent{WidgetID: w.ID, PageID: w.PageID, Content: content})
	return w, nil
}

// UnlinkFile detaches the file; the last content stays in the settings.
func (s *NoteService) UnlinkFile(widgetID string) error {
	w, err := s.widgets.GetWidget(widgetID)
	if err != nil {
		return err
	}
	if s.watcher != nil {
		s.watcher.Unwatch(widgetID)
	}
	w.FilePath = ""
	return s.widgets.UpdateWidget(w)
}

func (s *NoteService) applyContent(widgetID, content string) error {
	w, err := s.widgets.GetWidget(widgetID)
	if err != nil {
		return err
	}
	if w.Settings == nil {
		w.Settings = domain.Settings{}
	}
	if cur, _ := w.Settings["content"].(string); cur == content {
		return nil
	}
	w.Settings["content"] = content
	if err := s.widgets.UpdateWidget(w); err != nil {
		return err
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.emitter.Emit(ctx, EventContentUpdated, ContentEvent{WidgetID: w.ID, PageID: w.PageID, Content: content})
	return nil
}

// WidgetsChanged drops watches for widgets that no longer exist.
func (s *NoteService) WidgetsChanged(_ context.Context, _ string) {
	if s.watcher == nil {
		return
	}
	linked, err := s.widgets.ListLinkedWidgets()
	if err != nil {
		return
	}
	keep := make(map[string]bool, len(linked))
	for _, w := range linked {
		keep[w.ID] = true
	}
	s.watcher.Retain(keep)
}

func (s *NoteService) Stop() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
