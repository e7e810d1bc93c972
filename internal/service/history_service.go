package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"organizer/internal/domain"
	"organizer/internal/storage"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// HistoryService records page layouts and walks back and forth through them.
// Only the layout is restored: widgets that still exist keep their current
// settings.
type HistoryService struct {
	store   *storage.LayoutHistoryStore
	widgets *storage.WidgetStore
}

func NewHistoryService(store *storage.LayoutHistoryStore, widgets *storage.WidgetStore) *HistoryService {
	return &HistoryService{store: store, widgets: widgets}
}

// Record stores after as the newest layout of the page. before is stored
// first as the root when the page has no history yet, so the very first
// change can be undone.
func (s *HistoryService) Record(pageID, label string, before, after []domain.Widget) error {
	parentID := ""
	cur, err := s.store.Current(pageID)
	switch {
	case err == nil:
		parentID = cur.ID
	case errors.Is(err, domain.ErrNotFound):
		root, err := s.push(pageID, "", "initial", before)
		if err != nil {
			return err
		}
		parentID = root.ID
	default:
		return err
	}
	_, err = s.push(pageID, parentID, label, after)
	return err
}

func (s *HistoryService) push(pageID, parentID, label string, widgets []domain.Widget) (*storage.LayoutNode, error) {
	if widgets == nil {
		widgets = []domain.Widget{}
	}
	snapshot, err := json.Marshal(widgets)
	if err != nil {
		return nil, fmt.Errorf("encode layout snapshot: %w", err)
	}
	return s.store.PushNode(pageID, uuid.New().String(), parentID, label, string(snapshot))
}

// Undo restores the previous layout of the page.
func (s *HistoryService) Undo(pageID string) ([]domain.Widget, error) {
	cur, err := s.store.Current(pageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNothingToUndo
	}
	if err != nil {
		return nil, err
	}
	if cur.ParentID == nil {
		return nil, ErrNothingToUndo
	}
	parent, err := s.store.GetNode(*cur.ParentID)
	if err != nil {
		return nil, err
	}
	return s.restore(pageID, parent)
}

// Redo re-applies the most recent layout recorded after the current one.
func (s *HistoryService) Redo(pageID string) ([]domain.Widget, error) {
	cur, err := s.store.Current(pageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNothingToRedo
	}
	if err != nil {
		return nil, err
	}
	child, err := s.store.LatestChild(cur.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNothingToRedo
	}
	if err != nil {
		return nil, err
	}
	return s.restore(pageID, child)
}

// Tree returns the full history of a page, nil when empty.
func (s *HistoryService) Tree(pageID string) (*storage.LayoutTree, error) {
	return s.store.LoadTree(pageID)
}

func (s *HistoryService) restore(pageID string, node *storage.LayoutNode) ([]domain.Widget, error) {
	var snapshot []domain.Widget
	if err := json.Unmarshal([]byte(node.SnapshotJSON), &snapshot); err != nil {
		return nil, fmt.Errorf("decode layout snapshot %s: %w", node.ID, err)
	}

	current, err := s.widgets.ListWidgets(pageID)
	if err != nil {
		return nil, err
	}
	live := make(map[string]domain.Widget, len(current))
	for _, w := range current {
		live[w.ID] = w
	}
	for i, w := range snapshot {
		if cw, ok := live[w.ID]; ok {
			snapshot[i].Settings = cw.Settings
			snapshot[i].FilePath = cw.FilePath
		}
	}

	if err := s.widgets.ReplacePageWidgets(pageID, snapshot); err != nil {
		return nil, fmt.Errorf("restore layout: %w", err)
	}
	if err := s.store.GoTo(pageID, node.ID); err != nil {
		return nil, fmt.Errorf("move history position: %w", err)
	}
	return s.widgets.ListWidgets(pageID)
}
