package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"organizer/internal/domain"
	"organizer/internal/grid"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Widget Service — widget layout on a page
// ─────────────────────────────────────────────────────────────

var (
	ErrUnknownKind       = errors.New("no template for widget type")
	ErrSizeNotAllowed    = errors.New("size outside the widget's allowed range")
	ErrNotResizable      = errors.New("widget cannot be resized")
	ErrUnknownPreset     = errors.New("unknown size preset")
	ErrOverlappingLayout = errors.New("layout has overlapping or out-of-bounds widgets")
)

// WidgetObserver is told after a page's widgets changed and were persisted.
type WidgetObserver interface {
	WidgetsChanged(ctx context.Context, pageID string)
}

// WidgetService applies layout operations through the grid engine and keeps
// the store, the layout history and the frontend in step. Mutations are
// serialised so two callers never resolve collisions against stale layouts.
type WidgetService struct {
	mu        sync.Mutex
	pages     *storage.PageStore
	widgets   *storage.WidgetStore
	history   *HistoryService
	emitter   EventEmitter
	observers []WidgetObserver
}

func NewWidgetService(pages *storage.PageStore, widgets *storage.WidgetStore, history *HistoryService, emitter EventEmitter) *WidgetService {
	return &WidgetService{pages: pages, widgets: widgets, history: history, emitter: emitter}
}

// AddObserver registers o for change notifications. Not safe to call
// concurrently with mutations; wire observers at startup.
func (s *WidgetService) AddObserver(o WidgetObserver) {
	s.observers = append(s.observers, o)
}

func (s *WidgetService) GetWidget(id string) (*domain.Widget, error) {
	return s.widgets.GetWidget(id)
}

func (s *WidgetService) ListWidgets(pageID string) ([]domain.Widget, error) {
	return s.widgets.ListWidgets(pageID)
}

// ── Add ────────────────────────────────────────────────────

// AddWidgetInput describes a new widget. Size and Position are optional;
// the template's default size and the first free slot are used otherwise.
type AddWidgetInput struct {
	PageID   string            `json:"pageId"`
	Kind     domain.WidgetKind `json:"type"`
	Settings domain.Settings   `json:"config"`
	Size     *grid.Size        `json:"size,omitempty"`
	Position *grid.Cell        `json:"position,omitempty"`
}

// AddWidget places a new widget. When the page is full the widget is still
// created at the origin, overlapping, and the error wraps grid.ErrNoFreeSlot
// alongside the returned widget.
func (s *WidgetService) AddWidget(ctx context.Context, in AddWidgetInput) (*domain.Widget, error) {
	s.mu.Lock()
	w, err := s.addLocked(ctx, in)
	s.mu.Unlock()
	if w != nil {
		s.notify(ctx, w.PageID)
	}
	return w, err
}

func (s *WidgetService) addLocked(ctx context.Context, in AddWidgetInput) (*domain.Widget, error) {
	tmpl, ok := domain.TemplateFor(in.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}
	page, before, err := s.load(in.PageID)
	if err != nil {
		return nil, err
	}
	cfg := page.Grid.Engine()

	size := tmpl.DefaultSize
	if in.Size != nil {
		if !tmpl.Allows(*in.Size) {
			return nil, fmt.Errorf("%w: %dx%d for %s", ErrSizeNotAllowed, in.Size.W, in.Size.H, in.Kind)
		}
		size = *in.Size
	}

	var rect grid.Rect
	var placeErr error
	if in.Position != nil {
		rect, err = grid.Clamp(size.At(in.Position.X, in.Position.Y), cfg)
		if err != nil {
			return nil, err
		}
		if !grid.CanPlace(domain.Placements(before), rect, cfg, "") {
			return nil, fmt.Errorf("add %s at %v: %w", in.Kind, rect, grid.ErrOccupied)
		}
	} else {
		rect, placeErr = grid.PlaceNew(domain.Placements(before), size, cfg)
		if placeErr != nil && !errors.Is(placeErr, grid.ErrNoFreeSlot) {
			return nil, placeErr
		}
		if placeErr != nil {
			log.Printf("[widgets] page %s is full, placing %s at %v", page.ID, in.Kind, rect)
		}
	}

	settings := tmpl.DefaultSettings.Clone()
	for k, v := range in.Settings {
		settings[k] = v
	}
	w := &domain.Widget{
		ID:       uuid.New().String(),
		PageID:   page.ID,
		Kind:     in.Kind,
		Rect:     rect,
		Settings: settings,
	}
	if err := s.widgets.CreateWidget(w); err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}

	if err := s.commit(ctx, page, "add "+string(in.Kind), before); err != nil {
		return nil, err
	}
	// compaction may have moved it
	if fresh, err := s.widgets.GetWidget(w.ID); err == nil {
		w = fresh
	}
	return w, placeErr
}

// ── Move ───────────────────────────────────────────────────

// MoveWidget moves a widget's origin to (x, y), clamped into the grid. The
// move is rejected with grid.ErrOccupied when the target overlaps another widget.
func (s *WidgetService) MoveWidget(ctx context.Context, id string, x, y int) (*domain.Widget, error) {
	s.mu.Lock()
	w, changed, err := s.moveLocked(ctx, id, x, y)
	s.mu.Unlock()
	if changed {
		s.notify(ctx, w.PageID)
	}
	return w, err
}

func (s *WidgetService) moveLocked(ctx context.Context, id string, x, y int) (*domain.Widget, bool, error) {
	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, false, err
	}
	page, before, err := s.load(w.PageID)
	if err != nil {
		return nil, false, err
	}
	cfg := page.Grid.Engine()

	target, err := grid.Clamp(w.Rect.Size().At(x, y), cfg)
	if err != nil {
		return nil, false, err
	}
	if target == w.Rect {
		return w, false, nil
	}
	if !grid.CanPlace(domain.Placements(before), target, cfg, w.ID) {
		return nil, false, fmt.Errorf("move %s to %v: %w", w.ID, target, grid.ErrOccupied)
	}

	if err := s.widgets.UpdateWidgetRects(page.ID, []grid.Placement{{ID: w.ID, Rect: target}}); err != nil {
		return nil, false, err
	}
	if err := s.commit(ctx, page, "move widget", before); err != nil {
		return nil, false, err
	}
	w, err = s.widgets.GetWidget(id)
	return w, err == nil, err
}

// ── Resize ─────────────────────────────────────────────────

// ResizeResult reports the resized widget and every widget that had to move.
type ResizeResult struct {
	Widget domain.Widget    `json:"widget"`
	Moved  []grid.Placement `json:"moved"`
}

// ResizeWidget changes a widget's size in place. Overlapped widgets are
// relocated to free slots in insertion order.
func (s *WidgetService) ResizeWidget(ctx context.Context, id string, size grid.Size) (*ResizeResult, error) {
	s.mu.Lock()
	res, err := s.resizeLocked(ctx, id, size, false)
	s.mu.Unlock()
	if err == nil {
		s.notify(ctx, res.Widget.PageID)
	}
	return res, err
}

// ResizePreset resizes to one of the toolbar presets. The preset is first
// fitted into the widget template's min/max range.
func (s *WidgetService) ResizePreset(ctx context.Context, id string, preset domain.SizePreset) (*ResizeResult, error) {
	size, ok := preset.Size()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	s.mu.Lock()
	res, err := s.resizeLocked(ctx, id, size, true)
	s.mu.Unlock()
	if err == nil {
		s.notify(ctx, res.Widget.PageID)
	}
	return res, err
}

func (s *WidgetService) resizeLocked(ctx context.Context, id string, size grid.Size, fitTemplate bool) (*ResizeResult, error) {
	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, err
	}
	if tmpl, ok := domain.TemplateFor(w.Kind); ok {
		if !tmpl.Resizable {
			return nil, fmt.Errorf("%w: %s", ErrNotResizable, w.Kind)
		}
		if fitTemplate {
			size = fitToTemplate(size, tmpl)
		}
		if !tmpl.Allows(size) {
			return nil, fmt.Errorf("%w: %dx%d for %s", ErrSizeNotAllowed, size.W, size.H, w.Kind)
		}
	}
	page, before, err := s.load(w.PageID)
	if err != nil {
		return nil, err
	}

	changes, err := grid.ResolveCollisions(domain.Placements(before), w.ID, size.At(w.Rect.X, w.Rect.Y), page.Grid.Engine())
	if err != nil {
		return nil, err
	}
	if err := s.widgets.UpdateWidgetRects(page.ID, changes); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, page, "resize widget", before); err != nil {
		return nil, err
	}

	fresh, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, err
	}
	return &ResizeResult{Widget: *fresh, Moved: changes[1:]}, nil
}

func fitToTemplate(s grid.Size, t domain.WidgetTemplate) grid.Size {
	s.W = max(s.W, t.MinSize.W)
	s.H = max(s.H, t.MinSize.H)
	if t.MaxSize != nil {
		s.W = min(s.W, t.MaxSize.W)
		s.H = min(s.H, t.MaxSize.H)
	}
	return s
}

// ── Settings / remove ──────────────────────────────────────

// UpdateSettings merges patch into the widget settings, or replaces them
// when replace is set. A nil value in patch deletes the key.
func (s *WidgetService) UpdateSettings(ctx context.Context, id string, patch domain.Settings, replace bool) (*domain.Widget, error) {
	s.mu.Lock()
	w, err := s.widgets.GetWidget(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if replace || w.Settings == nil {
		w.Settings = domain.Settings{}
	}
	for k, v := range patch {
		if v == nil {
			delete(w.Settings, k)
			continue
		}
		w.Settings[k] = v
	}
	err = s.widgets.UpdateWidget(w)
	if err == nil {
		s.emitState(ctx, w.PageID)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("update widget settings: %w", err)
	}
	s.notify(ctx, w.PageID)
	return w, nil
}

// RemoveWidget deletes a widget from its page.
func (s *WidgetService) RemoveWidget(ctx context.Context, id string) error {
	s.mu.Lock()
	pageID, err := s.removeLocked(ctx, id)
	s.mu.Unlock()
	if err == nil {
		s.notify(ctx, pageID)
	}
	return err
}

func (s *WidgetService) removeLocked(ctx context.Context, id string) (string, error) {
	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return "", err
	}
	page, before, err := s.load(w.PageID)
	if err != nil {
		return "", err
	}
	if err := s.widgets.DeleteWidget(id); err != nil {
		return "", err
	}
	return page.ID, s.commit(ctx, page, "remove "+string(w.Kind), before)
}

// ── Page-wide operations ───────────────────────────────────

// Compact pulls every widget of the page upward regardless of the page's
// compact flag and returns the widgets that moved.
func (s *WidgetService) Compact(ctx context.Context, pageID string) ([]grid.Placement, error) {
	s.mu.Lock()
	moved, err := s.compactLocked(ctx, pageID)
	s.mu.Unlock()
	if err == nil && len(moved) > 0 {
		s.notify(ctx, pageID)
	}
	return moved, err
}

func (s *WidgetService) compactLocked(ctx context.Context, pageID string) ([]grid.Placement, error) {
	page, before, err := s.load(pageID)
	if err != nil {
		return nil, err
	}
	moved := compactionChanges(before, page.Grid.Engine())
	if len(moved) == 0 {
		return nil, nil
	}
	if err := s.widgets.UpdateWidgetRects(pageID, moved); err != nil {
		return nil, err
	}
	return moved, s.commit(ctx, page, "compact", before)
}

// ReplaceLayout swaps the page's widgets for widgets, e.g. a pulled mirror
// copy. The layout must fit the page grid without overlaps.
func (s *WidgetService) ReplaceLayout(ctx context.Context, pageID string, widgets []domain.Widget, label string) (*domain.PageState, error) {
	s.mu.Lock()
	state, err := s.replaceLocked(ctx, pageID, widgets, label)
	s.mu.Unlock()
	if err == nil {
		s.notify(ctx, pageID)
	}
	return state, err
}

func (s *WidgetService) replaceLocked(ctx context.Context, pageID string, widgets []domain.Widget, label string) (*domain.PageState, error) {
	page, before, err := s.load(pageID)
	if err != nil {
		return nil, err
	}
	cfg := page.Grid.Engine()
	var placed []grid.Placement
	for _, w := range widgets {
		if !grid.CanPlace(placed, w.Rect, cfg, "") {
			return nil, fmt.Errorf("widget %s at %v: %w", w.ID, w.Rect, ErrOverlappingLayout)
		}
		placed = append(placed, w.Placement())
	}
	if err := s.widgets.ReplacePageWidgets(pageID, widgets); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, page, label, before); err != nil {
		return nil, err
	}
	return s.state(page)
}

// Undo restores the page's previous layout.
func (s *WidgetService) Undo(ctx context.Context, pageID string) (*domain.PageState, error) {
	return s.travel(ctx, pageID, s.history.Undo)
}

// Redo re-applies the layout undone last.
func (s *WidgetService) Redo(ctx context.Context, pageID string) (*domain.PageState, error) {
	return s.travel(ctx, pageID, s.history.Redo)
}

func (s *WidgetService) travel(ctx context.Context, pageID string, step func(string) ([]domain.Widget, error)) (*domain.PageState, error) {
	s.mu.Lock()
	page, err := s.pages.GetPage(pageID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if _, err := step(pageID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	state, err := s.state(page)
	if err == nil {
		s.emitter.Emit(ctx, EventWidgetsChanged, state)
	}
	s.mu.Unlock()
	if err == nil {
		s.notify(ctx, pageID)
	}
	return state, err
}

// ── Grid ───────────────────────────────────────────────────

// UpdateGridConfig replaces the page grid. Widgets are not moved: the change
// is refused when a widget that fits the current grid would fall outside the
// new one. Widgets already parked below the grid do not block it.
func (s *WidgetService) UpdateGridConfig(ctx context.Context, pageID string, cfg domain.GridConfig) (*domain.WidgetPage, error) {
	next := cfg.Engine()
	if err := next.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	page, widgets, err := s.load(pageID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	current := page.Grid.Engine()
	for _, w := range widgets {
		if current.Contains(w.Rect) && !next.Contains(w.Rect) {
			s.mu.Unlock()
			return nil, fmt.Errorf("widget %s at %v: %w", w.ID, w.Rect, grid.ErrOutOfBounds)
		}
	}
	page.Grid = cfg
	if err := s.pages.UpdatePage(page); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("update page: %w", err)
	}
	s.emitState(ctx, pageID)
	s.mu.Unlock()

	s.notify(ctx, pageID)
	return page, nil
}

// ── Queries ────────────────────────────────────────────────

// FindFreeSlot returns where a widget of size would be placed on the page.
// Sizes that can never fit the grid fail with grid.ErrInvalidSize.
func (s *WidgetService) FindFreeSlot(pageID string, size grid.Size) (grid.Rect, bool, error) {
	page, widgets, err := s.load(pageID)
	if err != nil {
		return grid.Rect{}, false, err
	}
	if cfg := page.Grid.Engine(); !cfg.Fits(size) {
		return grid.Rect{}, false, fmt.Errorf("%w: %dx%d on %dx%d grid", grid.ErrInvalidSize, size.W, size.H, cfg.Cols, cfg.Rows)
	}
	r, ok := grid.FindFreeSlot(domain.Placements(widgets), size, page.Grid.Engine())
	return r, ok, nil
}

// CheckPlacement reports whether r is inside the page grid and free,
// ignoring excludeID.
func (s *WidgetService) CheckPlacement(pageID string, r grid.Rect, excludeID string) (bool, error) {
	page, widgets, err := s.load(pageID)
	if err != nil {
		return false, err
	}
	return grid.CanPlace(domain.Placements(widgets), r, page.Grid.Engine(), excludeID), nil
}

// ── helpers ────────────────────────────────────────────────

func (s *WidgetService) load(pageID string) (*domain.WidgetPage, []domain.Widget, error) {
	page, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, nil, err
	}
	widgets, err := s.widgets.ListWidgets(pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("list widgets: %w", err)
	}
	return page, widgets, nil
}

func (s *WidgetService) state(page *domain.WidgetPage) (*domain.PageState, error) {
	widgets, err := s.widgets.ListWidgets(page.ID)
	if err != nil {
		return nil, err
	}
	if widgets == nil {
		widgets = []domain.Widget{}
	}
	return &domain.PageState{Page: *page, Widgets: widgets}, nil
}

// commit runs after a layout write: auto-compaction, history, frontend event.
func (s *WidgetService) commit(ctx context.Context, page *domain.WidgetPage, label string, before []domain.Widget) error {
	after, err := s.widgets.ListWidgets(page.ID)
	if err != nil {
		return err
	}
	if page.Grid.Compact {
		if moved := compactionChanges(after, page.Grid.Engine()); len(moved) > 0 {
			if err := s.widgets.UpdateWidgetRects(page.ID, moved); err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			if after, err = s.widgets.ListWidgets(page.ID); err != nil {
				return err
			}
		}
	}

	if s.history != nil {
		if err := s.history.Record(page.ID, label, before, after); err != nil {
			log.Printf("[widgets] record history for page %s: %v", page.ID, err)
		}
	}

	if after == nil {
		after = []domain.Widget{}
	}
	s.emitter.Emit(ctx, EventWidgetsChanged, &domain.PageState{Page: *page, Widgets: after})
	return nil
}

func (s *WidgetService) emitState(ctx context.Context, pageID string) {
	page, err := s.pages.GetPage(pageID)
	if err != nil {
		return
	}
	if state, err := s.state(page); err == nil {
		s.emitter.Emit(ctx, EventWidgetsChanged, state)
	}
}

func (s *WidgetService) notify(ctx context.Context, pageID string) {
	for _, o := range s.observers {
		o.WidgetsChanged(ctx, pageID)
	}
}

func compactionChanges(widgets []domain.Widget, cfg grid.Config) []grid.Placement {
	compacted := grid.Compact(domain.Placements(widgets), cfg)
	var moved []grid.Placement
	for i, p := range compacted {
		if p.Rect != widgets[i].Rect {
			moved = append(moved, p)
		}
	}
	return moved
}
