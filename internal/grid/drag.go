package grid

import "fmt"

// DragState is either idle or dragging.
type DragState int

const (
	DragIdle DragState = iota
	DragDragging
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragDragging:
		return "dragging"
	default:
		return fmt.Sprintf("DragState(%d)", int(s))
	}
}

// DragSession tracks one pointer drag of a widget. It never mutates the
// placements it was started with; the caller applies the result of Drop.
type DragSession struct {
	state    DragState
	cfg      Config
	placed   []Placement
	widgetID string
	origin   Rect
	preview  Rect
	valid    bool
}

// BeginDrag grabs widgetID. The preview starts at the widget's current rect.
func BeginDrag(placed []Placement, widgetID string, cfg Config) (*DragSession, error) {
	i := indexOf(placed, widgetID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	snapshot := make([]Placement, len(placed))
	copy(snapshot, placed)
	return &DragSession{
		state:    DragDragging,
		cfg:      cfg,
		placed:   snapshot,
		widgetID: widgetID,
		origin:   placed[i].Rect,
		preview:  placed[i].Rect,
	}, nil
}

// State returns the session state.
func (d *DragSession) State() DragState { return d.state }

// WidgetID returns the dragged widget.
func (d *DragSession) WidgetID() string { return d.widgetID }

// Preview returns the last accepted preview rect and whether the pointer
// currently sits over a valid drop target.
func (d *DragSession) Preview() (Rect, bool) { return d.preview, d.valid }

// Over recomputes the preview for a pointer position. The candidate origin
// is clamped so the whole widget stays on the grid; the preview only moves
// when the candidate can be placed.
func (d *DragSession) Over(pointer, gridOrigin Point, cellSize, gap float64) (Rect, bool) {
	if d.state != DragDragging {
		return d.preview, false
	}
	cell := DragPosition(pointer, gridOrigin, cellSize, gap, d.cfg)
	candidate := d.origin.Size().At(cell.X, cell.Y)
	if clamped, err := Clamp(candidate, d.cfg); err == nil {
		candidate = clamped
	}
	if CanPlace(d.placed, candidate, d.cfg, d.widgetID) {
		d.preview = candidate
		d.valid = true
	} else {
		d.valid = false
	}
	return d.preview, d.valid
}

// Drop ends the drag. It returns the new placement when the last preview was
// valid and differs from the starting rect.
func (d *DragSession) Drop() (Placement, bool) {
	if d.state != DragDragging {
		return Placement{}, false
	}
	d.state = DragIdle
	if !d.valid || d.preview == d.origin {
		return Placement{}, false
	}
	return Placement{ID: d.widgetID, Rect: d.preview}, true
}

// Cancel ends the drag without producing a placement.
func (d *DragSession) Cancel() {
	d.state = DragIdle
	d.valid = false
	d.preview = d.origin
}
