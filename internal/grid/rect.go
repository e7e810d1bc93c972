package grid

import (
	"errors"
	"fmt"
)

// Engine errors.
var (
	ErrInvalidSize    = errors.New("widget size exceeds grid bounds")
	ErrOutOfBounds    = errors.New("origin outside grid bounds")
	ErrNoFreeSlot     = errors.New("no free slot for widget")
	ErrOccupied       = errors.New("target cells are occupied")
	ErrWidgetNotFound = errors.New("widget not found in layout")
	ErrInvalidConfig  = errors.New("invalid grid config")
)

// Rect is an axis-aligned box in grid cells.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Size is the w×h part of a Rect.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Size returns the rect's dimensions.
func (r Rect) Size() Size { return Size{W: r.W, H: r.H} }

// At returns a rect of size s with its origin at (x, y).
func (s Size) At(x, y int) Rect { return Rect{X: x, Y: y, W: s.W, H: s.H} }

// Overlaps reports whether a and b share at least one cell.
// Touching edges do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.X+r.W <= o.X ||
		o.X+o.W <= r.X ||
		r.Y+r.H <= o.Y ||
		o.Y+o.H <= r.Y)
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%d y:%d w:%d h:%d}", r.X, r.Y, r.W, r.H)
}

// Config bounds the coordinate space [0,Cols) × [0,Rows).
// Gap is only used when translating pixels to cells.
type Config struct {
	Cols    int  `json:"cols"`
	Rows    int  `json:"rows"`
	Gap     int  `json:"gap"`
	Compact bool `json:"compact"`
}

// Validate rejects grids without at least one cell.
func (c Config) Validate() error {
	if c.Cols < 1 || c.Rows < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidConfig, c.Cols, c.Rows)
	}
	if c.Gap < 0 {
		return fmt.Errorf("%w: negative gap %d", ErrInvalidConfig, c.Gap)
	}
	return nil
}

// Contains reports whether r lies fully inside the grid.
func (c Config) Contains(r Rect) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.W <= c.Cols && r.Y+r.H <= c.Rows
}

// Fits reports whether a widget of size s can exist on this grid at all.
func (c Config) Fits(s Size) bool {
	return s.W >= 1 && s.H >= 1 && s.W <= c.Cols && s.H <= c.Rows
}

// Check classifies r without modifying it: ErrInvalidSize when the size can
// never fit, ErrOutOfBounds when only the origin needs clamping.
func (c Config) Check(r Rect) error {
	if !c.Fits(r.Size()) {
		return fmt.Errorf("%w: %dx%d on %dx%d grid", ErrInvalidSize, r.W, r.H, c.Cols, c.Rows)
	}
	if !c.Contains(r) {
		return fmt.Errorf("%w: %s on %dx%d grid", ErrOutOfBounds, r, c.Cols, c.Rows)
	}
	return nil
}

// Overflows reports whether r was parked below the visible grid by the
// no-free-slot fallback.
func (c Config) Overflows(r Rect) bool {
	return r.Y+r.H > c.Rows
}

// Clamp pulls r back inside the grid by reducing (or raising) its origin.
// The size is never changed; sizes that cannot fit are rejected.
func Clamp(r Rect, cfg Config) (Rect, error) {
	if !cfg.Fits(r.Size()) {
		return r, fmt.Errorf("%w: %dx%d on %dx%d grid", ErrInvalidSize, r.W, r.H, cfg.Cols, cfg.Rows)
	}
	r.X = clampInt(r.X, 0, cfg.Cols-r.W)
	r.Y = clampInt(r.Y, 0, cfg.Rows-r.H)
	return r, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
