// Package grid places dashboard widgets on a bounded cell grid.
//
// All functions are pure: they read the placements they are given and return
// new values. Callers own persistence and must write the result back themselves.
//
// Ordering matters in one place: ResolveCollisions relocates colliding widgets
// in the order they appear in the input slice, which for a page is the order
// the widgets were added. Two calls with the same input always produce the
// same output.
package grid

import (
	"fmt"
	"math"
	"sort"
)

// Placement is a widget id with its rect.
type Placement struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// FindFreeSlot returns the first origin, scanning rows top to bottom and
// columns left to right, where a widget of the given size overlaps nothing.
// The second result is false when no such origin exists.
func FindFreeSlot(placed []Placement, size Size, cfg Config) (Rect, bool) {
	return findFreeSlot(placed, size, cfg, -1)
}

// findFreeSlot ignores placed[skip] (skip < 0 ignores nothing).
func findFreeSlot(placed []Placement, size Size, cfg Config, skip int) (Rect, bool) {
	for y := 0; y <= cfg.Rows-size.H; y++ {
		for x := 0; x <= cfg.Cols-size.W; x++ {
			candidate := size.At(x, y)
			if !collides(placed, candidate, skip) {
				return candidate, true
			}
		}
	}
	return Rect{}, false
}

// CanPlace reports whether r is inside the grid and overlaps no placement
// other than the one identified by excludeID. An empty excludeID excludes
// nothing.
func CanPlace(placed []Placement, r Rect, cfg Config, excludeID string) bool {
	if r.W < 1 || r.H < 1 || !cfg.Contains(r) {
		return false
	}
	skip := -1
	if excludeID != "" {
		skip = indexOf(placed, excludeID)
	}
	return !collides(placed, r, skip)
}

// PlaceNew picks an origin for a new widget. When the grid is full it returns
// the origin (0,0) together with ErrNoFreeSlot; callers may accept that rect
// as a degraded, overlapping placement.
func PlaceNew(placed []Placement, size Size, cfg Config) (Rect, error) {
	if !cfg.Fits(size) {
		return Rect{}, fmt.Errorf("%w: %dx%d on %dx%d grid", ErrInvalidSize, size.W, size.H, cfg.Cols, cfg.Rows)
	}
	if r, ok := FindFreeSlot(placed, size, cfg); ok {
		return r, nil
	}
	return size.At(0, 0), ErrNoFreeSlot
}

// ResolveCollisions applies newRect to the widget resizedID and relocates
// every other widget that now overlaps it.
//
// newRect is clamped into the grid first; a size that cannot fit is rejected
// with ErrInvalidSize. Colliding widgets are handled one at a time in input
// order. Each is moved to the first free slot computed against the resized
// rect, the rects already relocated, and the current rects of all remaining
// widgets. A widget that finds no slot is parked at (0, Rows), below the
// visible grid.
//
// The result holds only the changed placements: the resized widget first,
// then each relocated widget in input order.
func ResolveCollisions(placed []Placement, resizedID string, newRect Rect, cfg Config) ([]Placement, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	idx := indexOf(placed, resizedID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, resizedID)
	}
	newRect, err := Clamp(newRect, cfg)
	if err != nil {
		return nil, err
	}

	current := make([]Placement, len(placed))
	copy(current, placed)
	current[idx].Rect = newRect

	changes := []Placement{{ID: resizedID, Rect: newRect}}
	for i := range current {
		if i == idx || !current[i].Rect.Overlaps(newRect) {
			continue
		}
		size := current[i].Rect.Size()
		r, ok := findFreeSlot(current, size, cfg, i)
		if !ok {
			r = size.At(0, cfg.Rows)
		}
		current[i].Rect = r
		changes = append(changes, Placement{ID: current[i].ID, Rect: r})
	}
	return changes, nil
}

// Apply returns a copy of placed with the given changes merged in by id.
// Changes for unknown ids are ignored.
func Apply(placed []Placement, changes []Placement) []Placement {
	out := make([]Placement, len(placed))
	copy(out, placed)
	for _, c := range changes {
		if i := indexOf(out, c.ID); i >= 0 {
			out[i].Rect = c.Rect
		}
	}
	return out
}

// Compact moves every widget straight up as far as it can go without
// overlapping a widget above it. Widgets are processed top to bottom, then
// left to right, then in input order. The result keeps the input order.
func Compact(placed []Placement, cfg Config) []Placement {
	order := make([]int, len(placed))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := placed[order[a]].Rect, placed[order[b]].Rect
		if ra.Y != rb.Y {
			return ra.Y < rb.Y
		}
		return ra.X < rb.X
	})

	out := make([]Placement, len(placed))
	copy(out, placed)
	settled := make([]Placement, 0, len(placed))
	for _, i := range order {
		r := out[i].Rect
		for r.Y > 0 {
			up := r
			up.Y--
			if collides(settled, up, -1) {
				break
			}
			r = up
		}
		out[i].Rect = r
		settled = append(settled, out[i])
	}
	return out
}

// Point is a pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell is a grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DragPosition maps a pointer position to the grid cell under it.
// origin is the pixel position of the grid's top-left corner; each cell
// occupies cellSize+gap pixels. The result is clamped to the grid.
func DragPosition(pointer, origin Point, cellSize, gap float64, cfg Config) Cell {
	step := cellSize + gap
	if step <= 0 {
		return Cell{}
	}
	x := int(math.Floor((pointer.X - origin.X) / step))
	y := int(math.Floor((pointer.Y - origin.Y) / step))
	return Cell{
		X: clampInt(x, 0, cfg.Cols-1),
		Y: clampInt(y, 0, cfg.Rows-1),
	}
}

func collides(placed []Placement, r Rect, skip int) bool {
	for i, p := range placed {
		if i == skip {
			continue
		}
		if p.Rect.Overlaps(r) {
			return true
		}
	}
	return false
}

func indexOf(placed []Placement, id string) int {
	for i, p := range placed {
		if p.ID == id {
			return i
		}
	}
	return -1
}
