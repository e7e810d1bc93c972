package grid

import (
	"errors"
	"testing"
)

const (
	testCell = 135.0
	testGap  = 12.0
)

// cellCenter returns a pointer position inside cell (x, y) of a grid at the origin.
func cellCenter(x, y int) Point {
	step := testCell + testGap
	return Point{X: float64(x)*step + 10, Y: float64(y)*step + 10}
}

func TestDragSession_MoveAndDrop(t *testing.T) {
	placed := []Placement{
		{ID: "a", Rect: Rect{0, 0, 3, 1}},
		{ID: "b", Rect: Rect{0, 1, 2, 2}},
	}
	d, err := BeginDrag(placed, "a", dashboard)
	if err != nil {
		t.Fatal(err)
	}
	if d.State() != DragDragging {
		t.Fatalf("state = %s, want dragging", d.State())
	}
	if r, _ := d.Preview(); r != placed[0].Rect {
		t.Errorf("initial preview = %s, want current rect", r)
	}

	r, ok := d.Over(cellCenter(4, 3), Point{}, testCell, testGap)
	if !ok || r != (Rect{4, 3, 3, 1}) {
		t.Fatalf("Over = %s ok=%v, want {4 3 3 1}", r, ok)
	}

	p, ok := d.Drop()
	if !ok {
		t.Fatal("expected a placement on drop")
	}
	if p.ID != "a" || p.Rect != (Rect{4, 3, 3, 1}) {
		t.Errorf("drop = %+v", p)
	}
	if d.State() != DragIdle {
		t.Errorf("state after drop = %s, want idle", d.State())
	}
	if placed[0].Rect != (Rect{0, 0, 3, 1}) {
		t.Error("drag mutated the input placements")
	}
}

func TestDragSession_InvalidTargetKeepsLastPreview(t *testing.T) {
	placed := []Placement{
		{ID: "a", Rect: Rect{0, 0, 1, 1}},
		{ID: "b", Rect: Rect{3, 3, 2, 2}},
	}
	d, _ := BeginDrag(placed, "a", dashboard)

	if _, ok := d.Over(cellCenter(1, 1), Point{}, testCell, testGap); !ok {
		t.Fatal("expected (1,1) to be valid")
	}
	r, ok := d.Over(cellCenter(4, 4), Point{}, testCell, testGap)
	if ok {
		t.Fatal("expected (4,4) to be rejected")
	}
	if r != (Rect{1, 1, 1, 1}) {
		t.Errorf("preview = %s, want last valid {1 1 1 1}", r)
	}
	if _, ok := d.Drop(); ok {
		t.Error("drop over an occupied cell must not produce a placement")
	}
}

func TestDragSession_OutOfBoundsPointerClamps(t *testing.T) {
	placed := []Placement{{ID: "wide", Rect: Rect{0, 0, 3, 3}}}
	d, _ := BeginDrag(placed, "wide", dashboard)

	r, ok := d.Over(Point{X: 99999, Y: 99999}, Point{}, testCell, testGap)
	if !ok {
		t.Fatal("expected clamped preview to be valid")
	}
	if r != (Rect{6, 5, 3, 3}) {
		t.Errorf("preview = %s, want {6 5 3 3}", r)
	}

	r, ok = d.Over(Point{X: -500, Y: -500}, Point{}, testCell, testGap)
	if !ok || r.X < 0 || r.Y < 0 {
		t.Errorf("preview = %s ok=%v, want non-negative origin", r, ok)
	}
}

func TestDragSession_Cancel(t *testing.T) {
	placed := []Placement{{ID: "a", Rect: Rect{2, 2, 1, 1}}}
	d, _ := BeginDrag(placed, "a", dashboard)
	d.Over(cellCenter(5, 5), Point{}, testCell, testGap)
	d.Cancel()

	if d.State() != DragIdle {
		t.Errorf("state = %s, want idle", d.State())
	}
	if r, ok := d.Preview(); ok || r != placed[0].Rect {
		t.Errorf("preview after cancel = %s ok=%v", r, ok)
	}
	if _, ok := d.Drop(); ok {
		t.Error("drop after cancel must not produce a placement")
	}
	if _, ok := d.Over(cellCenter(1, 1), Point{}, testCell, testGap); ok {
		t.Error("Over after cancel must be ignored")
	}
}

func TestDragSession_DropOnStartIsNoop(t *testing.T) {
	placed := []Placement{{ID: "a", Rect: Rect{0, 0, 1, 1}}}
	d, _ := BeginDrag(placed, "a", dashboard)
	d.Over(cellCenter(0, 0), Point{}, testCell, testGap)
	if _, ok := d.Drop(); ok {
		t.Error("dropping on the starting cell should not report a move")
	}
}

func TestBeginDrag_UnknownWidget(t *testing.T) {
	if _, err := BeginDrag(nil, "ghost", dashboard); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("expected ErrWidgetNotFound, got %v", err)
	}
}
