package app

import (
	"fmt"

	"organizer/internal/domain"
	"organizer/internal/grid"
)

// ============================================================
// Pointer drag
// ============================================================

// DragPreview is where the dragged widget would land.
type DragPreview struct {
	Rect  grid.Rect `json:"rect"`
	Valid bool      `json:"valid"`
}

// BeginDrag grabs a widget. Any drag already in progress is cancelled.
func (a *App) BeginDrag(widgetID string) (*DragPreview, error) {
	w, err := a.svc.widgets.GetWidget(widgetID)
	if err != nil {
		return nil, err
	}
	page, err := a.svc.pages.GetPage(w.PageID)
	if err != nil {
		return nil, err
	}
	widgets, err := a.svc.widgets.ListWidgets(page.ID)
	if err != nil {
		return nil, err
	}
	session, err := grid.BeginDrag(domain.Placements(widgets), widgetID, page.Grid.Engine())
	if err != nil {
		return nil, err
	}

	a.dragMu.Lock()
	defer a.dragMu.Unlock()
	if a.drag != nil {
		a.drag.Cancel()
	}
	a.drag = session
	a.dragPage = page
	r, ok := session.Preview()
	return &DragPreview{Rect: r, Valid: ok}, nil
}

// DragOver maps the pointer, in window pixels, to a cell. originX/originY is
// the top-left corner of the grid element.
func (a *App) DragOver(pointerX, pointerY, originX, originY float64) (*DragPreview, error) {
	a.dragMu.Lock()
	defer a.dragMu.Unlock()
	if a.drag == nil {
		return nil, fmt.Errorf("no drag in progress")
	}
	r, ok := a.drag.Over(
		grid.Point{X: pointerX, Y: pointerY},
		grid.Point{X: originX, Y: originY},
		a.cfg.CellSize, float64(a.dragPage.Grid.Gap),
	)
	return &DragPreview{Rect: r, Valid: ok}, nil
}

// Drop ends the drag and moves the widget to the last valid preview.
// Returns nil when the widget stays where it was.
func (a *App) Drop() (*domain.Widget, error) {
	a.dragMu.Lock()
	session := a.drag
	a.drag, a.dragPage = nil, nil
	a.dragMu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("no drag in progress")
	}

	p, moved := session.Drop()
	if !moved {
		return nil, nil
	}
	return a.svc.widgets.MoveWidget(a.ctx, p.ID, p.Rect.X, p.Rect.Y)
}

func (a *App) CancelDrag() {
	a.dragMu.Lock()
	defer a.dragMu.Unlock()
	if a.drag != nil {
		a.drag.Cancel()
	}
	a.drag, a.dragPage = nil, nil
}

// cancelDragOn drops a drag whose page is about to disappear.
func (a *App) cancelDragOn(pageID string) {
	a.dragMu.Lock()
	defer a.dragMu.Unlock()
	if a.dragPage != nil && a.dragPage.ID == pageID {
		a.drag.Cancel()
		a.drag, a.dragPage = nil, nil
	}
}
