package app

import (
	"errors"

	"organizer/internal/domain"
	"organizer/internal/grid"
	"organizer/internal/service"
)

// ============================================================
// Widgets
// ============================================================

// AddWidgetResult carries the new widget and whether the page was full.
// A full page still gets the widget, overlapping at the origin.
type AddWidgetResult struct {
	Widget   *domain.Widget `json:"widget"`
	Overflow bool           `json:"overflow"`
}

func (a *App) AddWidget(in service.AddWidgetInput) (*AddWidgetResult, error) {
	w, err := a.svc.widgets.AddWidget(a.ctx, in)
	if errors.Is(err, grid.ErrNoFreeSlot) && w != nil {
		return &AddWidgetResult{Widget: w, Overflow: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AddWidgetResult{Widget: w}, nil
}

func (a *App) MoveWidget(widgetID string, x, y int) (*domain.Widget, error) {
	return a.svc.widgets.MoveWidget(a.ctx, widgetID, x, y)
}

func (a *App) ResizeWidget(widgetID string, w, h int) (*service.ResizeResult, error) {
	return a.svc.widgets.ResizeWidget(a.ctx, widgetID, grid.Size{W: w, H: h})
}

// ResizeWidgetPreset applies the toolbar's small, medium or large size.
func (a *App) ResizeWidgetPreset(widgetID string, preset string) (*service.ResizeResult, error) {
	return a.svc.widgets.ResizePreset(a.ctx, widgetID, domain.SizePreset(preset))
}

func (a *App) UpdateWidgetSettings(widgetID string, patch domain.Settings, replace bool) (*domain.Widget, error) {
	return a.svc.widgets.UpdateSettings(a.ctx, widgetID, patch, replace)
}

func (a *App) RemoveWidget(widgetID string) error {
	return a.svc.widgets.RemoveWidget(a.ctx, widgetID)
}

func (a *App) CompactPage(pageID string) ([]grid.Placement, error) {
	return a.svc.widgets.Compact(a.ctx, pageID)
}

func (a *App) UndoLayout(pageID string) (*domain.PageState, error) {
	return a.svc.widgets.Undo(a.ctx, pageID)
}

func (a *App) RedoLayout(pageID string) (*domain.PageState, error) {
	return a.svc.widgets.Redo(a.ctx, pageID)
}

// ============================================================
// Linked notes files
// ============================================================

// LinkNotesFile links a notes widget to path; an empty path creates a file
// in the notes directory.
func (a *App) LinkNotesFile(widgetID, path string) (*domain.Widget, error) {
	return a.svc.notes.LinkFile(a.ctx, widgetID, path)
}

func (a *App) UnlinkNotesFile(widgetID string) error {
	return a.svc.notes.UnlinkFile(widgetID)
}
