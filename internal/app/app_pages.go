package app

import (
	"organizer/internal/domain"
	"organizer/internal/storage"
)

// ============================================================
// Pages
// ============================================================

func (a *App) ListPages() ([]domain.WidgetPage, error) {
	return a.svc.pages.ListPages()
}

func (a *App) CreatePage(name, description string) (*domain.WidgetPage, error) {
	return a.svc.pages.CreatePage(a.ctx, name, description)
}

func (a *App) UpdatePage(id, name, description string) (*domain.WidgetPage, error) {
	return a.svc.pages.UpdatePage(a.ctx, id, name, description)
}

// UpdateGridConfig changes a page grid. Fails when a widget would fall outside.
func (a *App) UpdateGridConfig(id string, cfg domain.GridConfig) (*domain.WidgetPage, error) {
	return a.svc.widgets.UpdateGridConfig(a.ctx, id, cfg)
}

func (a *App) SetMainPage(id string) error {
	return a.svc.pages.SetMainPage(a.ctx, id)
}

func (a *App) DeletePage(id string) error {
	a.cancelDragOn(id)
	return a.svc.pages.DeletePage(a.ctx, id)
}

// GetPageState returns the page with its widgets.
func (a *App) GetPageState(pageID string) (*domain.PageState, error) {
	return a.svc.pages.PageState(pageID)
}

// OpenPage records the page on screen so the MCP process and the next
// launch pick it up, and returns its state.
func (a *App) OpenPage(pageID string) (*domain.PageState, error) {
	state, err := a.svc.pages.PageState(pageID)
	if err != nil {
		return nil, err
	}
	if err := a.svc.settings.SetActivePage(pageID); err != nil {
		return nil, err
	}
	if a.watcher != nil {
		a.watcher.SetPage(pageID)
	}
	return state, nil
}

// GetStartPage returns the page shown last, falling back to the main page.
func (a *App) GetStartPage() (*domain.PageState, error) {
	id, err := a.activePageID()
	if err != nil {
		return nil, err
	}
	return a.svc.pages.PageState(id)
}

func (a *App) activePageID() (string, error) {
	if id, err := a.svc.settings.ActivePage(); err == nil && id != "" {
		if _, err := a.svc.pages.GetPage(id); err == nil {
			return id, nil
		}
	}
	main, err := a.svc.pages.MainPage()
	if err != nil {
		return "", err
	}
	return main.ID, nil
}

// ListWidgetTemplates returns the widget catalog for the "add widget" menu.
func (a *App) ListWidgetTemplates() []domain.WidgetTemplate {
	return domain.Templates()
}

// LoadLayoutHistory returns the undo tree of a page.
func (a *App) LoadLayoutHistory(pageID string) (*storage.LayoutTree, error) {
	return a.svc.history.Tree(pageID)
}
