package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"organizer/internal/domain"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Page Service — widget pages and the main page flag
// ─────────────────────────────────────────────────────────────

// PageService manages widget pages. Exactly one page is the main page as
// soon as any page exists.
type PageService struct {
	pages    *storage.PageStore
	widgets  *storage.WidgetStore
	defaults domain.GridConfig
	emitter  EventEmitter
}

// NewPageService creates a PageService. defaults seeds the grid of new pages.
func NewPageService(pages *storage.PageStore, widgets *storage.WidgetStore, defaults domain.GridConfig, emitter EventEmitter) *PageService {
	return &PageService{pages: pages, widgets: widgets, defaults: defaults, emitter: emitter}
}

// CreatePage adds a page. The first page becomes the main page.
func (s *PageService) CreatePage(ctx context.Context, name, description string) (*domain.WidgetPage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create page: name is required")
	}
	existing, err := s.pages.ListPages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	p := &domain.WidgetPage{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		IsMain:      len(existing) == 0,
		Order:       len(existing),
		Grid:        s.defaults,
	}
	if err := s.pages.CreatePage(p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.emitPages(ctx)
	return p, nil
}

// EnsureDefaultPage creates a main page when the store is empty.
func (s *PageService) EnsureDefaultPage(ctx context.Context) (*domain.WidgetPage, error) {
	pages, err := s.pages.ListPages()
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		for i := range pages {
			if pages[i].IsMain {
				return &pages[i], nil
			}
		}
		// a crash between delete and reassignment can leave no main page
		if err := s.pages.SetMainPage(pages[0].ID); err != nil {
			return nil, err
		}
		pages[0].IsMain = true
		return &pages[0], nil
	}
	return s.CreatePage(ctx, "Main Dashboard", "Your main widget dashboard")
}

func (s *PageService) GetPage(id string) (*domain.WidgetPage, error) {
	return s.pages.GetPage(id)
}

func (s *PageService) ListPages() ([]domain.WidgetPage, error) {
	return s.pages.ListPages()
}

// MainPage returns the page flagged as main.
func (s *PageService) MainPage() (*domain.WidgetPage, error) {
	pages, err := s.pages.ListPages()
	if err != nil {
		return nil, err
	}
	for i := range pages {
		if pages[i].IsMain {
			return &pages[i], nil
		}
	}
	return nil, fmt.Errorf("main page: %w", domain.ErrNotFound)
}

// PageState returns a page with its widgets in insertion order.
func (s *PageService) PageState(id string) (*domain.PageState, error) {
	p, err := s.pages.GetPage(id)
	if err != nil {
		return nil, err
	}
	widgets, err := s.widgets.ListWidgets(id)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	if widgets == nil {
		widgets = []domain.Widget{}
	}
	return &domain.PageState{Page: *p, Widgets: widgets}, nil
}

// UpdatePage renames or re-describes a page. Empty name keeps the old one.
func (s *PageService) UpdatePage(ctx context.Context, id, name, description string) (*domain.WidgetPage, error) {
	p, err := s.pages.GetPage(id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	p.Description = description
	if err := s.pages.UpdatePage(p); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	s.emitPages(ctx)
	return p, nil
}

// SetMainPage makes id the only main page.
func (s *PageService) SetMainPage(ctx context.Context, id string) error {
	if err := s.pages.SetMainPage(id); err != nil {
		return err
	}
	s.emitPages(ctx)
	return nil
}

// DeletePage removes a page with its widgets and history. When the main page
// is deleted, the oldest remaining page becomes main.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	p, err := s.pages.GetPage(id)
	if err != nil {
		return err
	}
	if err := s.pages.DeletePage(id); err != nil {
		return err
	}

	if p.IsMain {
		remaining, err := s.pages.ListPages()
		if err != nil {
			return fmt.Errorf("list pages: %w", err)
		}
		if oldest := oldestPage(remaining); oldest != nil {
			if err := s.pages.SetMainPage(oldest.ID); err != nil {
				return fmt.Errorf("reassign main page: %w", err)
			}
		}
	}
	s.emitPages(ctx)
	return nil
}

func oldestPage(pages []domain.WidgetPage) *domain.WidgetPage {
	var oldest *domain.WidgetPage
	for i := range pages {
		if oldest == nil || pages[i].CreatedAt.Before(oldest.CreatedAt) {
			oldest = &pages[i]
		}
	}
	return oldest
}

func (s *PageService) emitPages(ctx context.Context) {
	if s.emitter == nil {
		return
	}
	pages, err := s.pages.ListPages()
	if err != nil {
		return
	}
	s.emitter.Emit(ctx, EventPagesChanged, pages)
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
