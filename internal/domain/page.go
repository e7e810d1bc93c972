package domain

import (
	"time"

	"organizer/internal/grid"
)

// Breakpoints are responsive widths in pixels. Stored for the frontend only.
type Breakpoints struct {
	LG int `json:"lg"`
	MD int `json:"md"`
	SM int `json:"sm"`
	XS int `json:"xs"`
}

type GridConfig struct {
	Cols        int         `json:"cols"`
	Rows        int         `json:"rows"`
	Gap         int         `json:"gap"`
	Compact     bool        `json:"compact"`
	Breakpoints Breakpoints `json:"breakpoints"`
}

// DefaultGridConfig is the 9×8 grid every new page starts with.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Cols: 9,
		Rows: 8,
		Gap:  16,
		Breakpoints: Breakpoints{
			LG: 1200,
			MD: 996,
			SM: 768,
			XS: 480,
		},
	}
}

// Engine returns the part of the config the layout engine needs.
func (g GridConfig) Engine() grid.Config {
	return grid.Config{Cols: g.Cols, Rows: g.Rows, Gap: g.Gap, Compact: g.Compact}
}

// WidgetPage is a named grid of widgets. Exactly one page is the main page
// once any page exists.
type WidgetPage struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsMain      bool       `json:"isMain"`
	Order       int        `json:"order"`
	Grid        GridConfig `json:"gridConfig"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PageState is a page together with its widgets, in insertion order.
type PageState struct {
	Page    WidgetPage `json:"page"`
	Widgets []Widget   `json:"widgets"`
}

type PageStore interface {
	CreatePage(p *WidgetPage) error
	GetPage(id string) (*WidgetPage, error)
	ListPages() ([]WidgetPage, error)
	UpdatePage(p *WidgetPage) error
	SetMainPage(id string) error
	DeletePage(id string) error
}
