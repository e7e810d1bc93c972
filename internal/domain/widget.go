package domain

import (
	"time"

	"organizer/internal/grid"
)

type WidgetKind string

const (
	WidgetKindWeather  WidgetKind = "weather"
	WidgetKindClock    WidgetKind = "clock"
	WidgetKindNotes    WidgetKind = "notes"
	WidgetKindTodo     WidgetKind = "todo"
	WidgetKindCalendar WidgetKind = "calendar"
	WidgetKindMail     WidgetKind = "mail"
	WidgetKindNews     WidgetKind = "news"
	WidgetKindHabits   WidgetKind = "habits"
	WidgetKindFinance  WidgetKind = "finance"
	WidgetKindMusic    WidgetKind = "music"
	WidgetKindFiles    WidgetKind = "files"
)

// Settings is the widget's opaque configuration bag.
type Settings map[string]any

// Clone returns a shallow copy so template defaults are never shared.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Widget is a widget placed on a page.
// Order is the insertion order on the page and decides collision priority.
type Widget struct {
	ID        string     `json:"id"`
	PageID    string     `json:"pageId"`
	Kind      WidgetKind `json:"type"`
	Rect      grid.Rect  `json:"position"`
	Settings  Settings   `json:"config"`
	FilePath  string     `json:"filePath,omitempty"` // linked markdown file, notes widgets only
	Order     int        `json:"order"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Placement returns the widget as the layout engine sees it.
func (w Widget) Placement() grid.Placement {
	return grid.Placement{ID: w.ID, Rect: w.Rect}
}

// Placements converts widgets to engine placements, keeping order.
func Placements(widgets []Widget) []grid.Placement {
	out := make([]grid.Placement, len(widgets))
	for i, w := range widgets {
		out[i] = w.Placement()
	}
	return out
}

type WidgetStore interface {
	CreateWidget(w *Widget) error
	GetWidget(id string) (*Widget, error)
	ListWidgets(pageID string) ([]Widget, error)
	UpdateWidget(w *Widget) error
	UpdateWidgetRects(pageID string, placements []grid.Placement) error
	DeleteWidget(id string) error
	DeleteWidgetsByPage(pageID string) error
	ReplacePageWidgets(pageID string, widgets []Widget) error
}
