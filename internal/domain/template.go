package domain

import "organizer/internal/grid"

type WidgetCategory string

const (
	CategoryProductivity  WidgetCategory = "productivity"
	CategoryCommunication WidgetCategory = "communication"
	CategoryEntertainment WidgetCategory = "entertainment"
	CategoryUtilities     WidgetCategory = "utilities"
	CategoryHealth        WidgetCategory = "health"
	CategoryFinance       WidgetCategory = "finance"
	CategorySocial        WidgetCategory = "social"
)

// WidgetTemplate describes how a widget kind is created and resized.
// A nil MaxSize means the grid is the only limit.
type WidgetTemplate struct {
	Kind            WidgetKind     `json:"type"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Icon            string         `json:"icon"`
	Category        WidgetCategory `json:"category"`
	DefaultSize     grid.Size      `json:"defaultSize"`
	MinSize         grid.Size      `json:"minSize"`
	MaxSize         *grid.Size     `json:"maxSize,omitempty"`
	Resizable       bool           `json:"resizable"`
	Configurable    bool           `json:"configurable"`
	DefaultSettings Settings       `json:"defaultConfig"`
}

// Allows reports whether s is within the template's min/max size.
func (t WidgetTemplate) Allows(s grid.Size) bool {
	if s.W < t.MinSize.W || s.H < t.MinSize.H {
		return false
	}
	if t.MaxSize != nil && (s.W > t.MaxSize.W || s.H > t.MaxSize.H) {
		return false
	}
	return true
}

// SizePreset is one of the fixed sizes offered by the widget toolbar.
type SizePreset string

const (
	SizeSmall  SizePreset = "small"
	SizeMedium SizePreset = "medium"
	SizeLarge  SizePreset = "large"
)

// Size returns the grid size for the preset.
func (p SizePreset) Size() (grid.Size, bool) {
	switch p {
	case SizeSmall:
		return grid.Size{W: 1, H: 1}, true
	case SizeMedium:
		return grid.Size{W: 3, H: 1}, true
	case SizeLarge:
		return grid.Size{W: 3, H: 3}, true
	}
	return grid.Size{}, false
}

func size(w, h int) *grid.Size { return &grid.Size{W: w, H: h} }

var templates = []WidgetTemplate{
	{
		Kind:         WidgetKindWeather,
		Name:         "Weather",
		Description:  "Local forecast in several sizes",
		Icon:         "🌤️",
		Category:     CategoryUtilities,
		DefaultSize:  grid.Size{W: 3, H: 1},
		MinSize:      grid.Size{W: 1, H: 1},
		MaxSize:      size(3, 3),
		Resizable:    true,
		Configurable: true,
		DefaultSettings: Settings{
			"location":       "auto",
			"units":          "metric",
			"showForecast":   true,
			"days":           4,
			"updateInterval": 30,
			"showDetails":    true,
		},
	},
	{
		Kind:         WidgetKindClock,
		Name:         "Clock & Date",
		Description:  "Current time and date",
		Icon:         "🕐",
		Category:     CategoryUtilities,
		DefaultSize:  grid.Size{W: 2, H: 1},
		MinSize:      grid.Size{W: 1, H: 1},
		MaxSize:      size(3, 2),
		Resizable:    true,
		Configurable: true,
		DefaultSettings: Settings{
			"showSeconds": true,
			"format24h":   true,
			"showDate":    true,
			"timezone":    "Europe/Berlin",
		},
	},
	{
		Kind:         WidgetKindNotes,
		Name:         "Notes",
		Description:  "Quick notes and reminders",
		Icon:         "📝",
		Category:     CategoryProductivity,
		DefaultSize:  grid.Size{W: 2, H: 2},
		MinSize:      grid.Size{W: 1, H: 1},
		MaxSize:      size(3, 3),
		Resizable:    true,
		Configurable: true,
		DefaultSettings: Settings{
			"title":         "My Notes",
			"allowMarkdown": true,
			"fontSize":      "medium",
		},
	},
	{
		Kind:         WidgetKindTodo,
		Name:         "To-Do List",
		Description:  "Track and tick off tasks",
		Icon:         "✅",
		Category:     CategoryProductivity,
		DefaultSize:  grid.Size{W: 2, H: 3},
		MinSize:      grid.Size{W: 1, H: 2},
		MaxSize:      size(3, 3),
		Resizable:    true,
		Configurable: true,
		DefaultSettings: Settings{
			"title":         "Tasks",
			"showCompleted": false,
			"maxItems":      10,
		},
	},
}

// Templates returns the widget catalog.
func Templates() []WidgetTemplate {
	out := make([]WidgetTemplate, len(templates))
	copy(out, templates)
	return out
}

// TemplateFor looks up the template of a widget kind.
func TemplateFor(kind WidgetKind) (WidgetTemplate, bool) {
	for _, t := range templates {
		if t.Kind == kind {
			return t, true
		}
	}
	return WidgetTemplate{}, false
}
