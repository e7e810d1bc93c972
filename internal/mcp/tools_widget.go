package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"organizer/internal/domain"
	"organizer/internal/grid"
	"organizer/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerWidgetTools() {
	// ── list_widget_types ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_widget_types",
		mcp.WithDescription("List the widget types that can be added, with default, min and max sizes in grid cells"),
	), s.handleListWidgetTypes)

	// ── list_widgets ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_widgets",
		mcp.WithDescription("List the widgets on a page in insertion order, optionally filtered by type"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Filter by widget type (optional)")),
	), s.handleListWidgets)

	// ── add_widget ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_widget",
		mcp.WithDescription("Add a widget to a page. Without x/y it is placed in the first free slot, scanning rows top to bottom."),
		mcp.WithString("type", mcp.Description("Widget type: weather, clock, notes, todo"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("Column of the top-left cell (optional, requires y)")),
		mcp.WithNumber("y", mcp.Description("Row of the top-left cell (optional, requires x)")),
		mcp.WithNumber("w", mcp.Description("Width in cells (optional, template default)")),
		mcp.WithNumber("h", mcp.Description("Height in cells (optional, template default)")),
		mcp.WithObject("config", mcp.Description("Widget settings merged over the template defaults (optional)")),
	), s.handleAddWidget)

	// ── move_widget ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_widget",
		mcp.WithDescription("Move a widget. The position is clamped into the grid; occupied targets are rejected."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New column"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New row"), mcp.Required()),
	), s.handleMoveWidget)

	// ── resize_widget ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_widget",
		mcp.WithDescription("Resize a widget to w×h cells or to a preset. Overlapped widgets are moved to free slots."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithNumber("w", mcp.Description("New width in cells")),
		mcp.WithNumber("h", mcp.Description("New height in cells")),
		mcp.WithString("preset",
			mcp.Description("Size preset instead of w/h"),
			mcp.Enum(string(domain.SizeSmall), string(domain.SizeMedium), string(domain.SizeLarge)),
		),
	), s.handleResizeWidget)

	// ── update_widget_settings ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_widget_settings",
		mcp.WithDescription("Merge settings into a widget's config. A null value removes the key."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithObject("config", mcp.Description("Settings to merge"), mcp.Required()),
		mcp.WithBoolean("replace", mcp.Description("Replace the whole config instead of merging")),
	), s.handleUpdateWidgetSettings)

	// ── remove_widget (destructive) ────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_widget",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a widget from its page. Requires user approval."),
		mcp.WithString("widgetId", mcp.Description("Widget ID to remove"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveWidget)
}

// widgetSummary is the compact form returned to agents.
type widgetSummary struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	W        int             `json:"w"`
	H        int             `json:"h"`
	Config   domain.Settings `json:"config,omitempty"`
	FilePath string          `json:"filePath,omitempty"`
}

func summarizeWidget(w domain.Widget) widgetSummary {
	return widgetSummary{
		ID:       w.ID,
		Type:     string(w.Kind),
		X:        w.Rect.X,
		Y:        w.Rect.Y,
		W:        w.Rect.W,
		H:        w.Rect.H,
		Config:   w.Settings,
		FilePath: w.FilePath,
	}
}

func (s *Server) handleListWidgetTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(domain.Templates())
}

func (s *Server) handleListWidgets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	widgets, err := s.widgets.ListWidgets(pageID)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}

	filter, _ := args["type"].(string)
	out := []widgetSummary{}
	for _, w := range widgets {
		if filter != "" && string(w.Kind) != filter {
			continue
		}
		out = append(out, summarizeWidget(w))
	}
	return jsonResult(out)
}

func (s *Server) handleAddWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	settings, err := settingsArg(args, "config")
	if err != nil {
		return nil, err
	}
	in := service.AddWidgetInput{PageID: pageID, Kind: domain.WidgetKind(kind), Settings: settings}

	x, hasX, err := intArg(args, "x")
	if err != nil {
		return nil, err
	}
	y, hasY, err := intArg(args, "y")
	if err != nil {
		return nil, err
	}
	if hasX != hasY {
		return nil, fmt.Errorf("x and y must be given together")
	}
	if hasX {
		in.Position = &grid.Cell{X: x, Y: y}
	}

	w, hasW, err := intArg(args, "w")
	if err != nil {
		return nil, err
	}
	h, hasH, err := intArg(args, "h")
	if err != nil {
		return nil, err
	}
	if hasW || hasH {
		tmpl, ok := domain.TemplateFor(in.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: %q", service.ErrUnknownKind, kind)
		}
		size := tmpl.DefaultSize
		if hasW {
			size.W = w
		}
		if hasH {
			size.H = h
		}
		in.Size = &size
	}

	widget, err := s.widgets.AddWidget(ctx, in)
	if errors.Is(err, grid.ErrNoFreeSlot) && widget != nil {
		return jsonResult(map[string]any{
			"widget":  summarizeWidget(*widget),
			"warning": "page is full; the widget was placed at the origin and overlaps others",
		})
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeWidget(*widget))
}

func (s *Server) handleMoveWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	x, hasX, err := intArg(args, "x")
	if err != nil {
		return nil, err
	}
	y, hasY, err := intArg(args, "y")
	if err != nil {
		return nil, err
	}
	if !hasX || !hasY {
		return nil, fmt.Errorf("x and y are required")
	}

	w, err := s.widgets.MoveWidget(ctx, id, x, y)
	if errors.Is(err, grid.ErrOccupied) {
		return textResult(fmt.Sprintf("Cannot move: %v. Use find_free_slot or check_placement first.", err)), nil
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeWidget(*w))
}

func (s *Server) handleResizeWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}

	var res *service.ResizeResult
	if preset, _ := args["preset"].(string); preset != "" {
		res, err = s.widgets.ResizePreset(ctx, id, domain.SizePreset(preset))
	} else {
		w, hasW, werr := intArg(args, "w")
		h, hasH, herr := intArg(args, "h")
		if err := errors.Join(werr, herr); err != nil {
			return nil, err
		}
		if !hasW || !hasH {
			return nil, fmt.Errorf("w and h, or preset, are required")
		}
		res, err = s.widgets.ResizeWidget(ctx, id, grid.Size{W: w, H: h})
	}
	if err != nil {
		return nil, err
	}

	moved := make([]string, 0, len(res.Moved))
	for _, m := range res.Moved {
		moved = append(moved, fmt.Sprintf("%s → %s", m.ID, m.Rect))
	}
	return jsonResult(map[string]any{
		"widget": summarizeWidget(res.Widget),
		"moved":  moved,
	})
}

func (s *Server) handleUpdateWidgetSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "widgetId")
	if err != nil {
		return nil, err
	}
	patch, err := settingsArg(args, "config")
	if err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, fmt.Errorf("config is required")
	}
	replace, _ := args["replace"].(bool)

	w, err := s.widgets.UpdateSettings(ctx, id, patch, replace)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeWidget(*w))
}

func (s *Server) handleRemoveWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "widgetId")
	if err != nil {
		return nil, err
	}
	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, err
	}

	// metadata lets the frontend highlight the widget
	meta := fmt.Sprintf(`{"pageId":%q,"widgetIds":[%q]}`, w.PageID, w.ID)
	approved, err := s.approval.Request(ctx, "remove_widget",
		fmt.Sprintf("Remove %s widget at %s", w.Kind, w.Rect), meta)
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.widgets.RemoveWidget(ctx, id); err != nil {
		return nil, fmt.Errorf("remove widget: %w", err)
	}
	return textResult(fmt.Sprintf("Widget %s removed", id)), nil
}
