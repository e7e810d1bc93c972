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

func (s *Server) registerLayoutTools() {
	// ── find_free_slot ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("find_free_slot",
		mcp.WithDescription("Find where a widget of w×h cells would be placed on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("w", mcp.Description("Width in cells"), mcp.Required()),
		mcp.WithNumber("h", mcp.Description("Height in cells"), mcp.Required()),
	), s.handleFindFreeSlot)

	// ── check_placement ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("check_placement",
		mcp.WithDescription("Check whether a rect is inside the grid and overlaps no widget"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("Column"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Row"), mcp.Required()),
		mcp.WithNumber("w", mcp.Description("Width in cells"), mcp.Required()),
		mcp.WithNumber("h", mcp.Description("Height in cells"), mcp.Required()),
		mcp.WithString("excludeWidgetId", mcp.Description("Widget to ignore, e.g. the one being moved (optional)")),
	), s.handleCheckPlacement)

	// ── compact_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("compact_page",
		mcp.WithDescription("Pull every widget on a page upward to close vertical gaps"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleCompactPage)

	// ── undo_layout / redo_layout ──────────────────────
	s.mcp.AddTool(mcp.NewTool("undo_layout",
		mcp.WithDescription("Restore the previous layout of a page. Widget settings are kept."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndoLayout)

	s.mcp.AddTool(mcp.NewTool("redo_layout",
		mcp.WithDescription("Re-apply the layout undone last"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedoLayout)
}

func sizeArgs(args map[string]any) (grid.Size, error) {
	w, hasW, werr := intArg(args, "w")
	h, hasH, herr := intArg(args, "h")
	if err := errors.Join(werr, herr); err != nil {
		return grid.Size{}, err
	}
	if !hasW || !hasH {
		return grid.Size{}, fmt.Errorf("w and h are required")
	}
	return grid.Size{W: w, H: h}, nil
}

func (s *Server) handleFindFreeSlot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	size, err := sizeArgs(args)
	if err != nil {
		return nil, err
	}
	r, ok, err := s.widgets.FindFreeSlot(pageID, size)
	if err != nil {
		return nil, err
	}
	if !ok {
		return jsonResult(map[string]any{"found": false})
	}
	return jsonResult(map[string]any{"found": true, "x": r.X, "y": r.Y, "w": r.W, "h": r.H})
}

func (s *Server) handleCheckPlacement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	size, err := sizeArgs(args)
	if err != nil {
		return nil, err
	}
	x, hasX, xerr := intArg(args, "x")
	y, hasY, yerr := intArg(args, "y")
	if err := errors.Join(xerr, yerr); err != nil {
		return nil, err
	}
	if !hasX || !hasY {
		return nil, fmt.Errorf("x and y are required")
	}
	exclude, _ := args["excludeWidgetId"].(string)

	r := size.At(x, y)
	ok, err := s.widgets.CheckPlacement(pageID, r, exclude)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"valid": ok, "rect": r})
}

func (s *Server) handleCompactPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	moved, err := s.widgets.Compact(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("compact page: %w", err)
	}
	if len(moved) == 0 {
		return textResult("Nothing to compact"), nil
	}
	return jsonResult(map[string]any{"moved": moved})
}

func (s *Server) handleUndoLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.travel(ctx, req, s.widgets.Undo)
}

func (s *Server) handleRedoLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.travel(ctx, req, s.widgets.Redo)
}

func (s *Server) travel(ctx context.Context, req mcp.CallToolRequest, step func(context.Context, string) (*domain.PageState, error)) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	state, err := step(ctx, pageID)
	if errors.Is(err, service.ErrNothingToUndo) || errors.Is(err, service.ErrNothingToRedo) {
		return textResult(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]widgetSummary, len(state.Widgets))
	for i, w := range state.Widgets {
		out[i] = summarizeWidget(w)
	}
	return jsonResult(out)
}
