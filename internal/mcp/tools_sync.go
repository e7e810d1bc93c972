package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSyncTools() {
	// ── list_sync_targets ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_sync_targets",
		mcp.WithDescription("List the databases page layouts can be mirrored to"),
	), s.handleListSyncTargets)

	// ── sync_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("sync_page",
		mcp.WithDescription("Push a page layout to a sync target, or pull the mirrored copy back. A pull replaces the page layout and can be undone with undo_layout."),
		mcp.WithString("target", mcp.Description("Sync target ID or name"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("direction",
			mcp.Description("push (default) or pull"),
			mcp.Enum("push", "pull"),
		),
	), s.handleSyncPage)
}

func (s *Server) handleListSyncTargets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targets, err := s.mirrors.ListTargets()
	if err != nil {
		return nil, fmt.Errorf("list sync targets: %w", err)
	}
	return jsonResult(targets)
}

func (s *Server) handleSyncPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ref, err := requireString(args, "target")
	if err != nil {
		return nil, err
	}
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	target, err := s.mirrors.ResolveTarget(ref)
	if err != nil {
		return nil, fmt.Errorf("sync target %q: %w", ref, err)
	}

	switch dir := req.GetString("direction", "push"); dir {
	case "push":
		res, err := s.mirrors.PushPage(ctx, target.ID, pageID)
		if err != nil {
			return nil, err
		}
		return jsonResult(res)
	case "pull":
		res, err := s.mirrors.PullPage(ctx, target.ID, pageID)
		if err != nil {
			return nil, err
		}
		return jsonResult(res)
	default:
		return nil, fmt.Errorf("direction must be push or pull, got %q", dir)
	}
}
