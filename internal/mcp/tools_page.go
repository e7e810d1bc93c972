package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all widget pages. The main page is flagged with isMain."),
	), s.handleListPages)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new widget page and make it the active page"),
		mcp.WithString("name", mcp.Description("Name of the new page"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Short description (optional)")),
	), s.handleCreatePage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId", mcp.Description("ID of the page to make active"), mcp.Required()),
	), s.handleSetActivePage)

	// ── set_main_page ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_main_page",
		mcp.WithDescription("Make a page the main page shown on startup"),
		mcp.WithString("pageId", mcp.Description("ID of the page"), mcp.Required()),
	), s.handleSetMainPage)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page with all its widgets and layout history. Requires user approval."),
		mcp.WithString("pageId", mcp.Description("ID of the page to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.ListPages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(pages)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	page, err := s.pages.CreatePage(ctx, name, req.GetString("description", ""))
	if err != nil {
		return nil, err
	}
	s.setActivePage(page.ID)
	return jsonResult(page)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := requireString(req.GetArguments(), "pageId")
	if err != nil {
		return nil, err
	}
	page, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", pageID, err)
	}
	s.setActivePage(page.ID)
	return textResult(fmt.Sprintf("Active page set to %s (%s)", page.Name, page.ID)), nil
}

func (s *Server) handleSetMainPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := requireString(req.GetArguments(), "pageId")
	if err != nil {
		return nil, err
	}
	if err := s.pages.SetMainPage(ctx, pageID); err != nil {
		return nil, fmt.Errorf("set main page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s is now the main page", pageID)), nil
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := requireString(req.GetArguments(), "pageId")
	if err != nil {
		return nil, err
	}
	state, err := s.pages.PageState(pageID)
	if err != nil {
		return nil, err
	}

	meta := fmt.Sprintf(`{"pageId":%q}`, pageID)
	approved, err := s.approval.Request(ctx, "delete_page",
		fmt.Sprintf("Delete page %q with %d widgets", state.Page.Name, len(state.Widgets)), meta)
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.pages.DeletePage(ctx, pageID); err != nil {
		return nil, fmt.Errorf("delete page: %w", err)
	}
	s.mu.Lock()
	if s.activePageID == pageID {
		s.activePageID = ""
	}
	s.mu.Unlock()
	if s.settings != nil {
		if id, _ := s.settings.ActivePage(); id == pageID {
			s.settings.SetActivePage("")
		}
	}
	return textResult(fmt.Sprintf("Page %s deleted", pageID)), nil
}
