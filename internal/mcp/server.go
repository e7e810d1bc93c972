package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"organizer/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the organizer.
// It exposes tools, resources, and prompts so AI agents can lay out widget pages.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	// Services (injected from app layer)
	pages    *service.PageService
	widgets  *service.WidgetService
	mirrors  *service.MirrorService
	settings *service.AppSettingsService

	// Active page context (set by set_active_page tool)
	mu           sync.Mutex
	activePageID string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter         EventEmitter
	Pages           *service.PageService
	Widgets         *service.WidgetService
	Mirrors         *service.MirrorService
	Settings        *service.AppSettingsService // optional; shares the active page with the window
	ApprovalDB      *sql.DB                     // When set, use SQLite-based approval (standalone mode)
	ApprovalTimeout time.Duration
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter, deps.ApprovalTimeout)
	if deps.ApprovalDB != nil {
		approval.SetDB(deps.ApprovalDB)
	}
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		pages:    deps.Pages,
		widgets:  deps.Widgets,
		mirrors:  deps.Mirrors,
		settings: deps.Settings,
	}

	s.mcp = server.NewMCPServer(
		"organizer-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerWidgetTools()
	s.registerLayoutTools()
	if s.mirrors != nil {
		s.registerSyncTools()
	}
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolvePageID picks the page a tool works on: the pageId argument, then
// the active page, then the page last shown in the window, then the main page.
func (s *Server) resolvePageID(args map[string]any) (string, error) {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid, nil
	}
	s.mu.Lock()
	active := s.activePageID
	s.mu.Unlock()
	if active != "" {
		return active, nil
	}
	if s.settings != nil {
		if id, err := s.settings.ActivePage(); err == nil && id != "" {
			return id, nil
		}
	}
	main, err := s.pages.MainPage()
	if err != nil {
		return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
	}
	return main.ID, nil
}

func (s *Server) setActivePage(pageID string) {
	s.mu.Lock()
	s.activePageID = pageID
	s.mu.Unlock()
	if s.settings != nil {
		if err := s.settings.SetActivePage(pageID); err != nil {
			log.Printf("[MCP] save active page: %v", err)
		}
	}
}
