package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"organizer/internal/config"
	mcpserver "organizer/internal/mcp"
)

// noopEmitter drops events in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the organizer as a standalone MCP server on stdin/stdout.
// Approvals go through the shared database and are answered by the
// desktop app.
func ServeMCP(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := openServices(cfg, noopEmitter{})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	// Scheduled jobs stay with the desktop app; auto-sync still follows
	// edits made here.
	if _, err := svc.pages.EnsureDefaultPage(ctx); err != nil {
		log.Printf("[MCP] %v", err)
	}
	defer svc.close(context.Background())

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:         noopEmitter{},
		Pages:           svc.pages,
		Widgets:         svc.widgets,
		Mirrors:         svc.mirrors,
		Settings:        svc.settings,
		ApprovalDB:      svc.db.Conn(),
		ApprovalTimeout: cfg.ApprovalTimeout,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}
}
