package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("plan_dashboard",
		mcp.WithPromptDescription("Guide through laying out a widget dashboard page"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the dashboard is for, e.g. 'morning overview'"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("pageName",
			mcp.ArgumentDescription("Name of the page to create (optional)"),
		),
	), s.handlePlanDashboardPrompt)
}

func (s *Server) handlePlanDashboardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	pageName := req.Params.Arguments["pageName"]
	if pageName == "" {
		pageName = goal
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Plan a dashboard for: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Lay out a widget dashboard for "%s". Follow these steps:

1. Call list_widget_types to see the available widgets and their size limits
2. Create a page named "%s" with create_page (it becomes the active page)
3. Add the most important widget first with add_widget; widgets added earlier keep
   their place when later ones are resized
4. Before choosing an explicit position, call find_free_slot or check_placement;
   move_widget refuses occupied cells
5. Use resize_widget with a preset (small, medium, large) to adjust sizes;
   neighbours that get overlapped are moved to the next free slot
6. Finish with compact_page to close gaps and list_widgets to review the result

If a step goes wrong, undo_layout restores the previous layout.`, goal, pageName),
				},
			},
		},
	}, nil
}
