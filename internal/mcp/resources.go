package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pagesURI      = "organizer://pages"
	pageURIPrefix = "organizer://page/"
	widgetsSuffix = "/widgets"
)

func (s *Server) registerResources() {
	// ── organizer://pages ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── organizer://page/{pageId}/widgets ──────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}"+widgetsSuffix,
			"Widgets on a Page",
		),
		s.handlePageWidgetsResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.pages.ListPages()
	if err != nil {
		return nil, err
	}

	type pageSummary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		IsMain bool   `json:"isMain"`
		Cols   int    `json:"cols"`
		Rows   int    `json:"rows"`
	}
	summaries := make([]pageSummary, len(pages))
	for i, p := range pages {
		summaries[i] = pageSummary{ID: p.ID, Name: p.Name, IsMain: p.IsMain, Cols: p.Grid.Cols, Rows: p.Grid.Rows}
	}
	return jsonResource(pagesURI, summaries)
}

func (s *Server) handlePageWidgetsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := pageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	widgets, err := s.widgets.ListWidgets(pageID)
	if err != nil {
		return nil, err
	}
	summaries := make([]widgetSummary, len(widgets))
	for i, w := range widgets {
		summaries[i] = summarizeWidget(w)
	}
	return jsonResource(uri, summaries)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// pageIDFromURI extracts the page ID from "organizer://page/{id}/widgets".
func pageIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, widgetsSuffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
