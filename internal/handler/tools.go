// Package handler exposes read-only views of the request store as MCP tools,
// so an operator can query requests from an MCP-capable assistant.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/okservice/repairdesk/internal/db"
)

const defaultListLimit = 20

// Store is the read side of the request store.
type Store interface {
	ListAll(ctx context.Context, order ...db.Order) ([]db.Request, error)
	SearchByName(ctx context.Context, fragment string) ([]db.Request, error)
	Count(ctx context.Context) (int64, error)
}

type Tools struct {
	store Store
	loc   *time.Location
}

func NewTools(store Store, loc *time.Location) *Tools {
	if loc == nil {
		loc = time.UTC
	}
	return &Tools{store: store, loc: loc}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"repairdesk",
		version,
		server.WithToolCapabilities(false),
	)
	t.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_requests",
		mcp.WithDescription("List the most recent repair requests, newest first."),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of requests to return (default %d, 0 for all)", defaultListLimit)),
		),
	), t.ListRequests)

	s.AddTool(mcp.NewTool("search_requests",
		mcp.WithDescription("Find repair requests whose customer name contains the given text, ignoring case."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Part of the customer name"),
		),
	), t.SearchRequests)

	s.AddTool(mcp.NewTool("count_requests",
		mcp.WithDescription("Count stored repair requests."),
	), t.CountRequests)
}

func (t *Tools) ListRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultListLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	requests, err := t.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}
	return mcp.NewToolResultText(t.render(requests, "No requests yet.")), nil
}

func (t *Tools) SearchRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	requests, err := t.store.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search requests: %w", err)
	}
	return mcp.NewToolResultText(t.render(requests, "Nothing found.")), nil
}

func (t *Tools) CountRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := t.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
}

func (t *Tools) render(requests []db.Request, empty string) string {
	if len(requests) == 0 {
		return empty
	}
	blocks := make([]string, 0, len(requests))
	for _, r := range requests {
		problem := r.Problem
		if problem == "" {
			problem = "-"
		}
		blocks = append(blocks, fmt.Sprintf("#%d (%s, %s)\nName: %s\nPhone: %s\nProblem: %s",
			r.ID, r.Source, r.CreatedAt.In(t.loc).Format("2006-01-02 15:04"), r.Name, r.Phone, problem))
	}
	return strings.Join(blocks, "\n\n")
}
