// File path: internal/mcptools/build.go

// Package mcptools exposes the context pipeline as MCP tools. Each tool
// follows the same pattern: a struct with injected dependencies,
// Definition() returning the schema, and Handle() processing the call.
package mcptools

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nicodishanthj/Trawl_phase1/internal/builder"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/search"
)

// BuildTool handles the context_build MCP tool. Builds run synchronously
// and are serialized so concurrent tool calls cannot interleave writes to
// the same document.
type BuildTool struct {
	mu      sync.Mutex
	search  *search.Orchestrator
	builder *builder.Builder
}

// NewBuildTool creates a BuildTool.
func NewBuildTool(orchestrator *search.Orchestrator, docBuilder *builder.Builder) *BuildTool {
	return &BuildTool{search: orchestrator, builder: docBuilder}
}

// Definition returns the MCP tool definition for context_build.
func (t *BuildTool) Definition() mcp.Tool {
	return mcp.NewTool("context_build",
		mcp.WithDescription(
			"Gather context for a ticket from all configured sources and write "+
				"(or incrementally update) its markdown context document.",
		),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Ticket identifier, e.g. ABC-123"),
		),
		mcp.WithString("source",
			mcp.Description("Primary source override, e.g. jira"),
		),
	)
}

// Handle processes the context_build tool call.
func (t *BuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	if ticketID == "" {
		return mcp.NewToolResultError("'ticket_id' is required"), nil
	}
	sourceOverride := req.GetString("source", "")

	t.mu.Lock()
	defer t.mu.Unlock()

	items, err := t.search.Search(ctx, ticketID, search.Options{SourceOverride: sourceOverride})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context gathering failed: %v", err)), nil
	}
	filename, err := t.builder.Build(ctx, ticketID, items, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("document build failed: %v", err)), nil
	}
	common.Logger().Info("mcp: context built", "ticket", ticketID, "filename", filename, "items", len(items))
	return mcp.NewToolResultText(fmt.Sprintf("Context document written: %s (%d items gathered)", filename, len(items))), nil
}
