// File path: internal/mcptools/list.go
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// ListTool handles the context_list MCP tool.
type ListTool struct {
	store *store.Store
}

// NewListTool creates a ListTool.
func NewListTool(st *store.Store) *ListTool {
	return &ListTool{store: st}
}

// Definition returns the MCP tool definition for context_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("context_list",
		mcp.WithDescription("List every tracked context document, most recently updated first."),
	)
}

// Handle processes the context_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.store.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No context documents tracked yet."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d context documents:\n\n", len(records))
	for _, record := range records {
		writeRecordLine(&b, record)
	}
	return mcp.NewToolResultText(b.String()), nil
}
