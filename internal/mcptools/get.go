// File path: internal/mcptools/get.go
package mcptools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// GetTool handles the context_get MCP tool.
type GetTool struct {
	store     *store.Store
	outputDir string
}

// NewGetTool creates a GetTool.
func NewGetTool(st *store.Store, outputDir string) *GetTool {
	return &GetTool{store: st, outputDir: outputDir}
}

// Definition returns the MCP tool definition for context_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("context_get",
		mcp.WithDescription(
			"Return the full markdown context document for a ticket, if one has been built.",
		),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Ticket identifier, e.g. ABC-123"),
		),
	)
}

// Handle processes the context_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	if ticketID == "" {
		return mcp.NewToolResultError("'ticket_id' is required"), nil
	}
	record, err := t.store.Document(ctx, ticketID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	if record == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No context document for %s. Run context_build first.", strings.ToUpper(ticketID))), nil
	}
	raw, err := os.ReadFile(filepath.Join(t.outputDir, record.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText(fmt.Sprintf("Document %s is tracked but its file is missing. Run context_build to regenerate.", record.Filename)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("read document: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
