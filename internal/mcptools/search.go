// File path: internal/mcptools/search.go
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// SearchTool handles the context_search MCP tool.
type SearchTool struct {
	store *store.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(st *store.Store) *SearchTool {
	return &SearchTool{store: st}
}

// Definition returns the MCP tool definition for context_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("context_search",
		mcp.WithDescription(
			"Search tracked context documents by ticket id, filename, or keyword.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query matched against ticket ids, filenames, and keywords"),
		),
	)
}

// Handle processes the context_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	records, err := t.store.SearchDocuments(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No context documents match your query."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d context documents:\n\n", len(records))
	for _, record := range records {
		writeRecordLine(&b, record)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeRecordLine(b *strings.Builder, record store.DocumentRecord) {
	keywords := ""
	if len(record.Keywords) > 0 {
		keywords = " | keywords: " + strings.Join(record.Keywords, ", ")
	}
	fmt.Fprintf(b, "- %s (%s) updated %s%s\n",
		record.TicketID, record.Filename, record.LastUpdated.Format("2006-01-02"), keywords)
}
