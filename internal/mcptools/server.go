// File path: internal/mcptools/server.go
package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/nicodishanthj/Trawl_phase1/internal/builder"
	"github.com/nicodishanthj/Trawl_phase1/internal/search"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// NewServer assembles the MCP server with every context tool registered.
func NewServer(st *store.Store, orchestrator *search.Orchestrator, docBuilder *builder.Builder, outputDir string) *server.MCPServer {
	s := server.NewMCPServer(
		"trawl",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	buildTool := NewBuildTool(orchestrator, docBuilder)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	getTool := NewGetTool(st, outputDir)
	s.AddTool(getTool.Definition(), getTool.Handle)

	searchTool := NewSearchTool(st)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	listTool := NewListTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	return s
}
