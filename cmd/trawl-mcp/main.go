// File path: cmd/trawl-mcp/main.go

// trawl-mcp serves the context pipeline over MCP stdio so AI coding tools
// can build and read ticket context documents directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nicodishanthj/Trawl_phase1/internal/builder"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
	"github.com/nicodishanthj/Trawl_phase1/internal/mcptools"
	"github.com/nicodishanthj/Trawl_phase1/internal/search"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
	"github.com/nicodishanthj/Trawl_phase1/internal/source/memory"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("trawl-mcp: .env file not loaded", "error", err)
	}

	storePath := flag.String("store", "", "path to the SQLite context database")
	contextDir := flag.String("context-dir", "", "directory where context documents are written")
	seedPath := flag.String("seed", defaultSeedPath(), "path to a JSON seed file of source items")
	flag.Parse()

	storeCfg, err := store.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "store config error: %v\n", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*storePath); trimmed != "" {
		storeCfg.Path = trimmed
	}
	st, err := store.OpenWithConfig(storeCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	registry, err := buildRegistry(*seedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source registry error: %v\n", err)
		os.Exit(1)
	}

	completer := llm.NewCompleter()

	orchestrator := search.New(registry, completer, search.DefaultConfig())
	builderCfg := builder.DefaultConfig()
	if trimmed := strings.TrimSpace(*contextDir); trimmed != "" {
		builderCfg.OutputDir = trimmed
	}
	docBuilder := builder.New(st, completer, builderCfg)

	s := mcptools.NewServer(st, orchestrator, docBuilder, builderCfg.OutputDir)
	logger.Info("trawl-mcp: serving on stdio", "sources", registry.Names())
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
		os.Exit(1)
	}
}

func buildRegistry(seedPath string) (*source.Registry, error) {
	registry := source.NewRegistry()
	trimmed := strings.TrimSpace(seedPath)
	if trimmed != "" {
		if _, err := os.Stat(trimmed); err == nil {
			providers, err := memory.LoadSeed(trimmed)
			if err != nil {
				return nil, fmt.Errorf("load seed %s: %w", trimmed, err)
			}
			for _, provider := range providers {
				if err := registry.Register(provider); err != nil {
					return nil, err
				}
			}
			return registry, nil
		}
	}
	for _, name := range []string{"jira", "github", "slack"} {
		if err := registry.Register(memory.NewProvider(name)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func defaultSeedPath() string {
	if env := strings.TrimSpace(os.Getenv("TRAWL_SEED_FILE")); env != "" {
		return env
	}
	return filepath.Join("data", "sources.json")
}
