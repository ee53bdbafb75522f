// File path: cmd/trawl/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/Trawl_phase1/internal/analyzer"
	"github.com/nicodishanthj/Trawl_phase1/internal/api"
	"github.com/nicodishanthj/Trawl_phase1/internal/builder"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
	"github.com/nicodishanthj/Trawl_phase1/internal/search"
	"github.com/nicodishanthj/Trawl_phase1/internal/source"
	"github.com/nicodishanthj/Trawl_phase1/internal/source/memory"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
	"github.com/nicodishanthj/Trawl_phase1/internal/task"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("trawl: .env file not loaded", "error", err)
	} else {
		logger.Info("trawl: environment loaded from .env")
	}

	addr := flag.String("addr", ":8085", "listen address")
	storePath := flag.String("store", "", "path to the SQLite context database")
	contextDir := flag.String("context-dir", "", "directory where context documents are written")
	primarySource := flag.String("primary-source", "", "name of the primary ticket source")
	seedPath := flag.String("seed", defaultSeedPath(), "path to a JSON seed file of source items")

	flag.Parse()

	logger.Info("trawl: startup initiated", "addr", *addr)

	storeCfg, err := store.LoadConfig()
	if err != nil {
		logger.Error("trawl: store config load failed", "error", err)
		fmt.Println("store config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*storePath); trimmed != "" {
		storeCfg.Path = trimmed
	}
	st, err := store.OpenWithConfig(storeCfg)
	if err != nil {
		logger.Error("trawl: store initialization failed", "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	registry, err := buildRegistry(*seedPath)
	if err != nil {
		logger.Error("trawl: source registry failed", "error", err)
		fmt.Println("source registry error:", err)
		os.Exit(1)
	}
	logger.Info("trawl: sources registered", "sources", registry.Names())

	completer := llm.NewCompleter()
	logger.Info("trawl: completion provider ready", "provider", completer.Name())

	searchCfg := search.DefaultConfig()
	if trimmed := strings.TrimSpace(*primarySource); trimmed != "" {
		searchCfg.PrimarySource = trimmed
	}
	orchestrator := search.New(registry, completer, searchCfg)

	builderCfg := builder.DefaultConfig()
	if trimmed := strings.TrimSpace(*contextDir); trimmed != "" {
		builderCfg.OutputDir = trimmed
	}
	docBuilder := builder.New(st, completer, builderCfg)

	pipeline := task.NewBuildPipeline(orchestrator, docBuilder, "")
	runner := task.NewRunner(st, pipeline, task.DefaultConfig())
	go runner.Run(ctx)

	epicAnalyzer := analyzer.New(completer, analyzer.DefaultConfig())

	server, err := api.NewServer(st, epicAnalyzer, api.Config{OutputDir: builderCfg.OutputDir})
	if err != nil {
		logger.Error("trawl: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("trawl: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("trawl: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("trawl: server stopped", "error", err)
		fmt.Println("server stopped:", err)
		os.Exit(1)
	}
}

// buildRegistry loads seeded in-memory providers when a seed file is
// present, and otherwise registers an empty default source set.
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
