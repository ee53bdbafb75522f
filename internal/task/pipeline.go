// File path: internal/task/pipeline.go
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/builder"
	"github.com/nicodishanthj/Trawl_phase1/internal/search"
)

// BuildPipeline is the production Executor: a search pass followed by a
// document build.
type BuildPipeline struct {
	search    *search.Orchestrator
	builder   *builder.Builder
	outputDir string
}

// NewBuildPipeline wires the orchestrator and builder into an Executor.
// An empty outputDir defers to the builder's configured directory.
func NewBuildPipeline(orchestrator *search.Orchestrator, docBuilder *builder.Builder, outputDir string) *BuildPipeline {
	return &BuildPipeline{search: orchestrator, builder: docBuilder, outputDir: outputDir}
}

func (p *BuildPipeline) Execute(ctx context.Context, ticketID string, since *time.Time) (string, error) {
	items, err := p.search.Search(ctx, ticketID, search.Options{Since: since})
	if err != nil {
		return "", fmt.Errorf("gather context for %s: %w", ticketID, err)
	}
	return p.builder.Build(ctx, ticketID, items, p.outputDir)
}
