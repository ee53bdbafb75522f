// File path: internal/builder/config.go
package builder

import (
	"os"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
)

// Config controls document building.
type Config struct {
	// OutputDir is where context documents are written.
	OutputDir string `json:"output_dir,omitempty"`
	// Model is the chat model used for dedup, grouping, and filename
	// keywords.
	Model string `json:"model,omitempty"`
	// AITimeout bounds each individual completion call.
	AITimeout time.Duration `json:"ai_timeout,omitempty"`
	// DedupThreshold is the candidate count above which the semantic
	// dedup pass runs.
	DedupThreshold int `json:"dedup_threshold,omitempty"`
	// GroupThreshold is the item count above which topical grouping is
	// attempted.
	GroupThreshold int `json:"group_threshold,omitempty"`
	// ExistingExcerpt caps how much of the existing document is quoted
	// in the dedup prompt.
	ExistingExcerpt int `json:"existing_excerpt,omitempty"`
}

// DefaultConfig returns the configuration derived from the environment.
func DefaultConfig() Config {
	cfg := Config{
		OutputDir: os.Getenv("TRAWL_CONTEXT_DIR"),
		Model:     os.Getenv("TRAWL_BUILDER_MODEL"),
	}
	if raw := os.Getenv("TRAWL_BUILDER_AI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.AITimeout = parsed
		}
	}
	return applyDefaults(cfg)
}

// Merge overlays non-zero fields from override.
func (c Config) Merge(override Config) Config {
	if override.OutputDir != "" {
		c.OutputDir = override.OutputDir
	}
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.AITimeout > 0 {
		c.AITimeout = override.AITimeout
	}
	if override.DedupThreshold > 0 {
		c.DedupThreshold = override.DedupThreshold
	}
	if override.GroupThreshold > 0 {
		c.GroupThreshold = override.GroupThreshold
	}
	if override.ExistingExcerpt > 0 {
		c.ExistingExcerpt = override.ExistingExcerpt
	}
	return c
}

func applyDefaults(cfg Config) Config {
	if cfg.OutputDir == "" {
		cfg.OutputDir = ".context"
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 30 * time.Second
	}
	if cfg.DedupThreshold <= 0 {
		cfg.DedupThreshold = 3
	}
	if cfg.GroupThreshold <= 0 {
		cfg.GroupThreshold = 3
	}
	if cfg.ExistingExcerpt <= 0 {
		cfg.ExistingExcerpt = 1000
	}
	return cfg
}
