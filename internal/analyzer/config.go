// File path: internal/analyzer/config.go
package analyzer

import (
	"os"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
)

// Config controls epic analysis.
type Config struct {
	// Model is the chat model used for the review and suggestion passes.
	Model string `json:"model,omitempty"`
	// AITimeout bounds each individual completion call.
	AITimeout time.Duration `json:"ai_timeout,omitempty"`
	// DescriptionLimit caps how much of each ticket description is quoted
	// in prompts.
	DescriptionLimit int `json:"description_limit,omitempty"`
}

// DefaultConfig returns the configuration derived from the environment.
func DefaultConfig() Config {
	cfg := Config{Model: os.Getenv("TRAWL_ANALYZER_MODEL")}
	if raw := os.Getenv("TRAWL_ANALYZER_AI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.AITimeout = parsed
		}
	}
	return applyDefaults(cfg)
}

// Merge overlays non-zero fields from override.
func (c Config) Merge(override Config) Config {
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.AITimeout > 0 {
		c.AITimeout = override.AITimeout
	}
	if override.DescriptionLimit > 0 {
		c.DescriptionLimit = override.DescriptionLimit
	}
	return c
}

func applyDefaults(cfg Config) Config {
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 60 * time.Second
	}
	if cfg.DescriptionLimit <= 0 {
		cfg.DescriptionLimit = 500
	}
	return cfg
}
