// File path: internal/search/config.go
package search

import (
	"os"
	"strconv"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/llm"
)

// Config controls the search protocol.
type Config struct {
	// PrimarySource names the provider queried for the ticket itself.
	PrimarySource string `json:"primary_source,omitempty"`
	// Model is the chat model used for keyword extraction and relevance
	// filtering.
	Model string `json:"model,omitempty"`
	// AITimeout bounds each individual completion call.
	AITimeout time.Duration `json:"ai_timeout,omitempty"`
	// RelevanceThreshold is the result count above which the relevance
	// filter runs.
	RelevanceThreshold int `json:"relevance_threshold,omitempty"`
	// MaxPromptItems caps how many item summaries are shown to the model.
	MaxPromptItems int `json:"max_prompt_items,omitempty"`
	// MinSelected is the selection size below which tier-A items are
	// force-included.
	MinSelected int `json:"min_selected,omitempty"`
	// SecondaryKeywords caps the extracted keywords used as secondary
	// search queries.
	SecondaryKeywords int `json:"secondary_keywords,omitempty"`
	// PromptContentLimit caps how much item content is quoted in prompts.
	PromptContentLimit int `json:"prompt_content_limit,omitempty"`
}

// DefaultConfig returns the configuration derived from the environment.
func DefaultConfig() Config {
	cfg := Config{
		PrimarySource: os.Getenv("TRAWL_PRIMARY_SOURCE"),
		Model:         os.Getenv("TRAWL_SEARCH_MODEL"),
	}
	if raw := os.Getenv("TRAWL_SEARCH_AI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.AITimeout = parsed
		}
	}
	if raw := os.Getenv("TRAWL_SEARCH_RELEVANCE_THRESHOLD"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.RelevanceThreshold = parsed
		}
	}
	return applyDefaults(cfg)
}

// Merge overlays non-zero fields from override.
func (c Config) Merge(override Config) Config {
	if override.PrimarySource != "" {
		c.PrimarySource = override.PrimarySource
	}
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.AITimeout > 0 {
		c.AITimeout = override.AITimeout
	}
	if override.RelevanceThreshold > 0 {
		c.RelevanceThreshold = override.RelevanceThreshold
	}
	if override.MaxPromptItems > 0 {
		c.MaxPromptItems = override.MaxPromptItems
	}
	if override.MinSelected > 0 {
		c.MinSelected = override.MinSelected
	}
	if override.SecondaryKeywords > 0 {
		c.SecondaryKeywords = override.SecondaryKeywords
	}
	if override.PromptContentLimit > 0 {
		c.PromptContentLimit = override.PromptContentLimit
	}
	return c
}

func applyDefaults(cfg Config) Config {
	if cfg.PrimarySource == "" {
		cfg.PrimarySource = "jira"
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 30 * time.Second
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = 10
	}
	if cfg.MaxPromptItems <= 0 {
		cfg.MaxPromptItems = 50
	}
	if cfg.MinSelected <= 0 {
		cfg.MinSelected = 5
	}
	if cfg.SecondaryKeywords <= 0 {
		cfg.SecondaryKeywords = 3
	}
	if cfg.PromptContentLimit <= 0 {
		cfg.PromptContentLimit = 2000
	}
	return cfg
}
