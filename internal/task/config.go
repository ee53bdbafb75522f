// File path: internal/task/config.go
package task

import (
	"os"
	"time"
)

// Config controls the task loop.
type Config struct {
	// PollInterval is how often the runner scans for work.
	PollInterval time.Duration `json:"poll_interval,omitempty"`
	// RefreshInterval is the search window used for refreshes with no
	// fetch history.
	RefreshInterval time.Duration `json:"refresh_interval,omitempty"`
	// StalenessThreshold is the document age that triggers an automatic
	// refresh.
	StalenessThreshold time.Duration `json:"staleness_threshold,omitempty"`
}

// DefaultConfig returns the configuration derived from the environment.
func DefaultConfig() Config {
	cfg := Config{}
	if raw := os.Getenv("TRAWL_TASK_POLL_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.PollInterval = parsed
		}
	}
	if raw := os.Getenv("TRAWL_TASK_REFRESH_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.RefreshInterval = parsed
		}
	}
	if raw := os.Getenv("TRAWL_TASK_STALENESS_THRESHOLD"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.StalenessThreshold = parsed
		}
	}
	return applyDefaults(cfg)
}

// Merge overlays non-zero fields from override.
func (c Config) Merge(override Config) Config {
	if override.PollInterval > 0 {
		c.PollInterval = override.PollInterval
	}
	if override.RefreshInterval > 0 {
		c.RefreshInterval = override.RefreshInterval
	}
	if override.StalenessThreshold > 0 {
		c.StalenessThreshold = override.StalenessThreshold
	}
	return c
}

func applyDefaults(cfg Config) Config {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 6 * time.Hour
	}
	if cfg.StalenessThreshold <= 0 {
		cfg.StalenessThreshold = 7 * 24 * time.Hour
	}
	return cfg
}
