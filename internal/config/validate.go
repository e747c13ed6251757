package config

import (
	"fmt"
	"time"
)

// Validate checks cfg for internally-consistent values. Duration strings are
// parsed eagerly so bad config fails at load time, not mid-sync.
func Validate(cfg *Config) error {
	if cfg.Sync.PollInterval != "" {
		if _, err := time.ParseDuration(cfg.Sync.PollInterval); err != nil {
			return fmt.Errorf("sync.poll_interval: %w", err)
		}
	}

	if cfg.Sync.Debounce != "" {
		if _, err := time.ParseDuration(cfg.Sync.Debounce); err != nil {
			return fmt.Errorf("sync.debounce: %w", err)
		}
	}

	if cfg.Network.ConnectTimeout != "" {
		if _, err := time.ParseDuration(cfg.Network.ConnectTimeout); err != nil {
			return fmt.Errorf("network.connect_timeout: %w", err)
		}
	}

	if cfg.Network.RequestTimeout != "" {
		if _, err := time.ParseDuration(cfg.Network.RequestTimeout); err != nil {
			return fmt.Errorf("network.request_timeout: %w", err)
		}
	}

	for name, ref := range cfg.Workspaces {
		if ref.Path == "" {
			return fmt.Errorf("workspace %q: path is required", name)
		}
	}

	switch cfg.Logging.LogFormat {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("logging.log_format: unknown format %q (want auto, text, or json)", cfg.Logging.LogFormat)
	}

	return nil
}
