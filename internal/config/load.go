package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the global registry TOML file at path, validates it,
// and returns the resulting Config. A missing file is not an error: it
// returns DefaultConfig() so a fresh install can run `pagesync list` before
// any workspace exists.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("loading registry", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("registry file does not exist, using defaults", "path", path)
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading registry file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing registry file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logger.Warn("registry file has unrecognized keys", "keys", undecoded)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("registry file %s: %w", path, err)
	}

	return cfg, nil
}
