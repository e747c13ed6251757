package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// appName names the per-platform config/data/cache directory.
const appName = "pagesync"

// registryFileName is the global registry file inside the config directory.
const registryFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/pagesync). On
// macOS, uses ~/Library/Application Support/pagesync per Apple guidelines.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDir(home, "XDG_CONFIG_HOME", ".config")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for cached data that
// is not itself part of a workspace (currently unused by any workspace state,
// reserved for a future global cache).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDir(home, "XDG_DATA_HOME", ".local/share")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// linuxDir resolves an XDG base-directory variable, falling back to
// home/fallbackRel/appName when the variable is unset.
func linuxDir(home, xdgVar, fallbackRel string) string {
	if v := os.Getenv(xdgVar); v != "" {
		return filepath.Join(v, appName)
	}

	return filepath.Join(home, filepath.FromSlash(fallbackRel), appName)
}

// DefaultRegistryPath returns the full path to the global workspace registry.
func DefaultRegistryPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, registryFileName)
}
