// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for pagesync. It owns the global
// registry of workspaces (consulted by `pagesync list`); per-workspace
// settings live alongside the workspace itself (internal/workspace).
package config

// Config is the top-level structure of the global registry file
// (~/.config/pagesync/config.toml). It tracks every workspace ever
// initialized with `pagesync init`, plus process-wide defaults a
// workspace-local config can override.
type Config struct {
	Workspaces map[string]WorkspaceRef `toml:"workspace"`
	Network    NetworkConfig           `toml:"network"`
	Logging    LoggingConfig           `toml:"logging"`
	Sync       SyncDefaults            `toml:"sync"`
}

// WorkspaceRef is one registered workspace's entry in the global registry.
type WorkspaceRef struct {
	Path      string `toml:"path"`
	RemoteURL string `toml:"remote_url"`
	CreatedAt string `toml:"created_at"`
}

// NetworkConfig controls HTTP client behavior for the remote client.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "auto", "text", "json"
}

// SyncDefaults seed a workspace's local config at `init` time.
type SyncDefaults struct {
	PollInterval string `toml:"poll_interval"`
	Debounce     string `toml:"debounce"`
	IgnoreFile   string `toml:"ignore_file"`
}
