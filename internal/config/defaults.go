package config

// Default values for configuration options. These are the "layer 0" of the
// override chain (defaults < global registry < workspace config < CLI flags)
// and are chosen to work without any config file present.
const (
	defaultPollInterval   = "30s"
	defaultDebounce       = "2s"
	defaultIgnoreFile     = ".pagesyncignore"
	defaultConnectTimeout = "10s"
	defaultRequestTimeout = "30s"
	defaultUserAgent      = "pagesync/0.1"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
)

// DefaultConfig returns a Config populated with default values. Used both as
// the decode target (so unset TOML keys keep their defaults) and as the
// fallback when no registry file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Workspaces: make(map[string]WorkspaceRef),
		Network:    defaultNetworkConfig(),
		Logging:    defaultLoggingConfig(),
		Sync:       defaultSyncDefaults(),
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		RequestTimeout: defaultRequestTimeout,
		UserAgent:      defaultUserAgent,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultSyncDefaults() SyncDefaults {
	return SyncDefaults{
		PollInterval: defaultPollInterval,
		Debounce:     defaultDebounce,
		IgnoreFile:   defaultIgnoreFile,
	}
}
