package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestRegistry(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.toml")

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, defaultPollInterval, cfg.Sync.PollInterval)
	assert.Empty(t, cfg.Workspaces)
}

func TestLoad_ValidRegistry(t *testing.T) {
	path := writeTestRegistry(t, `
[sync]
poll_interval = "1m"
debounce = "5s"

[workspace.notes]
path = "/home/user/notes"
remote_url = "https://notion.example/abc123"
created_at = "2026-01-01T00:00:00Z"
`)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	require.Len(t, cfg.Workspaces, 1)
	assert.Equal(t, "/home/user/notes", cfg.Workspaces["notes"].Path)
	assert.Equal(t, "1m", cfg.Sync.PollInterval)
}

func TestLoad_InvalidDurationRejected(t *testing.T) {
	path := writeTestRegistry(t, `
[sync]
poll_interval = "not-a-duration"
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
}

func TestLoad_InvalidLogFormatRejected(t *testing.T) {
	path := writeTestRegistry(t, `
[logging]
log_format = "xml"
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Workspaces["docs"] = WorkspaceRef{Path: "/tmp/docs", RemoteURL: "https://example/root"}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs", loaded.Workspaces["docs"].Path)
}

func TestRegisterAndUnregisterWorkspace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, RegisterWorkspace(path, "docs", WorkspaceRef{Path: "/tmp/docs"}))

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	require.Contains(t, cfg.Workspaces, "docs")

	require.NoError(t, UnregisterWorkspace(path, "docs"))

	cfg, err = Load(path, testLogger(t))
	require.NoError(t, err)
	assert.NotContains(t, cfg.Workspaces, "docs")
}
