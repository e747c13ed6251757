// Package workspace resolves and manages a pagesync workspace: the local
// directory bound to a remote root document, and its metadata directory
// (config, state database, lock file).
package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MetaDirName is the well-known metadata directory inside a workspace root.
const MetaDirName = ".pagesync"

const (
	configFileName = "config"
	stateFileName  = "state"
	lockFileName   = "lock"
)

// configFilePermissions matches the registry's file mode.
const configFilePermissions = 0o644

const metaDirPermissions = 0o755

// ErrNotAWorkspace is returned when root has no metadata directory.
var ErrNotAWorkspace = errors.New("workspace: not a pagesync workspace (no .pagesync directory)")

// ErrAlreadyAWorkspace is returned by Init when root is already bound.
var ErrAlreadyAWorkspace = errors.New("workspace: .pagesync directory already exists")

// Config is the workspace-scoped configuration stored at
// <root>/.pagesync/config. It binds the workspace to exactly one remote
// root document (spec.md §6.1) and carries the watcher's tunables.
type Config struct {
	RemoteRootID string `toml:"remote_root_id"`
	RemoteURL    string `toml:"remote_url"`
	PollInterval string `toml:"poll_interval"`
	Debounce     string `toml:"debounce"`
	IgnoreFile   string `toml:"ignore_file"`
}

// Workspace bundles a resolved root path with its loaded local config.
type Workspace struct {
	Root   string
	Config Config
}

// MetaDir returns <root>/.pagesync.
func MetaDir(root string) string { return filepath.Join(root, MetaDirName) }

// ConfigPath returns the workspace-local config file path.
func ConfigPath(root string) string { return filepath.Join(MetaDir(root), configFileName) }

// StatePath returns the SQLite state database path.
func StatePath(root string) string { return filepath.Join(MetaDir(root), stateFileName) }

// LockPath returns the workspace lock file path.
func LockPath(root string) string { return filepath.Join(MetaDir(root), lockFileName) }

// Init creates a new workspace at root: the metadata directory and an
// initial config file binding to remoteRootID/remoteURL. Fails if root is
// already a workspace.
func Init(root string, cfg Config) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolving root %s: %w", root, err)
	}

	meta := MetaDir(absRoot)
	if _, statErr := os.Stat(meta); statErr == nil {
		return nil, fmt.Errorf("workspace: %s: %w", absRoot, ErrAlreadyAWorkspace)
	}

	if err := os.MkdirAll(meta, metaDirPermissions); err != nil {
		return nil, fmt.Errorf("workspace: creating metadata directory: %w", err)
	}

	ws := &Workspace{Root: absRoot, Config: cfg}
	if err := ws.SaveConfig(); err != nil {
		return nil, err
	}

	return ws, nil
}

// Load reads an existing workspace's config from root.
func Load(root string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolving root %s: %w", root, err)
	}

	path := ConfigPath(absRoot)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("workspace: %s: %w", absRoot, ErrNotAWorkspace)
	}

	if err != nil {
		return nil, fmt.Errorf("workspace: reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("workspace: parsing config %s: %w", path, err)
	}

	return &Workspace{Root: absRoot, Config: cfg}, nil
}

// SaveConfig writes the workspace's current config back to disk.
func (w *Workspace) SaveConfig() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(w.Config); err != nil {
		return fmt.Errorf("workspace: encoding config: %w", err)
	}

	path := ConfigPath(w.Root)
	if err := os.WriteFile(path, buf.Bytes(), configFilePermissions); err != nil {
		return fmt.Errorf("workspace: writing config %s: %w", path, err)
	}

	return nil
}

// Find walks upward from dir looking for a .pagesync metadata directory,
// the way git locates .git. Returns ErrNotAWorkspace if none is found before
// reaching the filesystem root.
func Find(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("workspace: resolving %s: %w", dir, err)
	}

	current := absDir
	for {
		if info, err := os.Stat(MetaDir(current)); err == nil && info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("workspace: searching from %s: %w", absDir, ErrNotAWorkspace)
		}

		current = parent
	}
}
