package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// registryFilePermissions matches the standard config file mode: owner
// read/write, group and others read-only.
const registryFilePermissions = 0o644

// registryDirPermissions is the standard directory mode for config dirs.
const registryDirPermissions = 0o755

// Save writes cfg to path as TOML, creating parent directories as needed.
// Writes are atomic: encode to a temp file in the same directory, then
// rename over the destination, so a crash mid-write cannot corrupt the
// registry an already-running `pagesync list` might be reading.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, registryDirPermissions); err != nil {
		return fmt.Errorf("creating registry directory %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("writing temp registry file: %w", err)
	}

	if err := tmp.Chmod(registryFilePermissions); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("setting registry file permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp registry file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming registry file into place: %w", err)
	}

	return nil
}

// RegisterWorkspace adds or updates a workspace entry in the registry file
// at registryPath, creating the registry if it does not yet exist.
func RegisterWorkspace(registryPath, name string, ref WorkspaceRef) error {
	cfg, err := Load(registryPath, nil)
	if err != nil {
		return err
	}

	if cfg.Workspaces == nil {
		cfg.Workspaces = make(map[string]WorkspaceRef)
	}

	cfg.Workspaces[name] = ref

	return Save(registryPath, cfg)
}

// UnregisterWorkspace removes a workspace entry, if present.
func UnregisterWorkspace(registryPath, name string) error {
	cfg, err := Load(registryPath, nil)
	if err != nil {
		return err
	}

	delete(cfg.Workspaces, name)

	return Save(registryPath, cfg)
}
