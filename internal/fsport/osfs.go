package fsport

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// OSFS is the production FS implementation, rooted at a directory on disk.
type OSFS struct {
	Root string
}

// NewOSFS returns an FS rooted at root. root must be an absolute path; all
// methods accept and return paths relative to it.
func NewOSFS(root string) *OSFS {
	return &OSFS{Root: root}
}

func (o *OSFS) abs(path string) string {
	return filepath.Join(o.Root, filepath.FromSlash(path))
}

func (o *OSFS) Walk(root string, fn func(path string, info Info, err error) error) error {
	absRoot := o.abs(root)

	return filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(absRoot, p)
		if relErr != nil {
			return fmt.Errorf("fsport: relativize walked path %q: %w", p, relErr)
		}

		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		if err != nil {
			return fn(rel, Info{}, err)
		}

		info, statErr := d.Info()
		if statErr != nil {
			return fn(rel, Info{}, statErr)
		}

		return fn(rel, Info{Name: d.Name(), IsDir: d.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil)
	})
}

func (o *OSFS) ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(o.abs(path))
	if err != nil {
		return nil, fmt.Errorf("fsport: read %q: %w", path, err)
	}

	return b, nil
}

func (o *OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	abs := o.abs(path)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("fsport: mkdir parent of %q: %w", path, err)
	}

	tmp := abs + ".partial"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("fsport: write temp file for %q: %w", path, err)
	}

	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("fsport: rename temp file into place for %q: %w", path, err)
	}

	return nil
}

func (o *OSFS) MkdirAll(path string, perm fs.FileMode) error {
	if err := os.MkdirAll(o.abs(path), perm); err != nil {
		return fmt.Errorf("fsport: mkdir %q: %w", path, err)
	}

	return nil
}

func (o *OSFS) Remove(path string) error {
	if err := os.Remove(o.abs(path)); err != nil {
		return fmt.Errorf("fsport: remove %q: %w", path, err)
	}

	return nil
}

func (o *OSFS) RemoveAll(path string) error {
	if err := os.RemoveAll(o.abs(path)); err != nil {
		return fmt.Errorf("fsport: remove all %q: %w", path, err)
	}

	return nil
}

func (o *OSFS) Rename(oldPath, newPath string) error {
	abs := o.abs(newPath)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("fsport: mkdir parent of %q: %w", newPath, err)
	}

	if err := os.Rename(o.abs(oldPath), abs); err != nil {
		return fmt.Errorf("fsport: rename %q to %q: %w", oldPath, newPath, err)
	}

	return nil
}

func (o *OSFS) Stat(path string) (Info, error) {
	fi, err := os.Stat(o.abs(path))
	if err != nil {
		return Info{}, fmt.Errorf("fsport: stat %q: %w", path, err)
	}

	return Info{Name: fi.Name(), IsDir: fi.IsDir(), Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (o *OSFS) Exists(path string) (bool, error) {
	_, err := os.Stat(o.abs(path))
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, fmt.Errorf("fsport: stat %q: %w", path, err)
}
