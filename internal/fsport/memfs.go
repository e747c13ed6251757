package fsport

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// ErrNotExist mirrors fs.ErrNotExist for MemFS callers that want to use
// errors.Is without importing io/fs themselves.
var ErrNotExist = fs.ErrNotExist

type memEntry struct {
	isDir   bool
	data    []byte
	modTime time.Time
}

// MemFS is an in-memory FS fake used by tests that need deterministic,
// disk-free filesystem behavior.
type MemFS struct {
	entries map[string]*memEntry
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{entries: make(map[string]*memEntry)}
}

func clean(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}

	return path.Clean(p)
}

func (m *MemFS) ensureDirs(p string) {
	for dir := path.Dir(clean(p)); dir != "." && dir != ""; dir = path.Dir(dir) {
		if _, ok := m.entries[dir]; !ok {
			m.entries[dir] = &memEntry{isDir: true, modTime: time.Unix(0, 0)}
		}
	}
}

func (m *MemFS) Walk(root string, fn func(path string, info Info, err error) error) error {
	root = clean(root)

	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		if root == "" || p == root || strings.HasPrefix(p, root+"/") {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	var skipPrefixes []string

walk:
	for _, p := range paths {
		for _, sp := range skipPrefixes {
			if strings.HasPrefix(p, sp) {
				continue walk
			}
		}

		e := m.entries[p]
		rel := strings.TrimPrefix(p, root)
		rel = strings.TrimPrefix(rel, "/")

		info := Info{Name: path.Base(p), IsDir: e.isDir, Size: int64(len(e.data)), ModTime: e.modTime}
		if err := fn(rel, info, nil); err != nil {
			if errors.Is(err, fs.SkipDir) && e.isDir {
				skipPrefixes = append(skipPrefixes, p+"/")
				continue
			}

			if errors.Is(err, fs.SkipAll) {
				return nil
			}

			return err
		}
	}

	return nil
}

func (m *MemFS) ReadFile(p string) ([]byte, error) {
	e, ok := m.entries[clean(p)]
	if !ok || e.isDir {
		return nil, fs.ErrNotExist
	}

	out := make([]byte, len(e.data))
	copy(out, e.data)

	return out, nil
}

func (m *MemFS) WriteFile(p string, data []byte, _ fs.FileMode) error {
	p = clean(p)
	m.ensureDirs(p)

	buf := make([]byte, len(data))
	copy(buf, data)

	m.entries[p] = &memEntry{data: buf, modTime: time.Unix(0, 0).Add(time.Duration(len(m.entries)) * time.Second)}

	return nil
}

func (m *MemFS) MkdirAll(p string, _ fs.FileMode) error {
	p = clean(p)
	if p == "" {
		return nil
	}

	m.ensureDirs(p + "/x")
	m.entries[p] = &memEntry{isDir: true, modTime: time.Unix(0, 0)}

	return nil
}

func (m *MemFS) Remove(p string) error {
	p = clean(p)
	if _, ok := m.entries[p]; !ok {
		return fs.ErrNotExist
	}

	delete(m.entries, p)

	return nil
}

func (m *MemFS) RemoveAll(p string) error {
	p = clean(p)

	for k := range m.entries {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.entries, k)
		}
	}

	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	oldPath, newPath = clean(oldPath), clean(newPath)

	e, ok := m.entries[oldPath]
	if !ok {
		return fs.ErrNotExist
	}

	delete(m.entries, oldPath)
	m.ensureDirs(newPath)
	m.entries[newPath] = e

	return nil
}

func (m *MemFS) Stat(p string) (Info, error) {
	e, ok := m.entries[clean(p)]
	if !ok {
		return Info{}, fs.ErrNotExist
	}

	return Info{Name: path.Base(clean(p)), IsDir: e.isDir, Size: int64(len(e.data)), ModTime: e.modTime}, nil
}

func (m *MemFS) Exists(p string) (bool, error) {
	_, ok := m.entries[clean(p)]
	return ok, nil
}
