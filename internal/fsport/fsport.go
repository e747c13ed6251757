// Package fsport isolates local filesystem access behind a narrow interface
// so the walker and engine can run against an in-memory fake in tests
// without touching disk.
package fsport

import (
	"io/fs"
	"time"
)

// Info is the subset of os.FileInfo the sync engine needs, decoupled from
// the standard library type so the in-memory fake doesn't have to fabricate
// a full os.FileInfo.
type Info struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FS is the local filesystem port. Paths are always relative to the root
// the implementation was constructed with.
type FS interface {
	// Walk visits every entry under root in depth-first order, calling fn
	// with the path relative to root. Matches fs.WalkDirFunc semantics:
	// returning fs.SkipDir skips a directory's children, fs.SkipAll stops
	// the walk entirely.
	Walk(root string, fn func(path string, info Info, err error) error) error

	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldPath, newPath string) error
	Stat(path string) (Info, error)
	Exists(path string) (bool, error)
}
