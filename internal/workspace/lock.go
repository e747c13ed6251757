package workspace

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// ErrLockHeld is returned by AcquireLock when another engine already holds
// the workspace lock. Spec.md §5 requires a second concurrent run to fail
// immediately rather than block.
var ErrLockHeld = errors.New("workspace: lock held by another process")

// Lock is a cooperative, cross-process workspace lock backed by an flock(2)
// advisory lock on <root>/.pagesync/lock. The sync engine is the only writer
// in a workspace; the lock enforces that at the process level.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock attempts to take the workspace lock without blocking. Returns
// ErrLockHeld if another process already holds it.
func AcquireLock(root string) (*Lock, error) {
	path := LockPath(root)

	if err := os.MkdirAll(MetaDir(root), metaDirPermissions); err != nil {
		return nil, fmt.Errorf("workspace: creating metadata directory for lock: %w", err)
	}

	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("workspace: acquiring lock %s: %w", path, err)
	}

	if !locked {
		return nil, ErrLockHeld
	}

	return &Lock{fl: fl}, nil
}

// Release gives up the lock. Safe to call on a Lock that never locked.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil || !l.fl.Locked() {
		return nil
	}

	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("workspace: releasing lock: %w", err)
	}

	return nil
}
