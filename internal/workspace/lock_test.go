package workspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_SecondAttemptFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	l1, err := AcquireLock(root)
	require.NoError(t, err)
	defer l1.Release()

	_, err = AcquireLock(root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockHeld))
}

func TestAcquireLock_ReleaseAllowsReacquisition(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	l1, err := AcquireLock(root)
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := AcquireLock(root)
	require.NoError(t, err)
	defer l2.Release()
}

func TestLock_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	l, err := AcquireLock(root)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}
