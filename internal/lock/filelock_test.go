package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_LockUnlock(t *testing.T) {
	// Given: a lock in a directory that does not exist yet
	path := filepath.Join(t.TempDir(), "nested", "kb.lock")
	l := New(path)

	// When: locking
	require.NoError(t, l.Lock(context.Background()))

	// Then: the lock file exists and the lock is held
	assert.FileExists(t, path)
	assert.True(t, l.IsLocked())
	require.NoError(t, l.Unlock())
	assert.False(t, l.IsLocked())
	require.NoError(t, l.Unlock(), "double unlock is a no-op")
}

func TestFileLock_TryLockContended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")
	holder := New(path)
	require.NoError(t, holder.Lock(context.Background()))
	defer holder.Unlock()

	other := New(path)
	ok, err := other.TryLock()

	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, other.IsLocked())
}

func TestFileLock_LockHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")
	holder := New(path)
	require.NoError(t, holder.Lock(context.Background()))
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := New(path).Lock(ctx)

	assert.Error(t, err)
}

func TestFileLock_SharedLocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.lock")
	a, b := New(path), New(path)

	require.NoError(t, a.RLock(context.Background()))
	require.NoError(t, b.RLock(context.Background()))

	require.NoError(t, a.Unlock())
	require.NoError(t, b.Unlock())
}
