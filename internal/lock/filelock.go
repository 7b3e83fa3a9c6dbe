// Package lock provides cross-process file locks built on gofrs/flock.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often a blocked Lock or RLock polls for the lock.
const retryDelay = 20 * time.Millisecond

// FileLock is an advisory lock on a file shared by every kbsearch process.
// A FileLock is not safe for concurrent use; guard it with a mutex when
// several goroutines share it.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a lock on path. The file and its directory are created on the
// first lock attempt.
func New(path string) *FileLock {
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock acquires an exclusive lock, waiting until it is available or ctx ends.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	ok, err := l.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire lock %s", l.path)
	}
	l.locked = true
	return nil
}

// RLock acquires a shared lock, waiting until it is available or ctx ends.
func (l *FileLock) RLock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	ok, err := l.flock.TryRLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire shared lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire shared lock %s", l.path)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the exclusive lock without blocking.
// Returns true if the lock was acquired, false if another holder has it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock.
// It's safe to call Unlock multiple times or on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

func (l *FileLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}
