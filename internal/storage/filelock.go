package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWouldBlock signals that a non-blocking lock attempt failed because
// another process holds the lock.
var ErrWouldBlock = errors.New("file lock would block")

// LockPath returns the lock artifact guarding path.
func LockPath(path string) string { return path + ".lock" }

// AcquireLockHandle attempts to take an exclusive lock on path, creating
// it. The boolean is false (with a nil error) when another process already
// holds it.
func AcquireLockHandle(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrWouldBlock) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return f, true, nil
}

// ReleaseLockHandle unlocks f, closes it and removes the lock file. A nil
// handle is a no-op.
func ReleaseLockHandle(f *os.File) error {
	if f == nil {
		return nil
	}
	errUnlock := unlockFile(f)
	errClose := f.Close()
	errRemove := os.Remove(f.Name())
	if os.IsNotExist(errRemove) {
		errRemove = nil
	}
	return errors.Join(errUnlock, errClose, errRemove)
}

// WithLock runs fn while holding the lock that guards path. It fails with
// ErrWouldBlock rather than waiting when the lock is held elsewhere.
func WithLock(path string, fn func() error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	lock, ok, err := AcquireLockHandle(LockPath(path))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrWouldBlock)
	}
	defer func() {
		err = errors.Join(err, ReleaseLockHandle(lock))
	}()
	return fn()
}

// WriteFileLocked is AtomicWriteFile under WithLock.
func WriteFileLocked(filename string, data []byte, perm os.FileMode) error {
	return WithLock(filename, func() error {
		return AtomicWriteFile(filename, data, perm)
	})
}
