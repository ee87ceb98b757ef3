package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_AcquireAndRelease(t *testing.T) {
	t.Parallel()
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	f, ok, err := AcquireLockHandle(lockPath)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, f)

	require.NoError(t, ReleaseLockHandle(f))
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file should be removed after release")
}

func TestFileLock_DoubleAcquireReportsHeld(t *testing.T) {
	t.Parallel()
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	first, ok, err := AcquireLockHandle(lockPath)
	require.NoError(t, err)
	require.True(t, ok)
	defer ReleaseLockHandle(first)

	second, ok, err := AcquireLockHandle(lockPath)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, second)
}

func TestFileLock_ReleaseNilIsSafe(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ReleaseLockHandle(nil))
}

func TestFileLock_CannotOpenFile(t *testing.T) {
	t.Parallel()
	fileAsDir := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(fileAsDir, []byte("i am a file"), 0644))

	_, ok, err := AcquireLockHandle(filepath.Join(fileAsDir, "the.lock"))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestWithLock(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "settings.yaml")

	t.Run("runs fn and releases", func(t *testing.T) {
		called := false
		err := WithLock(target, func() error {
			called = true
			_, statErr := os.Stat(LockPath(target))
			assert.NoError(t, statErr, "lock artifact should exist while held")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		_, statErr := os.Stat(LockPath(target))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("propagates fn error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithLock(target, func() error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("held lock would block", func(t *testing.T) {
		held, ok, err := AcquireLockHandle(LockPath(target))
		require.NoError(t, err)
		require.True(t, ok)
		defer ReleaseLockHandle(held)

		called := false
		err = WithLock(target, func() error { called = true; return nil })
		assert.ErrorIs(t, err, ErrWouldBlock)
		assert.False(t, called)
	})
}

func TestWriteFileLocked(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, WriteFileLocked(target, []byte(`{"a":1}`), 0644))
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
