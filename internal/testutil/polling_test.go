package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Parallel()

	t.Run("becomes true", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := Poll(context.Background(), func() bool {
			calls++
			return calls >= 3
		}, 5*time.Second, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond)
		assert.ErrorContains(t, err, "timeout waiting for condition")
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Poll(ctx, func() bool { return false }, time.Minute, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitForState(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	go func() {
		for range 5 {
			time.Sleep(time.Millisecond)
			n.Add(1)
		}
	}()

	got, err := WaitForState(context.Background(), n.Load, func(v int32) bool { return v >= 5 }, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got)

	_, err = WaitForState(context.Background(), n.Load, func(v int32) bool { return v > 100 }, 10*time.Millisecond, time.Millisecond)
	assert.Error(t, err)
}

func TestFixtures(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	WriteFiles(t, root, map[string]string{
		"a/b/boards.txt": "uno.name=Arduino Uno\n",
		"top.txt":        "x",
	})
	assert.FileExists(t, root+"/a/b/boards.txt")
	assert.FileExists(t, root+"/top.txt")

	SkipIfWindows(t, "shell scripts")
	script := WriteScript(t, "tool", "exit 0")
	assert.FileExists(t, script)
	assert.False(t, DetectPlatform(t).IsWindows)
}
