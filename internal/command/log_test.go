package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/sketchctl/internal/config"
	"github.com/joeycumines/sketchctl/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeLog(t *testing.T, lines int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= lines; i++ {
		sb.WriteString("line ")
		sb.WriteByte(byte('0' + i%10))
		sb.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "sketchctl.log")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func TestLogCommand_Tail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.Config.SetGlobalOption(config.KeyLogFile, writeLog(t, 5))

	stdout, _, err := runCmd(t, NewLogCommand(env), "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "line 4\nline 5\n", stdout)

	stdout, _, err = runCmd(t, NewLogCommand(env))
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\nline 3\nline 4\nline 5\n", stdout)
}

func TestLogCommand_FileFlag(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := writeLog(t, 3)

	stdout, _, err := runCmd(t, NewLogCommand(env), "--file", path, "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "line 3\n", stdout)
}

func TestLogCommand_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, stderr, err := runCmd(t, NewLogCommand(env))
	assert.EqualError(t, err, "no log file configured")
	assert.Contains(t, stderr, "No log file configured")

	missing := filepath.Join(t.TempDir(), "missing.log")
	_, stderr, err = runCmd(t, NewLogCommand(env), "--file", missing)
	assert.EqualError(t, err, "log file not found: "+missing)
	assert.Contains(t, stderr, "Log file does not exist")

	_, _, err = runCmd(t, NewLogCommand(env), "--file", missing, "head")
	assert.EqualError(t, err, "unknown subcommand: head")
}

func TestLogCommand_Follow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := writeLog(t, 2)

	r := NewRegistry("sketchctl")
	r.Register(NewLogCommand(env))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, []string{"log", "tail", "--file", path, "-n", "1"}, &stdout, &syncBuffer{})
	}()

	require.NoError(t, testutil.Poll(ctx, func() bool {
		return stdout.String() == "line 2\n"
	}, 5*time.Second, 10*time.Millisecond))
	time.Sleep(2 * followInterval)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("appended\npartial")
	require.NoError(t, err)

	require.NoError(t, testutil.Poll(ctx, func() bool {
		return stdout.String() == "line 2\nappended\n"
	}, 5*time.Second, 10*time.Millisecond))

	_, err = f.WriteString(" line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, testutil.Poll(ctx, func() bool {
		return stdout.String() == "line 2\nappended\npartial line\n"
	}, 5*time.Second, 10*time.Millisecond))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("log tail did not stop after cancel")
	}
}

func TestLogCommand_FollowRotation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := writeLog(t, 3)

	r := NewRegistry("sketchctl")
	r.Register(NewLogCommand(env))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, []string{"log", "-f", "--file", path, "-n", "0"}, &stdout, &syncBuffer{})
	}()

	// Let the follower reach the end of the original file.
	time.Sleep(3 * followInterval)
	require.NoError(t, os.WriteFile(path, []byte("new\n"), 0644))

	require.NoError(t, testutil.Poll(ctx, func() bool {
		return stdout.String() == "new\n"
	}, 5*time.Second, 10*time.Millisecond))

	cancel()
	assert.NoError(t, <-done)
}

func TestReadLastNLines(t *testing.T) {
	t.Parallel()
	in := "a\nb\nc\n"
	for _, tc := range []struct {
		n    int
		want []string
	}{
		{0, nil},
		{1, []string{"c"}},
		{3, []string{"a", "b", "c"}},
		{10, []string{"a", "b", "c"}},
	} {
		assert.Equal(t, tc.want, readLastNLines(strings.NewReader(in), tc.n), "n=%d", tc.n)
	}
}
