package build

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/joeycumines/sketchctl/internal/linebuf"
)

// waitDelay bounds how long output is drained after the process exits or
// is killed, since grandchildren may hold the pipes open.
const waitDelay = 2 * time.Second

// run starts name with args in dir and feeds both output streams, line by
// line, to the callbacks. Partial trailing lines are delivered at exit.
func run(ctx context.Context, dir string, env []string, name string, args []string, stdout, stderr func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	outBuf := linebuf.New(stdout)
	errBuf := linebuf.New(stderr)
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf

	err := cmd.Run()
	outBuf.Flush()
	errBuf.Flush()
	return err
}

// describeExit renders a process failure for the output channel.
func describeExit(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("Exit with code=%d", exitErr.ExitCode())
	}
	return err.Error()
}

// shellCommand wraps a hook command line for the platform shell.
func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/c", command}
	}
	return "sh", []string{"-c", command}
}
