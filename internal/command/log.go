package command

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/sketchctl/internal/config"
)

const (
	followInterval = 200 * time.Millisecond
	// waitForLogTimeout bounds how long a follow waits for a missing or
	// rotated log file to (re)appear.
	waitForLogTimeout = 30 * time.Second
)

// LogCommand prints, and optionally follows, the configured log file.
type LogCommand struct {
	*BaseCommand
	env    *Env
	follow bool
	lines  int
	file   string
}

// NewLogCommand creates a new log command.
func NewLogCommand(env *Env) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "Show the end of the log file", "log [tail] [options]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file (like tail -f)")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file (like tail -f)")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Path to log file (overrides log.file)")
}

// Execute prints the last lines of the log, following it until ctx is done
// when asked to. "log tail" is "log --follow".
func (c *LogCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	logPath := c.file
	if logPath == "" {
		logPath = config.DefaultSchema().Resolve(c.env.Config, config.KeyLogFile)
	}
	if logPath == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use --file or set log.file in config.")
		return fmt.Errorf("no log file configured")
	}

	f, err := os.Open(logPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		if !c.follow {
			_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", logPath)
			return fmt.Errorf("log file not found: %s", logPath)
		}
		_, _ = fmt.Fprintf(stderr, "Waiting for log file: %s\n", logPath)
		if f, err = waitForFile(ctx, logPath); err != nil {
			return err
		}
	}

	for _, line := range readLastNLines(f, c.lines) {
		_, _ = fmt.Fprintln(stdout, line)
	}
	if !c.follow {
		return f.Close()
	}

	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	err = followFile(ctx, f, logPath, pos, stdout, stderr)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readLastNLines returns the last n lines of r, keeping at most n in memory.
func readLastNLines(r io.Reader, n int) []string {
	if n <= 0 {
		return nil
	}
	ring := make([]string, n)
	count := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	total := min(count, n)
	result := make([]string, total)
	for i := range total {
		result[i] = ring[(count-total+i)%n]
	}
	return result
}

// followFile prints lines appended to f until ctx is done. A file at
// logPath smaller than what was read means it was rotated, and it is
// reopened from the start.
func followFile(ctx context.Context, f *os.File, logPath string, pos int64, stdout, stderr io.Writer) error {
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	defer func() { _ = f.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(logPath)
		if err != nil || info.Size() < pos {
			_ = f.Close()
			if err != nil {
				_, _ = fmt.Fprintln(stderr, "Log file rotated, waiting for new file...")
			}
			if f, err = waitForFile(ctx, logPath); err != nil {
				return err
			}
			reader = bufio.NewReader(f)
			pos = 0
		}

		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 && line[len(line)-1] == '\n' {
				_, _ = fmt.Fprint(stdout, line)
				pos += int64(len(line))
			} else if len(line) > 0 {
				// Partial line; reread it once complete.
				if _, err := f.Seek(pos, io.SeekStart); err != nil {
					return fmt.Errorf("failed to seek log file: %w", err)
				}
				reader.Reset(f)
				break
			}
			if err != nil {
				break
			}
		}
	}
}

// waitForFile polls until path can be opened.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	ctx, cancel := context.WithTimeout(ctx, waitForLogTimeout)
	defer cancel()
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for log file %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}
