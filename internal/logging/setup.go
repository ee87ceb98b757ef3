// Package logging builds the process-wide slog logger from flags and the
// user configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joeycumines/sketchctl/internal/config"
)

// Options are the command-line overrides. Zero values defer to configuration.
type Options struct {
	Level string
	File  string
}

// Result is the configured logger plus the file it owns, if any.
type Result struct {
	Logger *slog.Logger
	Level  slog.Level
	// File is nil unless logs go to a file. The caller must Close it.
	File io.WriteCloser
}

// Close releases the log file, if any.
func (r Result) Close() error {
	if r.File == nil {
		return nil
	}
	return r.File.Close()
}

// ParseLevel maps debug, info, warn and error (any case) to slog levels. The
// empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// Setup resolves the level (flag, then log.level, then info) and the sink.
// With a log file (flag, then log.file) records are JSON, rotated by size;
// otherwise they are text on stderr.
func Setup(opts Options, cfg *config.Config, stderr io.Writer) (Result, error) {
	schema := config.DefaultSchema()
	var res Result

	levelStr := opts.Level
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, config.KeyLogLevel)
	}
	level, err := ParseLevel(levelStr)
	if err != nil {
		return res, err
	}
	res.Level = level

	handlerOpts := &slog.HandlerOptions{Level: level}

	logPath := opts.File
	if logPath == "" {
		logPath = schema.Resolve(cfg, config.KeyLogFile)
	}
	if logPath == "" {
		res.Logger = slog.New(slog.NewTextHandler(stderr, handlerOpts))
		return res, nil
	}

	maxSizeMB := schema.ResolveInt(cfg, config.KeyLogMaxSizeMB)
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	maxFiles := schema.ResolveInt(cfg, config.KeyLogMaxFiles)
	if maxFiles < 0 {
		maxFiles = 5
	}

	w, err := NewRotatingFileWriter(logPath, maxSizeMB, maxFiles)
	if err != nil {
		return res, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	res.File = w
	res.Logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	return res, nil
}
