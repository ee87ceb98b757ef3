// Package build drives the external toolchain: it turns a build request
// into a command line from the current board and project settings, runs
// the hooks and the toolchain, and classifies the toolchain's output.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/joeycumines/sketchctl/internal/project"
	"github.com/joeycumines/sketchctl/internal/workspace"
)

// Toolchain describes the external executable.
type Toolchain struct {
	// Command is the executable name or path.
	Command string
	// CLI selects the standalone CLI front-end; false means the legacy IDE
	// front-end, which lacks the Cli* modes.
	CLI bool
	// ExtraArgs are inserted before the mode arguments.
	ExtraArgs []string
}

// Options configures an Orchestrator. Nil collaborators are no-ops.
type Options struct {
	Toolchain Toolchain
	// Verbose passes all toolchain output through and sets LOG_LEVEL=verbose.
	Verbose bool
	// Output receives the build log. Defaults to os.Stderr.
	Output io.Writer

	Notifier      Notifier
	Prompter      Prompter
	SerialMonitor SerialMonitor
	DeviceWatcher DeviceWatcher
	// NewOutputParser, if set, creates the parser for one attempt.
	NewOutputParser func(root string) OutputParser

	Logger *slog.Logger
}

// Orchestrator runs at most one build at a time.
type Orchestrator struct {
	ws        *workspace.Workspace
	toolchain Toolchain
	verbose   bool
	ch        *channel

	notifier  Notifier
	prompter  Prompter
	serial    SerialMonitor
	watcher   DeviceWatcher
	newParser func(root string) OutputParser
	logger    *slog.Logger
	windows   bool

	building atomic.Bool
}

// New creates an Orchestrator building from ws.
func New(ws *workspace.Workspace, opts Options) *Orchestrator {
	o := &Orchestrator{
		ws:        ws,
		toolchain: opts.Toolchain,
		verbose:   opts.Verbose,
		ch:        &channel{w: opts.Output},
		notifier:  opts.Notifier,
		prompter:  opts.Prompter,
		serial:    opts.SerialMonitor,
		watcher:   opts.DeviceWatcher,
		newParser: opts.NewOutputParser,
		logger:    opts.Logger,
		windows:   runtime.GOOS == "windows",
	}
	if o.ch.w == nil {
		o.ch.w = os.Stderr
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.prompter == nil {
		o.prompter = nopPrompter{}
	}
	if o.serial == nil {
		o.serial = nopSerialMonitor{}
	}
	if o.watcher == nil {
		o.watcher = nopDeviceWatcher{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Building reports whether an attempt is in flight.
func (o *Orchestrator) Building() bool { return o.building.Load() }

// abort ends an attempt early. notify marks failures the user has not yet
// been told about; the rest were already reported on the output channel,
// or were prompts, or are silent by design.
type abort struct {
	msg    string
	notify bool
}

func (a *abort) Error() string { return a.msg }

func fail(notify bool, format string, args ...any) error {
	return &abort{msg: fmt.Sprintf(format, args...), notify: notify}
}

// Build runs one attempt and reports whether the toolchain succeeded. It
// returns false at once, without side effects, when another attempt is in
// flight. Every failure resolves to false plus at most one notification;
// nothing panics out of Build.
func (o *Orchestrator) Build(ctx context.Context, mode Mode, buildDir string) (ok bool) {
	if o.ws == nil || !o.building.CompareAndSwap(false, true) {
		return false
	}
	defer o.building.Store(false)

	logger := o.logger.With("attempt", uuid.NewString(), "mode", mode.Command())
	defer func() {
		if r := recover(); r != nil {
			logger.Error("build panicked", "panic", r, "stack", string(debug.Stack()))
			o.notifier.Error(fmt.Sprintf("%s failed unexpectedly: %v", mode, r))
			ok = false
		}
	}()

	err := o.build(ctx, logger, mode, buildDir)
	if err == nil {
		return true
	}
	var a *abort
	if errors.As(err, &a) {
		logger.Info("build aborted", "reason", a.msg)
		if a.notify {
			o.notifier.Error(a.msg)
		}
		return false
	}
	logger.Error("build failed", "error", err)
	o.notifier.Error(err.Error())
	return false
}

func (o *Orchestrator) build(ctx context.Context, logger *slog.Logger, mode Mode, buildDir string) error {
	analyze := mode == Analyze
	root := o.ws.Root()

	b := o.ws.CurrentBoard()
	if b == nil {
		return fail(!analyze, "No board selected. Please select a board first.")
	}
	p := plan{
		mode:        mode,
		boardConfig: b.BuildConfigString(),
		verbose:     o.verbose || analyze,
	}
	settings := o.ws.Settings()
	p.preferences = settings.BuildPreferences

	name, sketch, err := o.resolveSketch(ctx, logger, mode, settings.Sketch)
	if err != nil {
		return err
	}
	p.sketch = sketch

	p.port = settings.Port
	if mode == Upload || mode == CliUpload {
		if p.port == "" && !externalProgrammerRe.MatchString(p.boardConfig) {
			return o.promptPort(ctx, logger)
		}
	}
	if mode.UsesProgrammer() {
		p.programmer = o.ws.CurrentProgrammer()
		if p.programmer == nil {
			return fail(true, "No programmer selected. Please select a programmer first.")
		}
		if p.port == "" {
			return o.promptPort(ctx, logger)
		}
	}

	if mode.RequiresCLI() && !o.toolchain.CLI {
		return fail(true, "%s: %v", mode, ErrUnsupportedMode)
	}
	if p.buildPath, err = o.resolveBuildPath(root, buildDir, settings.Output); err != nil {
		return fail(!analyze, "%v", err)
	}
	if p.buildPath == "" {
		o.ch.warning("Output path is not specified. Unable to reuse previously compiled files. Build will be always slow.")
	}
	args, err := arguments(o.toolchain.CLI, o.toolchain.ExtraArgs, p)
	if err != nil {
		return fail(true, "%v", err)
	}

	env := mergeEnv(hookEnv(p, root, o.verbose))
	subject := fmt.Sprintf("%s sketch '%s'", mode, name)

	if err := o.runHook(ctx, logger, "pre-build", settings.Prebuild, root, env); err != nil {
		return err
	}

	if mode.IsUpload() {
		resume := o.pauseDevices(ctx, logger, p.port)
		defer resume()
	}

	var parser OutputParser
	if o.newParser != nil {
		parser = o.newParser(root)
	}
	if parser != nil {
		defer func() {
			if err := parser.Finalize(); err != nil {
				logger.Warn("failed to finalize compiler output parser", "error", err)
			}
		}()
	}

	o.ch.start(subject)
	if o.verbose {
		o.ch.info(o.toolchain.Command + " " + strings.Join(args, " "))
	}
	logger.Info("starting toolchain", "command", o.toolchain.Command, "args", args)

	sink := &outputSink{ch: o.ch, parser: parser, verbose: o.verbose, windows: o.windows}
	if err := run(ctx, root, nil, o.toolchain.Command, args, sink.stdout, sink.stderr); err != nil {
		logger.Warn("toolchain failed", "error", err)
		o.ch.error(fmt.Sprintf("%s: %s", subject, describeExit(err)))
		return fail(false, "%s: %s", subject, describeExit(err))
	}
	o.ch.done(subject)

	if err := o.runHook(ctx, logger, "post-build", settings.Postbuild, root, env); err != nil {
		logger.Warn("post-build hook failed, build result unchanged", "error", err)
	}
	return nil
}

// resolveSketch returns the sketch as named in the project and as an
// absolute path, prompting for one when the project names none. Analyze
// never prompts.
func (o *Orchestrator) resolveSketch(ctx context.Context, logger *slog.Logger, mode Mode, sketch string) (name, path string, err error) {
	analyze := mode == Analyze
	if sketch == "" {
		if analyze {
			return "", "", fail(false, "No sketch file was found.")
		}
		selected, err := o.prompter.SelectSketch(ctx)
		if err != nil {
			return "", "", fail(true, "Failed to select a sketch: %v", err)
		}
		if selected == "" {
			return "", "", fail(false, "No sketch file was selected.")
		}
		sketch = selected
		o.ws.UpdateSettings(func(s *project.Settings) { s.Sketch = selected })
		if err := project.Update(o.ws.Root(), func(s *project.Settings) error {
			s.Sketch = selected
			return nil
		}); err != nil {
			logger.Warn("failed to save selected sketch", "sketch", selected, "error", err)
		}
	}

	path = sketch
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.ws.Root(), path)
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", "", fail(!analyze, "Cannot find the sketch file: %s", sketch)
	}
	return sketch, path, nil
}

func (o *Orchestrator) promptPort(ctx context.Context, logger *slog.Logger) error {
	if err := o.prompter.SelectSerialPort(ctx); err != nil {
		logger.Warn("serial port prompt failed", "error", err)
	}
	return fail(false, "No serial port selected.")
}

// resolveBuildPath makes the output directory absolute and creates it. An
// empty result means no output directory is configured.
func (o *Orchestrator) resolveBuildPath(root, buildDir, output string) (string, error) {
	dir := buildDir
	if dir == "" {
		dir = output
	}
	if dir == "" {
		return "", nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}
	return dir, nil
}

// runHook runs a pre- or post-build command through the platform shell.
// Its output goes to the channel unfiltered.
func (o *Orchestrator) runHook(ctx context.Context, logger *slog.Logger, name, command, root string, env []string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	o.ch.info(fmt.Sprintf("Running %s command: \"%s\"", name, command))
	shell, args := shellCommand(command)
	err := run(ctx, root, env, shell, args, o.ch.append, o.ch.append)
	if err != nil {
		o.ch.error(fmt.Sprintf("Running %s command failed: %s", name, describeExit(err)))
		logger.Warn("hook failed", "hook", name, "error", err)
		return fail(false, "%s command failed: %s", name, describeExit(err))
	}
	return nil
}

// pauseDevices releases the serial port and pauses hot-plug detection. The
// returned function undoes both and must always be called.
func (o *Orchestrator) pauseDevices(ctx context.Context, logger *slog.Logger, port string) (resume func()) {
	var wasOpen bool
	if port != "" {
		var err error
		wasOpen, err = o.serial.Close(ctx, port)
		if err != nil {
			logger.Warn("failed to close serial monitor", "port", port, "error", err)
		}
	}
	o.watcher.Pause()
	return func() {
		o.watcher.Resume()
		if wasOpen {
			if err := o.serial.Open(context.WithoutCancel(ctx), port); err != nil {
				logger.Warn("failed to reopen serial monitor", "port", port, "error", err)
			}
		}
	}
}
