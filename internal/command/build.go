package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/sketchctl/internal/build"
	"github.com/joeycumines/sketchctl/internal/config"
	"github.com/joeycumines/sketchctl/internal/intellisense"
	"github.com/joeycumines/sketchctl/internal/project"
)

var modeDescriptions = map[build.Mode]string{
	build.Verify:              "Compile the sketch for the current board",
	build.Analyze:             "Compile verbosely to regenerate IntelliSense settings",
	build.Upload:              "Compile the sketch and upload it over the serial port",
	build.CliUpload:           "Upload the last compiled sketch without compiling",
	build.UploadProgrammer:    "Compile the sketch and upload it with the selected programmer",
	build.CliUploadProgrammer: "Upload the last compiled sketch with the selected programmer",
}

// BuildCommand runs one build mode.
type BuildCommand struct {
	*BaseCommand
	env  *Env
	mode build.Mode

	buildDir string
	sketch   string
	port     string
}

// NewBuildCommand creates the command for mode.
func NewBuildCommand(env *Env, mode build.Mode) *BuildCommand {
	return &BuildCommand{
		BaseCommand: NewBaseCommand(
			mode.Command(),
			modeDescriptions[mode],
			mode.Command()+" [options]",
		),
		env:  env,
		mode: mode,
	}
}

// NewBuildCommands creates a command for every build mode.
func NewBuildCommands(env *Env) []*BuildCommand {
	modes := build.Modes()
	cmds := make([]*BuildCommand, 0, len(modes))
	for _, m := range modes {
		cmds = append(cmds, NewBuildCommand(env, m))
	}
	return cmds
}

// SetupFlags configures the flags for the build command.
func (c *BuildCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.buildDir, "build-dir", "", "Output directory, overriding \"output\" in "+project.FileName)
	fs.StringVar(&c.sketch, "sketch", "", "Sketch to build, overriding \"sketch\" in "+project.FileName)
	if c.mode.IsUpload() {
		fs.StringVar(&c.port, "port", "", "Serial port, overriding \"port\" in "+project.FileName)
	}
}

// Execute runs the build and fails if it did not succeed.
func (c *BuildCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	schema := config.DefaultSchema()
	cfg := c.env.Config

	toolchain, err := c.env.toolchain()
	if err != nil {
		return err
	}
	ws, err := c.env.openWorkspace(stderr)
	if err != nil {
		return err
	}

	defaultPort := schema.ResolveCommand(cfg, "upload", "port")
	ws.UpdateSettings(func(s *project.Settings) {
		if c.sketch != "" {
			s.Sketch = c.sketch
		}
		if c.port != "" {
			s.Port = c.port
		} else if s.Port == "" {
			s.Port = defaultPort
		}
	})

	opts := build.Options{
		Toolchain: toolchain,
		Verbose:   schema.ResolveBool(cfg, config.KeyVerbose),
		Output:    stdout,
		Notifier:  c.env.notifier(stderr),
		Prompter:  c.env.prompter(ws, stderr),
		Logger:    c.env.Logger,
	}
	if schema.ResolveBool(cfg, config.KeyIntelliSense) {
		logger := c.env.Logger
		opts.NewOutputParser = func(root string) build.OutputParser {
			return intellisense.New(root, logger)
		}
	}

	if timeout := schema.ResolveDuration(cfg, config.KeyBuildTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if !build.New(ws, opts).Build(ctx, c.mode, c.buildDir) {
		return fmt.Errorf("%s failed", c.mode.Command())
	}
	return nil
}
