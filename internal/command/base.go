package command

import (
	"context"
	"flag"
	"fmt"
	"io"
)

// Command is one sketchctl subcommand. The registry binds flags with
// SetupFlags, parses them, and passes the remaining arguments to Execute.
type Command interface {
	Name() string
	Description() string
	Usage() string
	SetupFlags(fs *flag.FlagSet)
	Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// BaseCommand supplies the descriptive half of Command, and a SetupFlags
// that binds nothing. Commands embed it.
type BaseCommand struct {
	name, description, usage string
}

func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{name: name, description: description, usage: usage}
}

func (c *BaseCommand) Name() string             { return c.name }
func (c *BaseCommand) Description() string      { return c.description }
func (c *BaseCommand) Usage() string            { return c.usage }
func (c *BaseCommand) SetupFlags(*flag.FlagSet) {}

// noArgs rejects positional arguments for commands that take none.
func noArgs(args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
	return fmt.Errorf("unexpected arguments")
}
