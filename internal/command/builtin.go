package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/joeycumines/sketchctl/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	program := c.registry.Program()
	if len(args) == 0 {
		_, _ = fmt.Fprintf(stdout, "%s - build and upload embedded sketches from your terminal\n", program)
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintf(stdout, "Usage: %s <command> [options] [args...]\n", program)
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintf(stdout, "Use '%s help <command>' for more information about a specific command (includes flags).\n", program)
		return nil
	}

	cmdName := args[0]
	cmd, err := c.registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s %s\n", program, cmd.Usage())

	// Show command-specific flags (if any) by invoking SetupFlags on a temporary FlagSet
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
	cfg     *config.Config
	format  string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string, cfg *config.Config) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
		cfg:     cfg,
	}
}

// SetupFlags configures the flags for the version command.
func (c *VersionCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "", "Output format: full (default) or short")
}

// Execute displays version information.
func (c *VersionCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	format := c.format
	if format == "" {
		format = config.DefaultSchema().ResolveCommand(c.cfg, "version", "format")
	}
	switch format {
	case "short":
		_, _ = fmt.Fprintln(stdout, c.version)
	case "", "full":
		_, _ = fmt.Fprintf(stdout, "sketchctl version %s\n", c.version)
	default:
		return fmt.Errorf("invalid version format: %s", format)
	}
	return nil
}

// ConfigCommand reads and writes the global configuration file.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showAll    bool
}

// NewConfigCommand creates a new config command. An empty configPath means
// changes are not written to disk.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show or change configuration settings",
			"config [--all] [validate | schema | <key> [value]]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show every effective setting and where it comes from")
}

func (c *ConfigCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	schema := config.DefaultSchema()

	if len(args) == 0 {
		if c.showAll {
			c.printAll(schema, stdout)
			return nil
		}
		writeColumns(stdout, "  ", [][]string{
			{"config <key>", "Show the effective value of a key"},
			{"config <key> <value>", "Set a global key in " + c.describePath()},
			{"config --all", "Show every setting"},
			{"config validate", "Check the configuration file"},
			{"config schema", "Describe every known option"},
		})
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(schema, stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil
	}

	switch len(args) {
	case 1:
		key := args[0]
		if _, inFile := c.config.GetGlobalOption(key); !inFile && !schema.IsKnown("", key) {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
			return nil
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.Resolve(c.config, key))
		return nil

	case 2:
		key, value := args[0], args[1]
		if !schema.IsKnown("", key) {
			_, _ = fmt.Fprintf(stderr, "Warning: unknown configuration key '%s'\n", key)
		} else if err := schema.ValidateValue("", key, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if c.configPath != "" {
			if err := config.SetKeyInFile(c.configPath, key, value); err != nil {
				return fmt.Errorf("failed to persist config to disk: %w", err)
			}
		}
		c.config.SetGlobalOption(key, value)
		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) describePath() string {
	if c.configPath == "" {
		return "memory"
	}
	return c.configPath
}

// printAll lists every known global option with its effective value and
// source, then keys the schema does not know, then each [section].
func (c *ConfigCommand) printAll(schema *config.ConfigSchema, stdout io.Writer) {
	var rows [][]string
	for _, opt := range schema.GlobalOptions() {
		rows = append(rows, []string{opt.Key, schema.Resolve(c.config, opt.Key), schema.Source(c.config, opt.Key)})
	}
	for _, key := range slices.Sorted(maps.Keys(c.config.Global)) {
		if schema.Lookup("", key) == nil {
			rows = append(rows, []string{key, c.config.Global[key], "file, unknown"})
		}
	}
	_, _ = fmt.Fprintln(stdout, "Global options:")
	writeColumns(stdout, "  ", rows)

	for _, section := range slices.Sorted(maps.Keys(c.config.Commands)) {
		options := c.config.Commands[section]
		rows = rows[:0]
		for _, key := range slices.Sorted(maps.Keys(options)) {
			rows = append(rows, []string{key, options[key]})
		}
		_, _ = fmt.Fprintf(stdout, "\n[%s]\n", section)
		writeColumns(stdout, "  ", rows)
	}
}

func (c *ConfigCommand) executeValidate(schema *config.ConfigSchema, stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, schema)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}
