package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/config"
	"github.com/joeycumines/sketchctl/internal/workspace"
)

// BoardsCommand lists boards grouped by platform.
type BoardsCommand struct {
	*BaseCommand
	env *Env
	all bool
}

// NewBoardsCommand creates a new boards command.
func NewBoardsCommand(env *Env) *BoardsCommand {
	return &BoardsCommand{
		BaseCommand: NewBaseCommand(
			"boards",
			"List boards of the installed platforms",
			"boards [options]",
		),
		env: env,
	}
}

// SetupFlags configures the flags for the boards command.
func (c *BoardsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "Also list platforms that are available but not installed")
}

// Execute lists the boards.
func (c *BoardsCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	ws, err := c.env.openWorkspace(stderr)
	if err != nil {
		return err
	}
	all := c.all || config.DefaultSchema().ResolveCommandBool(c.env.Config, "boards", "all")
	current := ws.CurrentBoard()

	listed := 0
	for _, p := range ws.Platforms() {
		if !p.Installed() && !all {
			continue
		}
		if listed > 0 {
			_, _ = fmt.Fprintln(stdout, "")
		}
		listed++
		_, _ = fmt.Fprintln(stdout, platformHeader(p))

		if !p.Installed() {
			for _, s := range p.Boards {
				_, _ = fmt.Fprintf(stdout, "    %s\n", s.Name)
			}
			continue
		}

		var rows [][]string
		for _, b := range p.InstalledBoards {
			marker := " "
			if b == current {
				marker = "*"
			}
			row := []string{marker, b.Key().String(), b.Name()}
			if custom := b.CustomConfigString(); custom != "" {
				row = append(row, "["+custom+"]")
			}
			rows = append(rows, row)
		}
		writeColumns(stdout, "  ", rows)
	}

	if listed == 0 {
		_, _ = fmt.Fprintln(stdout, "No platforms installed.")
	}
	return nil
}

// platformHeader renders "Name (pkg:arch) version", deriving a title from
// the key when the platform has no name.
func platformHeader(p *board.Platform) string {
	name := p.Name
	if name == "" {
		name = cases.Title(language.Und).String(strings.ToLower(p.PackageName + " " + p.Architecture))
	}
	header := fmt.Sprintf("%s (%s)", name, p.Key())
	if p.Installed() {
		if p.InstalledVersion != "" {
			header += " " + p.InstalledVersion
		}
		return header
	}
	if p.Version != "" {
		header += " " + p.Version
	}
	return header + " - not installed"
}

// ProgrammersCommand lists programmers, or selects one.
type ProgrammersCommand struct {
	*BaseCommand
	env *Env
}

// NewProgrammersCommand creates a new programmers command.
func NewProgrammersCommand(env *Env) *ProgrammersCommand {
	return &ProgrammersCommand{
		BaseCommand: NewBaseCommand(
			"programmers",
			"List programmers, or select one for the project",
			"programmers [package:programmer]",
		),
		env: env,
	}
}

// Execute lists the programmers or selects args[0].
func (c *ProgrammersCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args[1:])
		return fmt.Errorf("unexpected arguments")
	}
	ws, err := c.env.openWorkspace(stderr)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := ws.SelectProgrammer(args[0]); err != nil {
			return err
		}
		if err := ws.PersistProject(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Selected programmer %s\n", args[0])
		return nil
	}

	programmers := ws.Programmers()
	if len(programmers) == 0 {
		_, _ = fmt.Fprintln(stdout, "No programmers installed.")
		return nil
	}
	current := ws.CurrentProgrammer()
	rows := make([][]string, 0, len(programmers))
	for _, p := range programmers {
		marker := " "
		if p == current {
			marker = "*"
		}
		rows = append(rows, []string{marker, p.Key(), p.Name()})
	}
	writeColumns(stdout, "", rows)
	return nil
}

// SelectCommand selects the project's board.
type SelectCommand struct {
	*BaseCommand
	env *Env
}

// NewSelectCommand creates a new select command.
func NewSelectCommand(env *Env) *SelectCommand {
	return &SelectCommand{
		BaseCommand: NewBaseCommand(
			"select",
			"Select the board the project builds for",
			"select <package:arch:board[:config]>",
		),
		env: env,
	}
}

// Execute selects args[0], applying its configuration suffix if present.
func (c *SelectCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "expected exactly one board key")
		return fmt.Errorf("invalid arguments")
	}
	key, suffix, err := board.ParseKey(args[0])
	if err != nil {
		return err
	}
	ws, err := c.env.openWorkspace(stderr)
	if err != nil {
		return err
	}
	persist, unsubscribe := persistOnChange(ws)
	defer unsubscribe()

	if err := ws.SelectBoard(key); err != nil {
		return err
	}
	if suffix != "" {
		res, err := ws.LoadConfig(suffix)
		if err != nil {
			return err
		}
		if !res.OK() {
			return rejectConfig(ws, suffix, res, persist, stderr)
		}
	}
	if err := persist(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Selected %s\n", ws.CurrentBoard().BuildConfigString())
	return nil
}

// BoardConfigCommand shows or changes the current board's configuration.
type BoardConfigCommand struct {
	*BaseCommand
	env   *Env
	reset bool
}

// NewBoardConfigCommand creates a new board-config command.
func NewBoardConfigCommand(env *Env) *BoardConfigCommand {
	return &BoardConfigCommand{
		BaseCommand: NewBaseCommand(
			"board-config",
			"Show or change the current board's configuration",
			"board-config [options] [menu=option,...]",
		),
		env: env,
	}
}

// SetupFlags configures the flags for the board-config command.
func (c *BoardConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.reset, "reset", false, "Restore the default of every menu")
}

// Execute shows the configuration, or applies args[0] and reports the result.
func (c *BoardConfigCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args[1:])
		return fmt.Errorf("unexpected arguments")
	}
	ws, err := c.env.openWorkspace(stderr)
	if err != nil {
		return err
	}
	b := ws.CurrentBoard()
	if b == nil {
		return workspace.ErrNoBoard
	}

	if c.reset || len(args) == 1 {
		persist, unsubscribe := persistOnChange(ws)
		defer unsubscribe()
		if c.reset {
			if err := ws.ResetConfig(); err != nil {
				return err
			}
		}
		if len(args) == 1 {
			res, err := ws.LoadConfig(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "Configuration %q: %s\n", args[0], res)
			if !res.OK() {
				return rejectConfig(ws, args[0], res, persist, stderr)
			}
		}
		if err := persist(); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(stdout, b.BuildConfigString())
	for _, item := range b.ConfigItems() {
		_, _ = fmt.Fprintf(stdout, "  %s (%s)\n", item.DisplayName, item.ID)
		rows := make([][]string, 0, len(item.Options))
		for _, o := range item.Options {
			marker := " "
			if o.ID == item.Selected {
				marker = "*"
			}
			rows = append(rows, []string{marker, o.ID, o.DisplayName})
		}
		writeColumns(stdout, "    ", rows)
	}
	return nil
}

// persistOnChange subscribes to ws and records whether the board or its
// configuration changed. persist writes the project file if so.
func persistOnChange(ws *workspace.Workspace) (persist func() error, unsubscribe func()) {
	changed := false
	unsubscribe = ws.Subscribe(workspace.ObserverFuncs{
		OnBoard:  func(*board.Board) { changed = true },
		OnConfig: func(*board.Board) { changed = true },
	})
	return func() error {
		if !changed {
			return nil
		}
		changed = false
		return ws.PersistProject()
	}, unsubscribe
}

// rejectConfig restores the defaults a failed load may have partially
// overwritten, persists them, and returns the load failure.
func rejectConfig(ws *workspace.Workspace, config string, res board.ConfigResult, persist func() error, stderr io.Writer) error {
	if err := ws.ResetConfig(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stderr, "Invalid board configuration %q (%s); using defaults %q.\n", config, res, ws.CurrentBoard().CustomConfigString())
	if err := persist(); err != nil {
		return err
	}
	return fmt.Errorf("invalid board configuration %q: %s", config, res)
}

// writeColumns writes rows with every column but the last padded to its
// widest cell, measured in terminal cells.
func writeColumns(w io.Writer, indent string, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], uniseg.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var sb strings.Builder
		sb.WriteString(indent)
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-uniseg.StringWidth(cell)))
			}
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}
