package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/sketchctl/internal/config"
)

var completionShells = []string{"bash", "zsh", "fish"}

// CompletionCommand generates shell completion scripts.
type CompletionCommand struct {
	*BaseCommand
	registry *Registry
}

// NewCompletionCommand creates a new completion command.
func NewCompletionCommand(registry *Registry) *CompletionCommand {
	return &CompletionCommand{
		BaseCommand: NewBaseCommand(
			"completion",
			"Generate shell completion scripts",
			"completion [bash|zsh|fish]",
		),
		registry: registry,
	}
}

// Execute writes the completion script for args[0], bash by default.
func (c *CompletionCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		_, _ = fmt.Fprintf(stderr, "Too many arguments: %v\n", args[1:])
		return fmt.Errorf("too many arguments")
	}
	shell := "bash"
	if len(args) > 0 {
		shell = strings.ToLower(args[0])
	}

	var script string
	switch shell {
	case "bash":
		script = c.bash()
	case "zsh":
		script = c.zsh()
	case "fish":
		script = c.fish()
	default:
		_, _ = fmt.Fprintf(stderr, "Unsupported shell: %s\n", shell)
		_, _ = fmt.Fprintf(stderr, "Supported shells: %s\n", strings.Join(completionShells, ", "))
		return fmt.Errorf("unsupported shell: %s", shell)
	}
	_, err := io.WriteString(stdout, script)
	return err
}

func configWords() []string {
	words := []string{"validate", "schema"}
	for _, opt := range config.DefaultSchema().GlobalOptions() {
		words = append(words, opt.Key)
	}
	return words
}

func (c *CompletionCommand) bash() string {
	p := c.registry.Program()
	fn := "_" + strings.ReplaceAll(p, "-", "_") + "_completion"
	return fmt.Sprintf(`# bash completion for %[1]s
%[2]s() {
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=($(compgen -W "%[3]s" -- "${cur}"))
        return 0
    fi

    case "${prev}" in
        completion)
            COMPREPLY=($(compgen -W "%[4]s" -- "${cur}"))
            ;;
        config)
            COMPREPLY=($(compgen -W "%[5]s" -- "${cur}"))
            ;;
        --sketch|--build-dir|--file)
            COMPREPLY=($(compgen -f -- "${cur}"))
            ;;
    esac
    return 0
}
complete -F %[2]s %[1]s

# Install: source <(%[1]s completion bash)
`, p, fn, strings.Join(c.registry.List(), " "), strings.Join(completionShells, " "), strings.Join(configWords(), " "))
}

func (c *CompletionCommand) zsh() string {
	p := c.registry.Program()
	var commands strings.Builder
	for _, name := range c.registry.List() {
		if cmd, err := c.registry.Get(name); err == nil {
			fmt.Fprintf(&commands, "        '%s:%s'\n", name, zshEscape(cmd.Description()))
		}
	}
	return fmt.Sprintf(`#compdef %[1]s

_%[1]s() {
    local state
    _arguments -C '1: :->commands' '*: :->args' && return 0

    case "$state" in
        commands)
            local commands
            commands=(
%[2]s            )
            _describe 'commands' commands
            ;;
        args)
            case ${words[2]} in
                completion) _values 'shell' %[3]s ;;
                config) _values 'key' %[4]s ;;
                *) _files ;;
            esac
            ;;
    esac
}

_%[1]s "$@"

# Install: %[1]s completion zsh > "${fpath[1]}/_%[1]s"
`, p, commands.String(), quoteAll(completionShells), quoteAll(configWords()))
}

func (c *CompletionCommand) fish() string {
	p := c.registry.Program()
	var b strings.Builder
	fmt.Fprintf(&b, "# fish completion for %s\n", p)
	for _, name := range c.registry.List() {
		if cmd, err := c.registry.Get(name); err == nil {
			fmt.Fprintf(&b, "complete -c %s -n '__fish_use_subcommand' -a '%s' -d %s\n", p, name, fishQuote(cmd.Description()))
		}
	}
	fmt.Fprintf(&b, "complete -c %s -n '__fish_seen_subcommand_from completion' -a '%s'\n", p, strings.Join(completionShells, " "))
	fmt.Fprintf(&b, "complete -c %s -n '__fish_seen_subcommand_from config' -a '%s'\n", p, strings.Join(configWords(), " "))
	fmt.Fprintf(&b, "\n# Install: %s completion fish > ~/.config/fish/completions/%s.fish\n", p, p)
	return b.String()
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return strings.Join(quoted, " ")
}

func zshEscape(s string) string {
	s = strings.ReplaceAll(s, "'", `'\''`)
	return strings.ReplaceAll(s, ":", `\:`)
}

func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
