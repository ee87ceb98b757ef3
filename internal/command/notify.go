package command

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Notifier writes user notifications as prefixed lines, styled when color
// is enabled. It implements build.Notifier.
type Notifier struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewNotifier returns a Notifier writing to w.
func NewNotifier(w io.Writer, color bool) *Notifier {
	return &Notifier{w: w, color: color}
}

func (n *Notifier) Error(msg string) { n.write(errorStyle, "error", msg) }
func (n *Notifier) Warn(msg string)  { n.write(warnStyle, "warning", msg) }
func (n *Notifier) Info(msg string)  { n.write(infoStyle, "info", msg) }

func (n *Notifier) write(style lipgloss.Style, label, msg string) {
	prefix := label + ":"
	if n.color {
		prefix = style.Render(prefix)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "%s %s\n", prefix, msg)
}

// ColorEnabled interprets the color option: always, never, or auto (the
// default), which colors only a terminal and honors NO_COLOR.
func ColorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
