package build

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/joeycumines/sketchctl/internal/linebuf"
)

// stderrNoise are toolchain diagnostics hidden unless verbose.
var stderrNoise = []*regexp.Regexp{
	regexp.MustCompile(`^Picked\sup\sJAVA_TOOL_OPTIONS:\s+`),
	regexp.MustCompile(`^\d+\d+-\d+-\d+T\d+:\d+:\d+.\d+Z\s(?:INFO|WARN)\s`),
	regexp.MustCompile(`^(?:DEBUG|TRACE|INFO)\s+`),
}

// lineBreaks matches the CR/LF runs rewritten to linebuf.EOL on Windows.
var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// sizeSummary matches the memory usage lines shown even when not verbose.
var sizeSummary = regexp.MustCompile(`^(?:Sketch uses |Global variables use )`)

// channel is the build output stream shown to the user. Writes are
// serialized since stdout and stderr are copied concurrently.
type channel struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *channel) append(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

func (c *channel) appendLine(format string, args ...any) {
	c.append(fmt.Sprintf(format, args...) + linebuf.EOL)
}

func (c *channel) start(msg string)   { c.appendLine("[Starting] %s", msg) }
func (c *channel) done(msg string)    { c.appendLine("[Done] %s", msg) }
func (c *channel) info(msg string)    { c.appendLine("[Info] %s", msg) }
func (c *channel) warning(msg string) { c.appendLine("[Warning] %s", msg) }
func (c *channel) error(msg string)   { c.appendLine("[Error] %s", msg) }

// outputSink routes toolchain output lines to the channel and the parser.
type outputSink struct {
	ch      *channel
	parser  OutputParser
	verbose bool
	windows bool

	parserMu sync.Mutex
}

func (s *outputSink) stdout(line string) {
	if s.parser != nil {
		s.parserMu.Lock()
		s.parser.Line(line)
		s.parserMu.Unlock()
	}
	if s.verbose || sizeSummary.MatchString(line) {
		s.ch.append(line)
	}
}

func (s *outputSink) stderr(line string) {
	if s.windows {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		line = lineBreaks.ReplaceAllLiteralString(line, linebuf.EOL) + linebuf.EOL
	}
	if !s.verbose {
		for _, re := range stderrNoise {
			if re.MatchString(line) {
				return
			}
		}
	}
	s.ch.append(line)
}
