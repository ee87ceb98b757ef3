// Package linebuf reassembles arbitrarily chunked process output into
// complete lines.
//
// A Buffer is bound to a single stream. It is not safe for concurrent use;
// give each stream (stdout, stderr) its own Buffer.
package linebuf

import (
	"bytes"
	"io"
	"runtime"
)

// EOL is the line separator of the host platform.
var EOL = hostEOL()

func hostEOL() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Buffer accumulates chunks and invokes a callback once per complete line.
// Lines passed to the callback include their trailing separator.
type Buffer struct {
	sep    []byte
	buf    []byte
	cursor int
	fn     func(line string)
}

// New returns a Buffer splitting on the host separator, EOL.
func New(fn func(line string)) *Buffer {
	return NewWithSeparator(EOL, fn)
}

// NewWithSeparator returns a Buffer splitting on sep. An empty sep falls
// back to "\n".
func NewWithSeparator(sep string, fn func(line string)) *Buffer {
	if sep == "" {
		sep = "\n"
	}
	if fn == nil {
		fn = func(string) {}
	}
	return &Buffer{sep: []byte(sep), fn: fn}
}

// Feed appends chunk and emits every line it completes.
func (b *Buffer) Feed(chunk []byte) {
	b.buf = append(b.buf, chunk...)
	for {
		i := bytes.Index(b.buf[b.cursor:], b.sep)
		if i < 0 {
			// A separator may straddle two chunks, so the tail shorter than
			// the separator is scanned again next time.
			b.cursor = max(0, len(b.buf)-len(b.sep)+1)
			return
		}
		end := b.cursor + i + len(b.sep)
		line := string(b.buf[:end])
		n := copy(b.buf, b.buf[end:])
		b.buf = b.buf[:n]
		b.cursor = 0
		b.fn(line)
	}
}

// FeedString is Feed for string chunks.
func (b *Buffer) FeedString(chunk string) {
	b.Feed([]byte(chunk))
}

// Write implements io.Writer, so a Buffer can be wired directly to
// exec.Cmd.Stdout or exec.Cmd.Stderr. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Feed(p)
	return len(p), nil
}

// Pending returns the buffered text not yet terminated by a separator.
func (b *Buffer) Pending() string {
	return string(b.buf)
}

// Flush emits any unterminated remainder as a final line (without a
// separator) and resets the Buffer. It reports whether anything was emitted.
func (b *Buffer) Flush() bool {
	if len(b.buf) == 0 {
		return false
	}
	line := string(b.buf)
	b.buf = b.buf[:0]
	b.cursor = 0
	b.fn(line)
	return true
}

var _ io.Writer = (*Buffer)(nil)
