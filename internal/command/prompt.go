package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joeycumines/sketchctl/internal/project"
)

// sketchSearchDepth limits how many directories below the root are scanned
// for sketches.
const sketchSearchDepth = 2

// Prompter resolves missing build inputs on the terminal. It implements
// build.Prompter.
type Prompter struct {
	root string
	in   io.Reader
	out  io.Writer
	// interactive is false when in is not a terminal; prompts then only
	// print guidance.
	interactive bool
}

// NewPrompter returns a Prompter reading answers from in.
func NewPrompter(root string, in io.Reader, out io.Writer) *Prompter {
	return &Prompter{root: root, in: in, out: out, interactive: isTerminal(in)}
}

// SelectSketch picks the sketch to build. A single candidate is chosen
// without asking.
func (p *Prompter) SelectSketch(ctx context.Context) (string, error) {
	sketches, err := FindSketches(p.root)
	if err != nil {
		return "", err
	}
	switch len(sketches) {
	case 0:
		_, _ = fmt.Fprintf(p.out, "No sketch (*.ino) found under %s.\n", p.root)
		return "", nil
	case 1:
		_, _ = fmt.Fprintf(p.out, "Using sketch %s.\n", sketches[0])
		return sketches[0], nil
	}

	_, _ = fmt.Fprintln(p.out, "Select a sketch:")
	for i, s := range sketches {
		_, _ = fmt.Fprintf(p.out, "  %d) %s\n", i+1, s)
	}
	if !p.interactive {
		_, _ = fmt.Fprintf(p.out, "Pass --sketch or set \"sketch\" in %s.\n", project.FileName)
		return "", nil
	}

	_, _ = fmt.Fprint(p.out, "> ")
	answer, err := readLine(ctx, p.in)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(sketches) {
		return "", nil
	}
	return sketches[n-1], nil
}

// SelectSerialPort prints how to choose a port. It never blocks.
func (p *Prompter) SelectSerialPort(context.Context) error {
	_, _ = fmt.Fprintf(p.out, "No serial port selected. Pass --port or set \"port\" in %s.\n", project.FileName)
	return nil
}

// FindSketches lists *.ino files under root, slash separated and relative
// to it, skipping hidden directories.
func FindSketches(root string) ([]string, error) {
	var sketches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || strings.Count(filepath.ToSlash(rel), "/") >= sketchSearchDepth) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".ino") {
			sketches = append(sketches, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for sketches: %w", err)
	}
	return sketches, nil
}

// readLine reads one line from r, giving up when ctx is done.
func readLine(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		ch <- result{line, err}
	}()
	select {
	case res := <-ch:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
