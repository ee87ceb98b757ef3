// Package intellisense derives editor IntelliSense settings from the
// compiler invocations a verbose build prints.
package intellisense

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/joeycumines/sketchctl/internal/argv"
	"github.com/joeycumines/sketchctl/internal/storage"
)

// ConfigurationName is the entry written into c_cpp_properties.json.
const ConfigurationName = "Arduino"

// compilerRe matches the executable of a GCC or Clang style C++ compiler,
// including cross-compiler prefixes such as avr-g++ or xtensa-esp32-elf-g++.
var compilerRe = regexp.MustCompile(`(?i)(?:^|[-/\\])(?:g\+\+|c\+\+|clang\+\+)(?:\.exe)?$`)

// Parser collects the settings of the sketch's compile command. Feed it
// output lines with Line, then call Finalize once the build is over.
type Parser struct {
	root   string
	logger *slog.Logger

	mu           sync.Mutex
	seen         bool
	compilerPath string
	cppStandard  string
	includes     []string
	defines      []string
}

// New creates a Parser writing into root/.vscode.
func New(root string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{root: root, logger: logger}
}

// Path returns the file Finalize writes.
func (p *Parser) Path() string {
	return filepath.Join(p.root, ".vscode", "c_cpp_properties.json")
}

// Line inspects one line of toolchain output. Only the command compiling
// the preprocessed sketch (a *.ino.cpp source) is used; the first such
// command wins.
func (p *Parser) Line(line string) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, ".ino.cpp") {
		return
	}
	args, err := argv.Split(line)
	if err != nil || len(args) < 2 || !compilerRe.MatchString(args[0]) {
		return
	}
	if !slices.ContainsFunc(args[1:], func(a string) bool { return strings.HasSuffix(a, ".ino.cpp") }) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen {
		return
	}
	p.seen = true
	p.compilerPath = args[0]

	for i := 1; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-I" || a == "-D":
			if i+1 < len(args) {
				i++
				p.add(a, args[i])
			}
		case strings.HasPrefix(a, "-I"), strings.HasPrefix(a, "-D"):
			p.add(a[:2], a[2:])
		case strings.HasPrefix(a, "-std="):
			p.cppStandard = normalizeStandard(strings.TrimPrefix(a, "-std="))
		}
	}
	p.logger.Debug("captured compiler invocation", "compiler", p.compilerPath, "includes", len(p.includes), "defines", len(p.defines))
}

func (p *Parser) add(flag, value string) {
	if value == "" {
		return
	}
	switch flag {
	case "-I":
		if !slices.Contains(p.includes, value) {
			p.includes = append(p.includes, value)
		}
	case "-D":
		if !slices.Contains(p.defines, value) {
			p.defines = append(p.defines, value)
		}
	}
}

// normalizeStandard maps GNU dialects to the ISO names the editor accepts.
func normalizeStandard(s string) string {
	s = strings.ToLower(s)
	if rest, ok := strings.CutPrefix(s, "gnu++"); ok {
		return "c++" + rest
	}
	if rest, ok := strings.CutPrefix(s, "gnu"); ok {
		return "c" + rest
	}
	return s
}

// Seen reports whether a compile command was captured.
func (p *Parser) Seen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen
}

// Configuration is one entry of c_cpp_properties.json.
type Configuration struct {
	Name             string   `json:"name"`
	CompilerPath     string   `json:"compilerPath"`
	CompilerArgs     []string `json:"compilerArgs"`
	IntelliSenseMode string   `json:"intelliSenseMode"`
	IncludePath      []string `json:"includePath"`
	ForcedInclude    []string `json:"forcedInclude"`
	CStandard        string   `json:"cStandard"`
	CppStandard      string   `json:"cppStandard"`
	Defines          []string `json:"defines"`
}

// Configuration returns the captured settings. ok is false when no compile
// command was seen.
func (p *Parser) Configuration() (cfg Configuration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen {
		return cfg, false
	}
	cfg = Configuration{
		Name:             ConfigurationName,
		CompilerPath:     p.compilerPath,
		CompilerArgs:     []string{},
		IntelliSenseMode: "gcc-x64",
		IncludePath:      slices.Clone(p.includes),
		ForcedInclude:    []string{},
		CStandard:        "c11",
		CppStandard:      p.cppStandard,
		Defines:          slices.Clone(p.defines),
	}
	if cfg.CppStandard == "" {
		cfg.CppStandard = "c++11"
	}
	if cfg.IncludePath == nil {
		cfg.IncludePath = []string{}
	}
	if cfg.Defines == nil {
		cfg.Defines = []string{}
	}
	for _, dir := range p.includes {
		header := filepath.Join(dir, "Arduino.h")
		if info, err := os.Stat(header); err == nil && !info.IsDir() {
			cfg.ForcedInclude = append(cfg.ForcedInclude, header)
			break
		}
	}
	return cfg, true
}

// Finalize writes the captured configuration, replacing any existing entry
// of the same name and keeping the others. Nothing is written when no
// compile command was seen.
func (p *Parser) Finalize() error {
	cfg, ok := p.Configuration()
	if !ok {
		p.logger.Debug("no compiler invocation captured, IntelliSense settings unchanged")
		return nil
	}

	path := p.Path()
	doc, err := readProperties(path)
	if err != nil {
		return err
	}

	entry, err := toMap(cfg)
	if err != nil {
		return err
	}
	replaced := false
	for i, c := range doc.Configurations {
		if name, _ := c["name"].(string); name == ConfigurationName {
			doc.Configurations[i] = entry
			replaced = true
		}
	}
	if !replaced {
		doc.Configurations = append(doc.Configurations, entry)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode IntelliSense settings: %w", err)
	}
	if err := storage.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write IntelliSense settings: %w", err)
	}
	p.logger.Info("IntelliSense settings updated", "path", path)
	return nil
}

type propertiesFile struct {
	Version        int              `json:"version"`
	Configurations []map[string]any `json:"configurations"`
}

func readProperties(path string) (*propertiesFile, error) {
	doc := &propertiesFile{Version: 4}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read IntelliSense settings: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Version == 0 {
		doc.Version = 4
	}
	return doc, nil
}

func toMap(cfg Configuration) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
