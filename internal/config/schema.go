package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType is how an option's value is parsed.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool" // true/false, yes/no, on/off, 1/0
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration" // time.ParseDuration syntax
	// TypePathList is split on filepath.ListSeparator.
	TypePathList OptionType = "path-list"
)

// ConfigOption declares one option.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is the [section] the option belongs to, "" for global.
	Section string
	// EnvVar, when set and present in the environment, takes precedence
	// over the file.
	EnvVar string
	// Choices restricts a string option to a fixed set of values, matched
	// case-insensitively.
	Choices []string
}

// ConfigSchema is the set of known options. It drives validation, help
// output, typed lookups and environment overrides.
type ConfigSchema struct {
	options []*ConfigOption
	index   map[schemaKey]*ConfigOption
}

type schemaKey struct{ section, key string }

// NewSchema returns an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{index: make(map[schemaKey]*ConfigOption)}
}

// Register adds opt, replacing any earlier option with the same section
// and key.
func (s *ConfigSchema) Register(opt ConfigOption) {
	k := schemaKey{opt.Section, opt.Key}
	if prev, ok := s.index[k]; ok {
		*prev = opt
		return
	}
	ref := &opt
	s.options = append(s.options, ref)
	s.index[k] = ref
}

func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the option registered under section ("" for global) and
// key, or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.index[schemaKey{section, key}]
}

// IsKnown reports whether key may appear in section. Global options may
// appear in any section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.Lookup(section, key) != nil || s.Lookup("", key) != nil
}

// GlobalOptions returns the global options in registration order.
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns the options of section in registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the names of all non-global sections, sorted.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for _, o := range s.options {
		if o.Section != "" && !slices.Contains(out, o.Section) {
			out = append(out, o.Section)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of a global key: its environment
// variable if set (even to ""), then the file, then the default. A nil
// Config is empty.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetGlobalOption(key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns every problem found in c, sorted: unknown keys and
// values that do not parse as the declared type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
		} else if err := opt.validate(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
			} else if err := opt.validate(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

// ValidateValue checks value against the option registered under section
// (falling back to global) and key. Unknown keys are not an error.
func (s *ConfigSchema) ValidateValue(section, key, value string) error {
	opt := s.Lookup(section, key)
	if opt == nil {
		opt = s.Lookup("", key)
	}
	if opt == nil {
		return nil
	}
	return opt.validate(value)
}

// Source names where Resolve found the value of a global key: "env" with
// the variable name, "file", or "default".
func (s *ConfigSchema) Source(c *Config, key string) string {
	if opt := s.Lookup("", key); opt != nil && opt.EnvVar != "" {
		if _, ok := os.LookupEnv(opt.EnvVar); ok {
			return "env " + opt.EnvVar
		}
	}
	if c != nil {
		if _, ok := c.GetGlobalOption(key); ok {
			return "file"
		}
	}
	return "default"
}

func (o *ConfigOption) validate(value string) error {
	if err := validateType(o.Type, value); err != nil {
		return err
	}
	if len(o.Choices) > 0 && !slices.ContainsFunc(o.Choices, func(c string) bool { return strings.EqualFold(c, strings.TrimSpace(value)) }) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Choices, ", "), value)
	}
	return nil
}

func validateType(t OptionType, value string) error {
	var err error
	switch t {
	case TypeString, TypePathList, "":
	case TypeBool:
		_, err = parseBool(value)
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeDuration:
		_, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

// ResolveBool is Resolve parsed as a boolean; unparsable values are false.
func (s *ConfigSchema) ResolveBool(c *Config, key string) bool {
	b, err := parseBool(s.Resolve(c, key))
	return err == nil && b
}

// ResolveInt is Resolve parsed as an integer; unparsable values are 0.
func (s *ConfigSchema) ResolveInt(c *Config, key string) int {
	i, err := strconv.Atoi(s.Resolve(c, key))
	if err != nil {
		return 0
	}
	return i
}

// ResolveDuration is Resolve parsed as a time.Duration; unparsable values are 0.
func (s *ConfigSchema) ResolveDuration(c *Config, key string) time.Duration {
	d, err := time.ParseDuration(s.Resolve(c, key))
	if err != nil {
		return 0
	}
	return d
}

// ResolvePathList is Resolve split on the OS path list separator, with empty
// entries dropped.
func (s *ConfigSchema) ResolvePathList(c *Config, key string) []string {
	var out []string
	for _, p := range filepath.SplitList(s.Resolve(c, key)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolveCommand returns the effective value of key for a command: the
// [command] section value, then the section default, then Resolve.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	if c != nil {
		if v, ok := c.Commands[command][key]; ok {
			return v
		}
	}
	if opt := s.Lookup(command, key); opt != nil {
		return opt.Default
	}
	return s.Resolve(c, key)
}

// ResolveCommandBool is ResolveCommand parsed as a boolean.
func (s *ConfigSchema) ResolveCommandBool(c *Config, command, key string) bool {
	b, err := parseBool(s.ResolveCommand(c, command, key))
	return err == nil && b
}

// FormatHelp renders every option, globals first and then each section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	writeSection := func(title string, opts []ConfigOption) {
		if len(opts) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(title + "\n")
		for _, o := range opts {
			fmt.Fprintf(&b, "  %-35s %s", o.Key, o.Description)
			var notes []string
			if o.Type != "" && o.Type != TypeString {
				notes = append(notes, "type: "+string(o.Type))
			}
			if len(o.Choices) > 0 {
				notes = append(notes, "one of: "+strings.Join(o.Choices, "|"))
			}
			if o.Default != "" {
				notes = append(notes, "default: "+o.Default)
			}
			if o.EnvVar != "" {
				notes = append(notes, "env: "+o.EnvVar)
			}
			if len(notes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(notes, ", "))
			}
			b.WriteByte('\n')
		}
	}
	writeSection("Global Options:", s.GlobalOptions())
	for _, sec := range s.Sections() {
		writeSection(fmt.Sprintf("[%s] Options:", sec), s.SectionOptions(sec))
	}
	return b.String()
}

// Option keys read by the command layer.
const (
	KeyVerbose            = "verbose"
	KeyColor              = "color"
	KeyBuildTimeout       = "build.timeout"
	KeyToolchainPath      = "toolchain.path"
	KeyToolchainCommand   = "toolchain.command"
	KeyToolchainCLI       = "toolchain.cli"
	KeyToolchainExtraArgs = "toolchain.extra-args"
	KeyPackagesPath       = "packages.path"
	KeyAdditionalIndexes  = "packages.additional-indexes"
	KeySketchbookPath     = "sketchbook.path"
	KeyIntelliSense       = "intellisense.enabled"
	KeyLogFile            = "log.file"
	KeyLogLevel           = "log.level"
	KeyLogMaxSizeMB       = "log.max-size-mb"
	KeyLogMaxFiles        = "log.max-files"
)

// DefaultSchema returns the schema declaring every known option. It is the
// single source of truth for option names, types, defaults, descriptions and
// environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultCommandOptions())
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		{Key: KeyVerbose, Type: TypeBool, Default: "false", Description: "Pass the toolchain's verbose output through unfiltered", EnvVar: "SKETCHCTL_VERBOSE"},
		{Key: KeyColor, Type: TypeString, Default: "auto", Description: "Color mode for notifications", Choices: []string{"auto", "always", "never"}},
		{Key: KeyBuildTimeout, Type: TypeDuration, Default: "", Description: "Cancel a build that runs longer than this"},

		{Key: KeyToolchainPath, Type: TypeString, Default: "", Description: "Toolchain installation directory", EnvVar: "SKETCHCTL_TOOLCHAIN_PATH"},
		{Key: KeyToolchainCommand, Type: TypeString, Default: "arduino-cli", Description: "Toolchain executable, resolved against toolchain.path then PATH"},
		{Key: KeyToolchainCLI, Type: TypeBool, Default: "true", Description: "Use the standalone CLI front-end rather than the legacy IDE"},
		{Key: KeyToolchainExtraArgs, Type: TypeString, Default: "", Description: "Extra toolchain arguments (shell-quoted)"},

		{Key: KeyPackagesPath, Type: TypeString, Default: "", Description: "Directory holding package indexes and installed packages", EnvVar: "SKETCHCTL_PACKAGES_PATH"},
		{Key: KeyAdditionalIndexes, Type: TypePathList, Default: "", Description: "Additional package index documents"},
		{Key: KeySketchbookPath, Type: TypeString, Default: "", Description: "Sketchbook directory; custom hardware lives in its hardware folder"},

		{Key: KeyIntelliSense, Type: TypeBool, Default: "true", Description: "Generate editor IntelliSense settings from compiler output"},

		{Key: KeyLogFile, Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "SKETCHCTL_LOG_FILE"},
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Minimum level written to the log", EnvVar: "SKETCHCTL_LOG_LEVEL", Choices: []string{"debug", "info", "warn", "error"}},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
	}
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "format", Section: "version", Type: TypeString, Default: "full", Description: "Version output format", Choices: []string{"full", "short"}},

		{Key: "all", Section: "boards", Type: TypeBool, Default: "false", Description: "Also list platforms that are available but not installed"},

		{Key: "port", Section: "upload", Type: TypeString, Default: "", Description: "Serial port used when the project names none"},
	}
}
