// Package project reads and writes the per-workspace settings file that
// records the sketch, board, port and build hooks.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/sketchctl/internal/storage"
)

// FileName is the settings file inside the workspace root.
const FileName = "sketchctl.yaml"

// Preference is one build preference, serialized as a [key, value] pair.
type Preference struct {
	Key   string
	Value string
}

// MarshalYAML implements yaml.Marshaler, emitting a flow sequence.
func (p Preference) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.SequenceNode,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		},
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Preference) UnmarshalYAML(node *yaml.Node) error {
	var pair []string
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: build preference must be a [key, value] pair, got %d elements", node.Line, len(pair))
	}
	p.Key, p.Value = pair[0], pair[1]
	return nil
}

// Settings is the content of the settings file. Empty fields are omitted.
type Settings struct {
	Sketch           string       `yaml:"sketch,omitempty"`
	Board            string       `yaml:"board,omitempty"`
	Configuration    string       `yaml:"configuration,omitempty"`
	Port             string       `yaml:"port,omitempty"`
	Programmer       string       `yaml:"programmer,omitempty"`
	Output           string       `yaml:"output,omitempty"`
	Prebuild         string       `yaml:"prebuild,omitempty"`
	Postbuild        string       `yaml:"postbuild,omitempty"`
	BuildPreferences []Preference `yaml:"buildPreferences,omitempty"`
}

// Path returns the settings file path for a workspace root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Decode parses settings. JSON documents are accepted.
func Decode(r io.Reader) (*Settings, error) {
	var s Settings
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, err
	}
	return &s, nil
}

// Load reads the settings for root. A missing file yields empty settings.
func Load(root string) (*Settings, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read project settings: %w", err)
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Encode renders settings as YAML.
func Encode(s *Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the settings for root atomically under the file's lock. A
// concurrent writer makes it fail with storage.ErrWouldBlock.
func Save(root string, s *Settings) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("failed to encode project settings: %w", err)
	}
	if err := storage.WriteFileLocked(Path(root), data, 0644); err != nil {
		return fmt.Errorf("failed to save project settings: %w", err)
	}
	return nil
}

// Update loads, mutates and saves the settings for root while holding the
// lock, so concurrent updates cannot lose each other's fields.
func Update(root string, fn func(*Settings) error) error {
	path := Path(root)
	return storage.WithLock(path, func() error {
		s, err := Load(root)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		data, err := Encode(s)
		if err != nil {
			return fmt.Errorf("failed to encode project settings: %w", err)
		}
		return storage.AtomicWriteFile(path, data, 0644)
	})
}

// Preference returns the value of key, if set.
func (s *Settings) Preference(key string) (string, bool) {
	for _, p := range s.BuildPreferences {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}
