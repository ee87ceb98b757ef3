// Package packageindex merges platform records from package index documents
// and installed hardware folders into one deduplicated set, and loads the
// boards and programmers of every installed platform.
package packageindex

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/sketchctl/internal/board"
)

// Document is a package index, e.g. package_index.json.
type Document struct {
	Packages []Package `json:"packages"`
}

// Package is one vendor entry of a Document.
type Package struct {
	Name       string            `json:"name"`
	Maintainer string            `json:"maintainer,omitempty"`
	WebsiteURL string            `json:"websiteURL,omitempty"`
	Platforms  []PlatformRelease `json:"platforms"`
}

// PlatformRelease is one version of a platform as advertised by an index.
type PlatformRelease struct {
	Name         string          `json:"name"`
	Architecture string          `json:"architecture"`
	Version      string          `json:"version"`
	Category     string          `json:"category,omitempty"`
	Boards       []board.Summary `json:"boards"`
}

// Decode reads a Document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode package index: %w", err)
	}
	return &doc, nil
}

// ReadFile reads a Document from path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package index: %w", err)
	}
	defer f.Close()
	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
