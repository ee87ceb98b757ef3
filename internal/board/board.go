// Package board models hardware targets: platforms, the boards and
// programmers they supply, and each board's menu-based build options.
//
// The descriptor formats read here are the line-oriented "key=value" files
// shipped with every platform (boards.txt, programmers.txt, platform.txt).
package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned by ParseKey for malformed board keys.
var ErrInvalidKey = errors.New("invalid board key")

// PlatformKey identifies a platform across every source it is merged from.
type PlatformKey struct {
	Package      string
	Architecture string
}

func (k PlatformKey) String() string {
	return k.Package + ":" + k.Architecture
}

// Key identifies an installed board: packageName:architecture:boardId.
type Key struct {
	Package      string
	Architecture string
	Board        string
}

func (k Key) String() string {
	return k.Package + ":" + k.Architecture + ":" + k.Board
}

// Platform returns the key of the platform owning the board.
func (k Key) Platform() PlatformKey {
	return PlatformKey{Package: k.Package, Architecture: k.Architecture}
}

// ParseKey parses "package:arch:board". A trailing ":<config>" suffix, as
// produced by Board.BuildConfigString, is accepted and returned separately.
func ParseKey(s string) (Key, string, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return Key{}, "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Key{}, "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
	}
	var config string
	if len(parts) == 4 {
		config = parts[3]
	}
	return Key{Package: parts[0], Architecture: parts[1], Board: parts[2]}, config, nil
}

// Platform is a (package, architecture) pairing, tracked across every
// version advertised by the package indexes plus whatever is installed.
type Platform struct {
	PackageName  string
	Architecture string
	// Name is the human readable platform name, e.g. "Arduino AVR Boards".
	Name string
	// Version is the highest version advertised by the package indexes.
	Version string
	// InstalledVersion is empty when the platform is not installed.
	InstalledVersion string
	// RootBoardPath is the directory holding boards.txt and
	// programmers.txt; empty when the platform is not installed.
	RootBoardPath   string
	DefaultPlatform bool
	// Versions is ascending by semantic version.
	Versions []string
	// Boards lists the boards advertised by the highest indexed version.
	Boards []Summary

	InstalledBoards []*Board
	Programmers     []*Programmer
}

// Summary is a board as advertised by a package index.
type Summary struct {
	Name string `json:"name"`
}

// Key returns the platform's merge key.
func (p *Platform) Key() PlatformKey {
	return PlatformKey{Package: p.PackageName, Architecture: p.Architecture}
}

// Installed reports whether the platform has an installed copy on disk.
func (p *Platform) Installed() bool {
	return p.RootBoardPath != ""
}

// Programmer is an alternate upload tool, selectable independently of the
// board.
type Programmer struct {
	ID          string
	DisplayName string
	Platform    *Platform
}

// Key returns "package:id".
func (p *Programmer) Key() string {
	if p.Platform == nil {
		return p.ID
	}
	return p.Platform.PackageName + ":" + p.ID
}

// Name returns the display name, falling back to the id.
func (p *Programmer) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// Option is one mutually exclusive choice of a ConfigItem.
type Option struct {
	ID          string
	DisplayName string
}

// ConfigItem is a board menu, e.g. "cpu" with options "atmega328" and
// "atmega168". Selected is always the ID of one of Options.
type ConfigItem struct {
	ID          string
	DisplayName string
	Options     []Option
	Selected    string
}

// Option returns the option with the given id.
func (c *ConfigItem) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Board is a named hardware target supplied by a Platform.
type Board struct {
	ID          string
	DisplayName string
	// Platform is a back-reference; the platform owns the board.
	Platform *Platform

	configItems []*ConfigItem
}

// NewBoard returns a board with no configuration items.
func NewBoard(id string, platform *Platform) *Board {
	return &Board{ID: id, Platform: platform}
}

// Key returns the board's globally unique key.
func (b *Board) Key() Key {
	k := Key{Board: b.ID}
	if b.Platform != nil {
		k.Package = b.Platform.PackageName
		k.Architecture = b.Platform.Architecture
	}
	return k
}

// Name returns the display name, falling back to the id.
func (b *Board) Name() string {
	if b.DisplayName != "" {
		return b.DisplayName
	}
	return b.ID
}

// ConfigItems returns the board's menus in declaration order.
func (b *Board) ConfigItems() []*ConfigItem {
	return b.configItems
}

// ConfigItem returns the menu with the given id, or nil.
func (b *Board) ConfigItem(id string) *ConfigItem {
	for _, item := range b.configItems {
		if item.ID == id {
			return item
		}
	}
	return nil
}
