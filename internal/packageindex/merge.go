package packageindex

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/joeycumines/sketchctl/internal/board"
)

// Installed describes a platform found on disk.
type Installed struct {
	PackageName  string
	Architecture string
	// Name and Version come from platform.txt, or the version directory.
	Name          string
	Version       string
	RootBoardPath string
	Default       bool
}

// Key returns the merge key.
func (i Installed) Key() board.PlatformKey {
	return board.PlatformKey{Package: i.PackageName, Architecture: i.Architecture}
}

// Merger accumulates platform records keyed by (package, architecture).
// Index documents contribute versions and advertised boards; installed
// sources contribute installed state, the last one added winning.
type Merger struct {
	logger    *slog.Logger
	platforms map[board.PlatformKey]*board.Platform
	order     []board.PlatformKey
}

// NewMerger returns an empty Merger. A nil logger uses slog.Default().
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		logger:    logger,
		platforms: make(map[board.PlatformKey]*board.Platform),
	}
}

func (m *Merger) record(key board.PlatformKey) (*board.Platform, bool) {
	if p, ok := m.platforms[key]; ok {
		return p, true
	}
	p := &board.Platform{PackageName: key.Package, Architecture: key.Architecture}
	m.platforms[key] = p
	m.order = append(m.order, key)
	return p, false
}

// AddDocument merges every platform release of doc.
func (m *Merger) AddDocument(doc *Document) {
	if doc == nil {
		return
	}
	for _, pkg := range doc.Packages {
		for _, rel := range pkg.Platforms {
			if pkg.Name == "" || rel.Architecture == "" {
				m.logger.Debug("skipping incomplete platform release", "package", pkg.Name, "architecture", rel.Architecture)
				continue
			}
			m.addRelease(board.PlatformKey{Package: pkg.Name, Architecture: rel.Architecture}, rel)
		}
	}
}

// addRelease records rel's version. The record's advertised boards are
// replaced, never unioned, by those of whichever version is now highest.
func (m *Merger) addRelease(key board.PlatformKey, rel PlatformRelease) {
	p, _ := m.record(key)
	if !slices.Contains(p.Versions, rel.Version) {
		p.Versions = append(p.Versions, rel.Version)
		slices.SortStableFunc(p.Versions, CompareVersions)
	}
	if rel.Version != p.Versions[len(p.Versions)-1] {
		return
	}
	p.Version = rel.Version
	p.Boards = slices.Clone(rel.Boards)
	if rel.Name != "" {
		p.Name = rel.Name
	}
}

// AddInstalled overwrites the installed state of the matching records,
// synthesising records that no index advertises. Later entries, and later
// calls, override earlier ones.
func (m *Merger) AddInstalled(installed ...Installed) {
	for _, inst := range installed {
		p, existed := m.record(inst.Key())
		p.InstalledVersion = inst.Version
		p.RootBoardPath = inst.RootBoardPath
		p.DefaultPlatform = inst.Default
		if p.Name == "" {
			p.Name = inst.Name
		}
		m.logger.Debug("installed platform",
			"platform", inst.Key().String(),
			"version", inst.Version,
			"path", inst.RootBoardPath,
			"indexed", existed)
	}
}

// Platforms returns the merged records in first-seen order.
func (m *Merger) Platforms() []*board.Platform {
	out := make([]*board.Platform, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.platforms[key])
	}
	return out
}

// CompareVersions orders versions by semantic version precedence. Strings
// that are not semantic versions sort before those that are, and among
// themselves lexically.
func CompareVersions(a, b string) int {
	va, vb := canonical(a), canonical(b)
	if c := semver.Compare(va, vb); c != 0 {
		return c
	}
	if semver.IsValid(va) && semver.IsValid(vb) {
		return 0
	}
	return cmp.Compare(a, b)
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
