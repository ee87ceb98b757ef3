package packageindex

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joeycumines/sketchctl/internal/board"
)

const (
	BoardsFile      = "boards.txt"
	ProgrammersFile = "programmers.txt"
	PlatformFile    = "platform.txt"
	// PrimaryIndex is read before any other index document.
	PrimaryIndex = "package_index.json"
)

// Sources locates every platform source, in override order. Empty fields
// are skipped.
type Sources struct {
	// BundledHardware is the toolchain's own hardware folder.
	BundledHardware string
	// CustomHardware is the user's sketchbook hardware folder.
	CustomHardware string
	// PackagesDir holds the index documents and the managed packages/
	// tree of platforms installed through the package manager.
	PackagesDir string
	// IndexFiles are read after those discovered in PackagesDir.
	IndexFiles []string
}

// Load merges every source and parses the boards and programmers of each
// installed platform. Unreadable or malformed sources and entries are
// logged and skipped; Load only fails when a configured directory could not
// be read and no platform was found anywhere else.
func Load(src Sources, logger *slog.Logger) ([]*board.Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := NewMerger(logger)

	for _, path := range IndexFiles(src) {
		doc, err := ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("package index not found", "path", path)
			} else {
				logger.Warn("skipping package index", "path", path, "error", err)
			}
			continue
		}
		m.AddDocument(doc)
	}

	var errs []error
	addInstalled := func(installed []Installed, err error) {
		if err != nil {
			logger.Warn("skipping platform source", "error", err)
			errs = append(errs, err)
		}
		m.AddInstalled(installed...)
	}
	if src.BundledHardware != "" {
		addInstalled(ScanHardwareFolder(src.BundledHardware, true, logger))
	}
	if src.CustomHardware != "" {
		addInstalled(ScanHardwareFolder(src.CustomHardware, false, logger))
	}
	if src.PackagesDir != "" {
		addInstalled(ScanPackagesFolder(filepath.Join(src.PackagesDir, "packages"), logger))
	}

	platforms := m.Platforms()
	if len(platforms) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, p := range platforms {
		if !p.Installed() {
			continue
		}
		if err := LoadInstalled(p); err != nil {
			logger.Warn("failed to load installed platform", "platform", p.Key().String(), "error", err)
		}
	}
	return platforms, nil
}

// IndexFiles lists the index documents to read, primary index first.
func IndexFiles(src Sources) []string {
	var files []string
	if src.PackagesDir != "" {
		files = append(files, filepath.Join(src.PackagesDir, PrimaryIndex))
		extra, _ := filepath.Glob(filepath.Join(src.PackagesDir, "package_*_index.json"))
		slices.Sort(extra)
		files = append(files, extra...)
	}
	for _, f := range src.IndexFiles {
		if f != "" && !slices.Contains(files, f) {
			files = append(files, f)
		}
	}
	return files
}

// LoadInstalled parses the boards and programmers of an installed platform.
// programmers.txt is optional.
func LoadInstalled(p *board.Platform) error {
	boards, err := board.ParseBoardsFile(filepath.Join(p.RootBoardPath, BoardsFile), p)
	if err != nil {
		return err
	}
	p.InstalledBoards = boards

	programmers, err := board.ParseProgrammersFile(filepath.Join(p.RootBoardPath, ProgrammersFile), p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	p.Programmers = programmers
	return nil
}

// ScanHardwareFolder finds <dir>/<package>/<arch> folders holding both a
// boards.txt and a platform.txt. A missing dir yields nothing; only an
// unreadable dir is an error. Unreadable entries below it are logged and
// skipped.
func ScanHardwareFolder(dir string, isDefault bool, logger *slog.Logger) ([]Installed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	packages, err := readDirs(dir)
	if err != nil {
		return nil, err
	}
	var out []Installed
	for _, pkg := range packages {
		archs, err := readDirs(filepath.Join(dir, pkg))
		if err != nil {
			logger.Warn("skipping hardware package", "path", filepath.Join(dir, pkg), "error", err)
			continue
		}
		for _, arch := range archs {
			root := filepath.Join(dir, pkg, arch)
			if !isFile(filepath.Join(root, BoardsFile)) || !isFile(filepath.Join(root, PlatformFile)) {
				continue
			}
			props, err := readProperties(filepath.Join(root, PlatformFile))
			if err != nil {
				logger.Warn("skipping hardware platform", "path", root, "error", err)
				continue
			}
			out = append(out, Installed{
				PackageName:   pkg,
				Architecture:  arch,
				Name:          props.Name,
				Version:       props.Version,
				RootBoardPath: root,
				Default:       isDefault,
			})
		}
	}
	return out, nil
}

// ScanPackagesFolder finds managed installs laid out as
// <dir>/<package>/hardware/<arch>/<version>. When several versions are
// present the highest one with a boards.txt is used. Error handling is as
// for ScanHardwareFolder.
func ScanPackagesFolder(dir string, logger *slog.Logger) ([]Installed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	packages, err := readDirs(dir)
	if err != nil {
		return nil, err
	}
	var out []Installed
	for _, pkg := range packages {
		hardware := filepath.Join(dir, pkg, "hardware")
		archs, err := readDirs(hardware)
		if err != nil {
			logger.Warn("skipping package", "path", hardware, "error", err)
			continue
		}
		for _, arch := range archs {
			versions, err := readDirs(filepath.Join(hardware, arch))
			if err != nil {
				logger.Warn("skipping package architecture", "path", filepath.Join(hardware, arch), "error", err)
				continue
			}
			slices.SortFunc(versions, CompareVersions)
			for i := len(versions) - 1; i >= 0; i-- {
				root := filepath.Join(hardware, arch, versions[i])
				if !isFile(filepath.Join(root, BoardsFile)) {
					continue
				}
				inst := Installed{
					PackageName:   pkg,
					Architecture:  arch,
					Version:       versions[i],
					RootBoardPath: root,
				}
				if props, err := readProperties(filepath.Join(root, PlatformFile)); err == nil {
					inst.Name = props.Name
				}
				out = append(out, inst)
				break
			}
		}
	}
	return out, nil
}

// readDirs lists the visible subdirectories of dir, sorted, following
// symlinks. A missing dir is not an error.
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hardware folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			isDir = err == nil && info.IsDir()
		}
		if isDir {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readProperties(path string) (board.Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return board.Properties{}, fmt.Errorf("failed to open platform descriptor: %w", err)
	}
	defer f.Close()
	return board.ReadProperties(f)
}
