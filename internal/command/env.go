package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joeycumines/sketchctl/internal/config"
	"github.com/joeycumines/sketchctl/internal/packageindex"
	"github.com/joeycumines/sketchctl/internal/workspace"
)

// Env is the state shared by the commands of one invocation.
type Env struct {
	Config     *config.Config
	ConfigPath string
	// Root is the workspace root, normally the working directory.
	Root   string
	Logger *slog.Logger
	// Stdin is read by interactive prompts.
	Stdin io.Reader
}

// NewEnv returns an Env reading prompts from os.Stdin. A nil cfg is an
// empty configuration.
func NewEnv(cfg *config.Config, configPath, root string, logger *slog.Logger) *Env {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{
		Config:     cfg,
		ConfigPath: configPath,
		Root:       root,
		Logger:     logger,
		Stdin:      os.Stdin,
	}
}

// Sources locates the platform sources named by the configuration.
func (e *Env) Sources() packageindex.Sources {
	schema := config.DefaultSchema()
	var src packageindex.Sources
	if dir := schema.Resolve(e.Config, config.KeyToolchainPath); dir != "" {
		src.BundledHardware = filepath.Join(dir, "hardware")
	}
	if dir := schema.Resolve(e.Config, config.KeySketchbookPath); dir != "" {
		src.CustomHardware = filepath.Join(dir, "hardware")
	}
	src.PackagesDir = schema.Resolve(e.Config, config.KeyPackagesPath)
	src.IndexFiles = schema.ResolvePathList(e.Config, config.KeyAdditionalIndexes)
	return src
}

// openWorkspace loads every platform and applies the project settings.
// Settings problems are shown as warnings on stderr, not returned.
func (e *Env) openWorkspace(stderr io.Writer) (*workspace.Workspace, error) {
	platforms, err := packageindex.Load(e.Sources(), e.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load platforms: %w", err)
	}
	ws := workspace.New(e.Root, e.Logger)
	ws.Reload(platforms)

	warnings, err := ws.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	n := e.notifier(stderr)
	for _, w := range warnings {
		n.Warn(w)
	}
	return ws, nil
}

func (e *Env) notifier(w io.Writer) *Notifier {
	mode := config.DefaultSchema().Resolve(e.Config, config.KeyColor)
	return NewNotifier(w, ColorEnabled(mode, w))
}

func (e *Env) prompter(ws *workspace.Workspace, stderr io.Writer) *Prompter {
	return NewPrompter(ws.Root(), e.Stdin, stderr)
}
