package command

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/joeycumines/sketchctl/internal/argv"
	"github.com/joeycumines/sketchctl/internal/build"
	"github.com/joeycumines/sketchctl/internal/config"
)

// ErrToolchainNotFound is returned when the toolchain executable cannot be
// located.
var ErrToolchainNotFound = errors.New("toolchain not found")

// toolchain resolves the configured executable: absolute paths are used
// as-is, other names are tried under toolchain.path and then on PATH.
func (e *Env) toolchain() (build.Toolchain, error) {
	schema := config.DefaultSchema()
	tc := build.Toolchain{
		CLI: schema.ResolveBool(e.Config, config.KeyToolchainCLI),
	}

	extra, err := argv.Split(schema.Resolve(e.Config, config.KeyToolchainExtraArgs))
	if err != nil {
		return tc, fmt.Errorf("invalid %s: %w", config.KeyToolchainExtraArgs, err)
	}
	tc.ExtraArgs = extra

	command := schema.Resolve(e.Config, config.KeyToolchainCommand)
	if command == "" {
		return tc, fmt.Errorf("%w: %s is empty", ErrToolchainNotFound, config.KeyToolchainCommand)
	}
	if filepath.IsAbs(command) {
		tc.Command = command
		return tc, nil
	}

	if dir := schema.Resolve(e.Config, config.KeyToolchainPath); dir != "" {
		for _, candidate := range executableNames(filepath.Join(dir, command)) {
			if isRegularFile(candidate) {
				tc.Command = candidate
				return tc, nil
			}
		}
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return tc, fmt.Errorf("%w: %s: %w", ErrToolchainNotFound, command, err)
	}
	tc.Command = path
	return tc, nil
}

func executableNames(path string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(path) == "" {
		return []string{path + ".exe", path}
	}
	return []string{path}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
