package build

import (
	"os"
)

// Environment variable names passed to the pre- and post-build hooks.
const (
	EnvBuildMode    = "BUILD_MODE"
	EnvSketch       = "SKETCH"
	EnvBoard        = "BOARD"
	EnvWorkspaceDir = "WORKSPACE_DIR"
	EnvLogLevel     = "LOG_LEVEL"
	EnvSerial       = "SERIAL"
	EnvBuildDir     = "BUILD_DIR"
)

// hookEnv is the bundle describing an attempt, as KEY=VALUE pairs. SERIAL
// and BUILD_DIR are present only when set.
func hookEnv(p plan, root string, verbose bool) []string {
	level := "info"
	if verbose {
		level = "verbose"
	}
	env := []string{
		EnvBuildMode + "=" + p.mode.String(),
		EnvSketch + "=" + p.sketch,
		EnvBoard + "=" + p.boardConfig,
		EnvWorkspaceDir + "=" + root,
		EnvLogLevel + "=" + level,
	}
	if p.port != "" {
		env = append(env, EnvSerial+"="+p.port)
	}
	if p.buildPath != "" {
		env = append(env, EnvBuildDir+"="+p.buildPath)
	}
	return env
}

// mergeEnv appends bundle to the process environment. Later entries win.
func mergeEnv(bundle []string) []string {
	return append(os.Environ(), bundle...)
}
