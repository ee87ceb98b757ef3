package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigPathEnvOverride(t *testing.T) {
	t.Setenv(ConfigEnvVar, "/tmp/custom-config")

	got, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-config", got)
}

func TestGetConfigPathDefault(t *testing.T) {
	dir := t.TempDir()
	homeVar := "HOME"
	if runtime.GOOS == "windows" {
		homeVar = "USERPROFILE"
	}
	t.Setenv(homeVar, dir)
	t.Setenv(ConfigEnvVar, "")

	got, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".sketchctl", "config"), got)
}

func TestSetKeyInFileCreatesConfigDirectory(t *testing.T) {
	t.Parallel()
	configPath := filepath.Join(t.TempDir(), "nested", ".sketchctl", "config")

	require.NoError(t, SetKeyInFile(configPath, KeyColor, "never"))
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "color never", string(data))
}

func TestSetKeyInFileFailsWhenParentIsFile(t *testing.T) {
	t.Parallel()
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))

	assert.Error(t, SetKeyInFile(filepath.Join(parent, "config"), KeyColor, "never"))
}
