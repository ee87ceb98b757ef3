package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader(t *testing.T) {
	t.Parallel()
	input := `# global
verbose true
toolchain.path /opt/arduino
toolchain.extra-args --warnings all

[boards]
all yes

[upload]
port /dev/ttyUSB0
`
	cfg, err := LoadFromReader(strings.NewReader(input))
	require.NoError(t, err)

	v, ok := cfg.GetGlobalOption("verbose")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
	assert.Equal(t, "/opt/arduino", cfg.Global["toolchain.path"])
	assert.Equal(t, "--warnings all", cfg.Global["toolchain.extra-args"])

	v, ok = cfg.GetCommandOption("boards", "all")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	v, ok = cfg.GetCommandOption("upload", "verbose")
	assert.True(t, ok, "command lookup falls back to global")
	assert.Equal(t, "true", v)

	assert.False(t, cfg.HasWarnings(), "warnings: %v", cfg.Warnings)
}

func TestLoadFromReader_WarnsOnUnknownAndMistyped(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("bogus 1\nverbose maybe\nlog.max-files many\n"))
	require.NoError(t, err)

	require.Len(t, cfg.Warnings, 3)
	joined := strings.Join(cfg.Warnings, "\n")
	assert.Contains(t, joined, `unknown global option: "bogus"`)
	assert.Contains(t, joined, `global option "verbose": expected bool`)
	assert.Contains(t, joined, `global option "log.max-files": expected int`)
}

func TestLoadFromReader_EmptyAndCommentsOnly(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("\n   \n# nothing here\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Global)
	assert.Empty(t, cfg.Commands)
}

func TestLoadFromReader_OptionWithoutValue(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("toolchain.extra-args\n"))
	require.NoError(t, err)
	v, ok := cfg.GetGlobalOption("toolchain.extra-args")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestSetGlobalAndCommandOptions(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	cfg.SetGlobalOption("color", "never")
	cfg.SetCommandOption("upload", "port", "COM3")

	v, _ := cfg.GetCommandOption("upload", "port")
	assert.Equal(t, "COM3", v)
	v, _ = cfg.GetCommandOption("upload", "color")
	assert.Equal(t, "never", v)
	_, ok := cfg.GetCommandOption("boards", "port")
	assert.False(t, ok)
}

func TestLoadFromPath(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, cfg.Global)
	})

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config")
		require.NoError(t, os.WriteFile(path, []byte("sketchbook.path /home/me/Arduino\n"), 0644))
		cfg, err := LoadFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, "/home/me/Arduino", cfg.Global["sketchbook.path"])
	})

	t.Run("symlink rejected", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on Windows")
		}
		dir := t.TempDir()
		target := filepath.Join(dir, "real")
		require.NoError(t, os.WriteFile(target, []byte("verbose true\n"), 0644))
		link := filepath.Join(dir, "config")
		require.NoError(t, os.Symlink(target, link))

		_, err := LoadFromPath(link)
		assert.ErrorContains(t, err, "symlink not allowed")
	})
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom")
	require.NoError(t, os.WriteFile(path, []byte("color always\n"), 0644))
	t.Setenv(ConfigEnvVar, path)

	configPath, err := GetConfigPath()
	require.NoError(t, err)
	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, "always", cfg.Global["color"])
}

func TestLoadFromReader_MalformedSectionAndTabs(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("verbose\ttrue\n[upload\nport COM1\n[]\n[ boards ]\nall on\n"))
	require.NoError(t, err)

	assert.Equal(t, "true", cfg.Global["verbose"])
	assert.Equal(t, "COM1", cfg.Global["port"], "options after a malformed header stay in the previous section")
	assert.Equal(t, "on", cfg.Commands["boards"]["all"])
	require.Len(t, cfg.Warnings, 3)
	assert.Equal(t, `line 2: malformed section header "[upload"`, cfg.Warnings[0])
	assert.Equal(t, `line 4: malformed section header "[]"`, cfg.Warnings[1])
	assert.Equal(t, `unknown global option: "port" (value: "COM1")`, cfg.Warnings[2])
}
