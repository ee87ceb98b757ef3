package build

import (
	"testing"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(mode Mode) plan {
	return plan{
		mode:        mode,
		boardConfig: "arduino:avr:nano:cpu=atmega328",
		sketch:      "/work/blink/blink.ino",
		port:        "/dev/ttyUSB0",
		programmer: &board.Programmer{
			ID:       "usbasp",
			Platform: &board.Platform{PackageName: "arduino", Architecture: "avr"},
		},
	}
}

func TestArguments_CLI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode Mode
		want []string
	}{
		{Verify, []string{"compile", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{Analyze, []string{"compile", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{Upload, []string{"compile", "--upload", "--port", "/dev/ttyUSB0", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{CliUpload, []string{"upload", "--port", "/dev/ttyUSB0", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{UploadProgrammer, []string{"compile", "--upload", "--programmer", "usbasp", "--port", "/dev/ttyUSB0", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{CliUploadProgrammer, []string{"upload", "--programmer", "usbasp", "--port", "/dev/ttyUSB0", "-b", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.Command(), func(t *testing.T) {
			t.Parallel()
			got, err := arguments(true, nil, testPlan(tt.mode))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArguments_Legacy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode Mode
		want []string
	}{
		{Verify, []string{"--verify", "--board", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{Upload, []string{"--upload", "--port", "/dev/ttyUSB0", "--board", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
		{UploadProgrammer, []string{"--upload", "--useprogrammer", "--pref", "programmer=arduino:usbasp", "--port", "/dev/ttyUSB0", "--board", "arduino:avr:nano:cpu=atmega328", "/work/blink/blink.ino"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.Command(), func(t *testing.T) {
			t.Parallel()
			got, err := arguments(false, nil, testPlan(tt.mode))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArguments_LegacyRejectsCLIModes(t *testing.T) {
	t.Parallel()
	for _, mode := range []Mode{CliUpload, CliUploadProgrammer} {
		_, err := arguments(false, nil, testPlan(mode))
		assert.ErrorIs(t, err, ErrUnsupportedMode, mode.Command())
	}
}

func TestArguments_ProgrammerRequired(t *testing.T) {
	t.Parallel()
	p := testPlan(UploadProgrammer)
	p.programmer = nil
	_, err := arguments(true, nil, p)
	assert.Error(t, err)
}

func TestArguments_ExtrasPreferencesVerboseBuildPath(t *testing.T) {
	t.Parallel()
	p := testPlan(Upload)
	p.preferences = []project.Preference{{Key: "compiler.cpp.extra_flags", Value: "-DFOO"}}
	p.verbose = true
	p.buildPath = "/work/out"

	got, err := arguments(true, []string{"--config-file", "x.yaml"}, p)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--config-file", "x.yaml",
		"compile", "--upload", "--port", "/dev/ttyUSB0",
		"-b", "arduino:avr:nano:cpu=atmega328",
		"--build-property", "compiler.cpp.extra_flags=-DFOO",
		"--verbose",
		"--build-path", "/work/out",
		"/work/blink/blink.ino",
	}, got)

	got, err = arguments(false, []string{"--preserve-temp-files"}, p)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--preserve-temp-files",
		"--upload", "--port", "/dev/ttyUSB0",
		"--board", "arduino:avr:nano:cpu=atmega328",
		"--pref", "compiler.cpp.extra_flags=-DFOO",
		"--verbose-build", "--verbose-upload",
		"--pref", "build.path=/work/out",
		"/work/blink/blink.ino",
	}, got)
}

func TestArguments_LegacyVerifyVerboseOmitsUploadFlag(t *testing.T) {
	t.Parallel()
	p := testPlan(Verify)
	p.verbose = true
	got, err := arguments(false, nil, p)
	require.NoError(t, err)
	assert.Contains(t, got, "--verbose-build")
	assert.NotContains(t, got, "--verbose-upload")
}

func TestArguments_NoPortOmitsFlag(t *testing.T) {
	t.Parallel()
	p := testPlan(Upload)
	p.port = ""
	got, err := arguments(true, nil, p)
	require.NoError(t, err)
	assert.NotContains(t, got, "--port")
}

func TestExternalProgrammerPattern(t *testing.T) {
	t.Parallel()
	assert.True(t, externalProgrammerRe.MatchString("STMicroelectronics:stm32:Nucleo_64:pnum=NUCLEO_F103RB,upload_method=STLink"))
	assert.True(t, externalProgrammerRe.MatchString("x:y:z:upload_method=swdMethod_stlink"))
	assert.False(t, externalProgrammerRe.MatchString("x:y:z:upload_method=serialMethod"))
	assert.False(t, externalProgrammerRe.MatchString("arduino:avr:uno"))
}

func TestHookEnv(t *testing.T) {
	t.Parallel()
	p := testPlan(Upload)
	p.buildPath = "/work/out"
	assert.Equal(t, []string{
		"BUILD_MODE=Uploading",
		"SKETCH=/work/blink/blink.ino",
		"BOARD=arduino:avr:nano:cpu=atmega328",
		"WORKSPACE_DIR=/work",
		"LOG_LEVEL=verbose",
		"SERIAL=/dev/ttyUSB0",
		"BUILD_DIR=/work/out",
	}, hookEnv(p, "/work", true))

	p = testPlan(Verify)
	p.port = ""
	assert.Equal(t, []string{
		"BUILD_MODE=Verifying",
		"SKETCH=/work/blink/blink.ino",
		"BOARD=arduino:avr:nano:cpu=atmega328",
		"WORKSPACE_DIR=/work",
		"LOG_LEVEL=info",
	}, hookEnv(p, "/work", false))
}

func TestMergeEnv_BundleLast(t *testing.T) {
	t.Setenv("BOARD", "stale")
	env := mergeEnv([]string{"BOARD=fresh"})
	require.NotEmpty(t, env)
	assert.Equal(t, "BOARD=fresh", env[len(env)-1])
}
