package build

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/project"
)

// ErrUnsupportedMode is returned for Cli* modes on the legacy front-end.
var ErrUnsupportedMode = errors.New("mode is not supported by the legacy IDE front-end")

// externalProgrammerRe matches board configurations whose upload method
// talks to an ST-Link style probe, which needs no serial port.
var externalProgrammerRe = regexp.MustCompile(`(?i)upload_method=[^=,]*st[^,]*link`)

// plan is everything a single attempt resolved before spawning.
type plan struct {
	mode        Mode
	boardConfig string
	sketch      string
	port        string
	programmer  *board.Programmer
	preferences []project.Preference
	buildPath   string
	verbose     bool
}

// arguments assembles the toolchain command line for p. Extra arguments
// come first and the sketch last.
func arguments(cli bool, extra []string, p plan) ([]string, error) {
	if p.mode.RequiresCLI() && !cli {
		return nil, fmt.Errorf("%s: %w", p.mode, ErrUnsupportedMode)
	}
	if p.mode.UsesProgrammer() && p.programmer == nil {
		return nil, errors.New("no programmer selected")
	}

	args := append([]string(nil), extra...)
	if cli {
		args = appendCLIArgs(args, p)
	} else {
		args = appendLegacyArgs(args, p)
	}
	return append(args, p.sketch), nil
}

func appendCLIArgs(args []string, p plan) []string {
	switch p.mode {
	case Verify, Analyze:
		args = append(args, "compile")
	case Upload:
		args = append(args, "compile", "--upload")
	case UploadProgrammer:
		args = append(args, "compile", "--upload", "--programmer", p.programmer.ID)
	case CliUpload:
		args = append(args, "upload")
	case CliUploadProgrammer:
		args = append(args, "upload", "--programmer", p.programmer.ID)
	}
	if p.mode.IsUpload() && p.port != "" {
		args = append(args, "--port", p.port)
	}

	args = append(args, "-b", p.boardConfig)
	for _, pref := range p.preferences {
		args = append(args, "--build-property", pref.Key+"="+pref.Value)
	}
	if p.verbose {
		args = append(args, "--verbose")
	}
	if p.buildPath != "" {
		args = append(args, "--build-path", p.buildPath)
	}
	return args
}

func appendLegacyArgs(args []string, p plan) []string {
	switch p.mode {
	case Verify, Analyze:
		args = append(args, "--verify")
	case Upload:
		args = append(args, "--upload")
	case UploadProgrammer:
		args = append(args, "--upload", "--useprogrammer", "--pref", "programmer="+p.programmer.Key())
	}
	if p.mode.IsUpload() && p.port != "" {
		args = append(args, "--port", p.port)
	}

	args = append(args, "--board", p.boardConfig)
	for _, pref := range p.preferences {
		args = append(args, "--pref", pref.Key+"="+pref.Value)
	}
	if p.verbose {
		args = append(args, "--verbose-build")
		if p.mode.IsUpload() {
			args = append(args, "--verbose-upload")
		}
	}
	if p.buildPath != "" {
		args = append(args, "--pref", "build.path="+p.buildPath)
	}
	return args
}
