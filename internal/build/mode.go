package build

import (
	"fmt"
	"strings"
)

// Mode is the intent of a build attempt.
type Mode int

const (
	Verify Mode = iota
	Analyze
	Upload
	CliUpload
	UploadProgrammer
	CliUploadProgrammer
)

var modeNames = [...]string{
	Verify:              "Verifying",
	Analyze:             "Analyzing",
	Upload:              "Uploading",
	CliUpload:           "Uploading using Arduino CLI",
	UploadProgrammer:    "Uploading (programmer)",
	CliUploadProgrammer: "Uploading (programmer) using Arduino CLI",
}

var modeCommands = [...]string{
	Verify:              "verify",
	Analyze:             "analyze",
	Upload:              "upload",
	CliUpload:           "cli-upload",
	UploadProgrammer:    "upload-programmer",
	CliUploadProgrammer: "cli-upload-programmer",
}

// String returns the progress verb, e.g. "Verifying". It is also the value
// of BUILD_MODE seen by hooks.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Command returns the command-line name of the mode, e.g. "cli-upload".
func (m Mode) Command() string {
	if m < 0 || int(m) >= len(modeCommands) {
		return ""
	}
	return modeCommands[m]
}

// ParseMode is the inverse of Command.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeCommands {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown build mode %q", s)
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{Verify, Analyze, Upload, CliUpload, UploadProgrammer, CliUploadProgrammer}
}

// IsUpload reports whether the mode writes to a device.
func (m Mode) IsUpload() bool {
	switch m {
	case Upload, CliUpload, UploadProgrammer, CliUploadProgrammer:
		return true
	}
	return false
}

// UsesProgrammer reports whether the mode uploads through a programmer.
func (m Mode) UsesProgrammer() bool {
	return m == UploadProgrammer || m == CliUploadProgrammer
}

// RequiresCLI reports whether only the standalone CLI front-end supports
// the mode.
func (m Mode) RequiresCLI() bool {
	return m == CliUpload || m == CliUploadProgrammer
}
