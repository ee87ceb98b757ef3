package build

import (
	"context"
)

// Notifier shows user-facing messages.
type Notifier interface {
	Error(msg string)
	Warn(msg string)
	Info(msg string)
}

// Prompter asks the user to resolve a missing input.
type Prompter interface {
	// SelectSketch returns the chosen sketch, relative to the workspace
	// root, or "" when the user chose nothing.
	SelectSketch(ctx context.Context) (string, error)
	// SelectSerialPort asks the user to choose a port for a later attempt.
	// It must not wait for the choice.
	SelectSerialPort(ctx context.Context) error
}

// SerialMonitor owns interactive serial sessions that would contend with
// an upload for the device.
type SerialMonitor interface {
	// Close ends any session on port, reporting whether one was open.
	Close(ctx context.Context, port string) (wasOpen bool, err error)
	Open(ctx context.Context, port string) error
}

// DeviceWatcher is hot-plug detection, paused while uploading.
type DeviceWatcher interface {
	Pause()
	Resume()
}

// OutputParser consumes toolchain stdout lines to regenerate editor
// tooling configuration.
type OutputParser interface {
	Line(line string)
	Finalize() error
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
func (nopNotifier) Warn(string)  {}
func (nopNotifier) Info(string)  {}

type nopPrompter struct{}

func (nopPrompter) SelectSketch(context.Context) (string, error) { return "", nil }
func (nopPrompter) SelectSerialPort(context.Context) error        { return nil }

type nopSerialMonitor struct{}

func (nopSerialMonitor) Close(context.Context, string) (bool, error) { return false, nil }
func (nopSerialMonitor) Open(context.Context, string) error          { return nil }

type nopDeviceWatcher struct{}

func (nopDeviceWatcher) Pause()  {}
func (nopDeviceWatcher) Resume() {}
