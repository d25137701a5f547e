// Package backend abstracts the terminal agent the bridge attaches to. A
// Session owns the emulated terminal plus the channel handles the I/O pumps
// copy through, and spawns exactly one child process inside it. The unix
// implementation drives a local pty; on Windows the session wraps a ConPTY.
package backend

import (
	"fmt"
	"os"
)

// MouseMode selects how the agent treats terminal mouse input.
type MouseMode int

const (
	MouseModeNone MouseMode = iota
	MouseModeAuto
	MouseModeForce
)

// Config carries the session parameters fixed at open time.
type Config struct {
	// Cols and Rows set the initial terminal geometry.
	Cols int
	Rows int

	MouseMode MouseMode

	// ConErr requests a separate error channel so the child's stderr does
	// not interleave with its terminal output.
	ConErr bool

	// Plain disables output post-processing; Color forces it on. Both are
	// diagnostics switches and only one should be set.
	Plain bool
	Color bool

	// ShowConsole keeps the agent's console window visible where the
	// platform has one.
	ShowConsole bool
}

// unsupportedOptions names the requested options the built-in back ends
// accept but cannot honor yet. Open logs them so a requested mode is never
// dropped silently.
func unsupportedOptions(cfg Config) []string {
	var opts []string
	if cfg.MouseMode == MouseModeForce {
		opts = append(opts, "mouse")
	}
	if cfg.Plain {
		opts = append(opts, "plain")
	}
	if cfg.Color {
		opts = append(opts, "color")
	}
	if cfg.ShowConsole {
		opts = append(opts, "show-console")
	}
	return opts
}

// SpawnConfig describes the single child process started in a session.
type SpawnConfig struct {
	// AppName optionally names the program; when empty the first token of
	// CommandLine is used.
	AppName string

	// CommandLine is the full command line in Windows quoting form. Unix
	// sessions split it back into an argv.
	CommandLine string

	// Env is the child environment in "KEY=VALUE" form. Nil inherits the
	// current process environment.
	Env []string

	// Cwd sets the child working directory; empty inherits.
	Cwd string
}

// Process is a handle on the spawned child.
type Process interface {
	// Wait blocks until the child exits and returns its exit code.
	Wait() (int, error)
	// Release drops the handle without waiting.
	Release() error
}

// Session is one attached terminal. Closing the session unblocks any reads
// or writes outstanding on the channel handles.
type Session interface {
	// InputPipe is the write side of the keyboard channel.
	InputPipe() *os.File
	// OutputPipe is the read side of the terminal output channel.
	OutputPipe() *os.File
	// ErrorPipe is the read side of the error channel, nil unless the
	// session was opened with Config.ConErr.
	ErrorPipe() *os.File

	// Spawn starts the child. A session spawns at most once.
	Spawn(cfg SpawnConfig) (Process, error)

	// Resize changes the terminal geometry.
	Resize(cols, rows int) error

	Close() error
}

// Backend opens sessions.
type Backend interface {
	Open(cfg Config) (Session, error)
}

// SpawnError classifies a Spawn failure. CreateFailed marks the common case
// of a program that could not be started at all (not found, not executable),
// which callers report to the user rather than treating as an internal
// fault.
type SpawnError struct {
	CreateFailed bool
	Program      string
	Err          error
}

func (e *SpawnError) Error() string {
	if e.CreateFailed {
		return fmt.Sprintf("could not start %q: %v", e.Program, e.Err)
	}
	return fmt.Sprintf("spawn %q: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
