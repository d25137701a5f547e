//go:build unix

// Package termmode captures and restores raw/cooked terminal attributes for
// the three standard streams. A stream whose snapshot flag is false is never
// touched on restore; partial raw-mode configuration is treated as fatal
// because a half-configured terminal corrupts all subsequent output.
package termmode

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/termbridge/internal/fault"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Stream identifies one of the three standard streams by file descriptor.
type Stream int

const (
	Stdin  Stream = 0
	Stdout Stream = 1
	Stderr Stream = 2
)

var streamNames = [3]string{"stdin", "stdout", "stderr"}

func (s Stream) String() string { return streamNames[s] }

// TermiosOps abstracts the termios syscalls so tests can run against a fake
// terminal instead of a real one.
type TermiosOps interface {
	IsTerminal(fd int) bool
	Get(fd int) (*unix.Termios, error)
	Set(fd int, tio *unix.Termios) error
}

type sysOps struct{}

func (sysOps) IsTerminal(fd int) bool { return term.IsTerminal(fd) }

func (sysOps) Get(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, ioctlReadTermios)
}

func (sysOps) Set(fd int, tio *unix.Termios) error {
	// ioctlWriteTermios drains output and flushes pending input first,
	// matching tcsetattr(TCSAFLUSH).
	return unix.IoctlSetTermios(fd, ioctlWriteTermios, tio)
}

// Snapshot records, for each standard stream, whether it was a real terminal
// whose mode was captured, plus the saved attributes. Created once at session
// start, consumed exactly once at shutdown, never mutated in between.
type Snapshot struct {
	valid [3]bool
	mode  [3]unix.Termios
}

// Valid reports whether the stream's mode was captured.
func (s *Snapshot) Valid(st Stream) bool { return s.valid[st] }

// RawOptions selects which streams raw mode is applied to. Stdin is always
// requested.
type RawOptions struct {
	// AllowNonTTY skips streams that are not terminals instead of failing.
	AllowNonTTY bool
	// IncludeStdout applies output raw mode to stdout.
	IncludeStdout bool
	// IncludeStderr applies output raw mode to stderr.
	IncludeStderr bool
}

// Controller owns terminal-mode transitions for the session.
type Controller struct {
	ops    TermiosOps
	logger *logrus.Logger
}

// NewController returns a controller using the real termios syscalls.
func NewController(logger *logrus.Logger) *Controller {
	return NewControllerWithOps(sysOps{}, logger)
}

// NewControllerWithOps injects a TermiosOps implementation; used by tests.
func NewControllerWithOps(ops TermiosOps, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Controller{ops: ops, logger: logger}
}

// CaptureAndSetRaw probes each requested stream, captures its attributes, and
// switches it to raw mode. A stream that is not a terminal either fails the
// whole call (environment fault naming the stream) or, when AllowNonTTY is
// set, is recorded as invalid so restore skips it too. Any termios get/set
// failure on a valid stream is a resource fault.
func (c *Controller) CaptureAndSetRaw(opts RawOptions) (*Snapshot, error) {
	snap := &Snapshot{}
	requested := [3]bool{true, opts.IncludeStdout, opts.IncludeStderr}

	for st := Stdin; st <= Stderr; st++ {
		if !requested[st] {
			continue
		}
		fd := int(st)
		if !c.ops.IsTerminal(fd) {
			if !opts.AllowNonTTY {
				return nil, fault.New(fault.KindEnvironment, "%s is not a tty", st)
			}
			c.logger.WithField("stream", st.String()).Debug("not a tty, skipping raw mode")
			continue
		}
		saved, err := c.ops.Get(fd)
		if err != nil {
			return nil, fault.Wrap(fault.KindResource, err, "tcgetattr %s", st)
		}
		snap.valid[st] = true
		snap.mode[st] = *saved
	}

	if snap.valid[Stdin] {
		raw := snap.mode[Stdin]
		// Disable echo, canonical processing, extended input, and signal
		// generation; kill break/CR-NL translation, parity checks, bit
		// stripping, and software flow control; force 8-bit characters.
		raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
		raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
		raw.Cflag &^= unix.CSIZE | unix.PARENB
		raw.Cflag |= unix.CS8
		raw.Cc[unix.VMIN] = 1 // block until at least one byte
		raw.Cc[unix.VTIME] = 0
		if err := c.ops.Set(int(Stdin), &raw); err != nil {
			return nil, fault.Wrap(fault.KindResource, err, "tcsetattr %s", Stdin)
		}
	}

	for st := Stdout; st <= Stderr; st++ {
		if !snap.valid[st] {
			continue
		}
		raw := snap.mode[st]
		// 8-bit characters, no output post-processing: embedded control
		// sequences must pass through verbatim.
		raw.Cflag &^= unix.CSIZE | unix.PARENB
		raw.Cflag |= unix.CS8
		raw.Oflag &^= unix.OPOST
		if err := c.ops.Set(int(st), &raw); err != nil {
			return nil, fault.Wrap(fault.KindResource, err, "tcsetattr %s", st)
		}
	}

	return snap, nil
}

// Restore reapplies the captured attributes to every stream the snapshot
// marks valid. Failure is a resource fault: a terminal left mid-raw-mode is
// unusable by the invoking shell.
func (c *Controller) Restore(snap *Snapshot) error {
	for st := Stdin; st <= Stderr; st++ {
		if !snap.valid[st] {
			continue
		}
		mode := snap.mode[st]
		if err := c.ops.Set(int(st), &mode); err != nil {
			return fault.Wrap(fault.KindResource, err, "restore %s mode", st)
		}
	}
	return nil
}
