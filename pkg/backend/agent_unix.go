//go:build unix

package backend

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"

	"github.com/srg/termbridge/internal/cmdline"
	"github.com/srg/termbridge/internal/fault"
)

// agentBackend runs the child on a local pty. The channel handles given to
// the pumps are plain pipes bridged to the pty master by copy goroutines, so
// closing the session tears the bridges down and unblocks the pumps.
type agentBackend struct {
	logger *logrus.Logger
}

// Agent returns the platform back end for this host.
func Agent(logger *logrus.Logger) Backend {
	return &agentBackend{logger: logger}
}

type agentSession struct {
	logger *logrus.Logger

	master *os.File
	tty    *os.File

	// inW and outR are the handles given out; their peers stay here.
	inR, inW   *os.File
	outR, outW *os.File
	errR, errW *os.File

	mu      sync.Mutex
	spawned bool
	closed  bool
}

func (b *agentBackend) Open(cfg Config) (Session, error) {
	if opts := unsupportedOptions(cfg); len(opts) > 0 {
		b.logger.WithField("options", opts).Debug("ignoring options the pty agent does not implement")
	}

	master, tty, err := pty.Open()
	if err != nil {
		return nil, fault.Wrap(fault.KindBackend, err, "open pty")
	}

	cols, rows := cfg.Cols, cfg.Rows
	if cols <= 0 || rows <= 0 {
		cols, rows = 80, 25
	}
	if err := pty.Setsize(master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		_ = master.Close()
		_ = tty.Close()
		return nil, fault.Wrap(fault.KindBackend, err, "size pty to %dx%d", cols, rows)
	}

	s := &agentSession{logger: b.logger, master: master, tty: tty}
	if s.inR, s.inW, err = os.Pipe(); err != nil {
		_ = s.Close()
		return nil, fault.Wrap(fault.KindResource, err, "create input channel")
	}
	if s.outR, s.outW, err = os.Pipe(); err != nil {
		_ = s.Close()
		return nil, fault.Wrap(fault.KindResource, err, "create output channel")
	}
	if cfg.ConErr {
		if s.errR, s.errW, err = os.Pipe(); err != nil {
			_ = s.Close()
			return nil, fault.Wrap(fault.KindResource, err, "create error channel")
		}
	}

	// Keyboard bytes flow inW -> inR -> master. Closing inR on session
	// close makes further inW writes fail with EPIPE.
	go func() {
		_, err := io.Copy(master, s.inR)
		if err != nil && !isClosedPipe(err) {
			b.logger.WithError(err).Debug("input bridge stopped")
		}
	}()

	// Terminal output flows master -> outW -> outR. The copy ends with EIO
	// once the child exits and the tty side is fully closed; closing outW
	// then delivers EOF to the pump on outR.
	go func() {
		_, err := io.Copy(s.outW, master)
		if err != nil && !isClosedPipe(err) {
			b.logger.WithError(err).Debug("output bridge stopped")
		}
		_ = s.outW.Close()
	}()

	return s, nil
}

// isClosedPipe matches the errors the bridges see during a normal teardown.
func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EBADF)
}

func (s *agentSession) InputPipe() *os.File  { return s.inW }
func (s *agentSession) OutputPipe() *os.File { return s.outR }
func (s *agentSession) ErrorPipe() *os.File  { return s.errR }

func (s *agentSession) Spawn(cfg SpawnConfig) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fault.New(fault.KindBackend, "spawn on a closed session")
	}
	if s.spawned {
		return nil, fault.New(fault.KindBackend, "session already has a child")
	}

	argv := cmdline.Split(cfg.CommandLine)
	if len(argv) == 0 {
		return nil, &SpawnError{CreateFailed: true, Program: cfg.CommandLine,
			Err: errors.New("empty command line")}
	}
	program := cfg.AppName
	if program == "" {
		program = argv[0]
	}
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, &SpawnError{CreateFailed: true, Program: program, Err: err}
	}

	stderr := s.tty
	if s.errW != nil {
		stderr = s.errW
	}
	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    cfg.Env,
		Dir:    cfg.Cwd,
		Stdin:  s.tty,
		Stdout: s.tty,
		Stderr: stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
		},
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{CreateFailed: true, Program: program, Err: err}
	}

	// The child holds its own dups now. Dropping the parent copies lets the
	// output bridge observe EIO when the child exits.
	_ = s.tty.Close()
	s.tty = nil
	if s.errW != nil {
		_ = s.errW.Close()
		s.errW = nil
	}
	s.spawned = true
	s.logger.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "program": path}).
		Debug("child started")

	return &agentProcess{cmd: cmd}, nil
}

func (s *agentSession) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fault.New(fault.KindBackend, "resize on a closed session")
	}
	if cols <= 0 || rows <= 0 {
		return fault.New(fault.KindBackend, "invalid geometry %dx%d", cols, rows)
	}
	err := pty.Setsize(s.master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return fault.Wrap(fault.KindBackend, err, "resize pty to %dx%d", cols, rows)
	}
	return nil
}

// Close releases the pty and the session-held pipe ends. Pumps blocked on
// the handed-out handles wake up with EOF or EPIPE.
func (s *agentSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, f := range []*os.File{s.tty, s.master, s.inR, s.outW, s.errW} {
		if f != nil {
			_ = f.Close()
		}
	}
	s.tty, s.errW = nil, nil
	return nil
}

type agentProcess struct {
	cmd *exec.Cmd
}

// Wait returns the child's exit code. A signal death maps to 128 plus the
// signal number, matching shell convention.
func (p *agentProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal()), nil
			}
			return status.ExitStatus(), nil
		}
	}
	return -1, fault.Wrap(fault.KindBackend, err, "wait for child")
}

func (p *agentProcess) Release() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Release()
}
