//go:build windows

package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/UserExistsError/conpty"
	"github.com/sirupsen/logrus"

	"github.com/srg/termbridge/internal/fault"
)

// conptyBackend hosts the child in a Windows pseudo console. ConPTY creates
// the console and the process together, so the bridge goroutines only start
// once Spawn has run; the channel handles are live from Open so the pumps
// can attach first.
type conptyBackend struct {
	logger *logrus.Logger
}

// Agent returns the platform back end for this host.
func Agent(logger *logrus.Logger) Backend {
	return &conptyBackend{logger: logger}
}

type conptySession struct {
	logger *logrus.Logger
	cfg    Config

	cpty *conpty.ConPty

	inR, inW   *os.File
	outR, outW *os.File

	mu      sync.Mutex
	spawned bool
	closed  bool
	cols    int
	rows    int
}

func (b *conptyBackend) Open(cfg Config) (Session, error) {
	opts := unsupportedOptions(cfg)
	if cfg.ConErr {
		// ConPTY folds stderr into the console output, see ErrorPipe.
		opts = append(opts, "conerr")
	}
	if len(opts) > 0 {
		b.logger.WithField("options", opts).Debug("ignoring options the console host does not implement")
	}

	s := &conptySession{logger: b.logger, cfg: cfg, cols: cfg.Cols, rows: cfg.Rows}
	if s.cols <= 0 || s.rows <= 0 {
		s.cols, s.rows = 80, 25
	}
	var err error
	if s.inR, s.inW, err = os.Pipe(); err != nil {
		return nil, fault.Wrap(fault.KindResource, err, "create input channel")
	}
	if s.outR, s.outW, err = os.Pipe(); err != nil {
		_ = s.inR.Close()
		_ = s.inW.Close()
		return nil, fault.Wrap(fault.KindResource, err, "create output channel")
	}
	return s, nil
}

func (s *conptySession) InputPipe() *os.File  { return s.inW }
func (s *conptySession) OutputPipe() *os.File { return s.outR }

// ErrorPipe is always nil: ConPTY folds the child's stderr into the console
// output stream.
func (s *conptySession) ErrorPipe() *os.File { return nil }

func (s *conptySession) Spawn(cfg SpawnConfig) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fault.New(fault.KindBackend, "spawn on a closed session")
	}
	if s.spawned {
		return nil, fault.New(fault.KindBackend, "session already has a child")
	}
	if cfg.CommandLine == "" {
		return nil, &SpawnError{CreateFailed: true, Program: cfg.AppName,
			Err: errors.New("empty command line")}
	}

	cpty, err := conpty.Start(
		cfg.CommandLine,
		conpty.ConPtyDimensions(s.cols, s.rows),
		conpty.ConPtyWorkDir(cfg.Cwd),
		conpty.ConPtyEnv(cfg.Env),
	)
	if err != nil {
		return nil, &SpawnError{CreateFailed: true, Program: cfg.CommandLine, Err: err}
	}
	s.cpty = cpty
	s.spawned = true

	go func() {
		_, err := io.Copy(cpty, s.inR)
		if err != nil && !errors.Is(err, os.ErrClosed) {
			s.logger.WithError(err).Debug("input bridge stopped")
		}
	}()
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := cpty.Read(buf)
			if n > 0 {
				if _, werr := s.outW.Write(buf[:n]); werr != nil {
					break
				}
			}
			if err != nil {
				// The console pipe breaks when the child exits.
				if !errors.Is(err, io.EOF) && errnoOf(err) != 109 {
					s.logger.WithError(err).Debug("output bridge stopped")
				}
				break
			}
		}
		_ = s.outW.Close()
	}()

	return &conptyProcess{cpty: cpty}, nil
}

// errnoOf extracts a Windows errno, 0 when none is present.
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

func (s *conptySession) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fault.New(fault.KindBackend, "resize on a closed session")
	}
	if cols <= 0 || rows <= 0 {
		return fault.New(fault.KindBackend, "invalid geometry %dx%d", cols, rows)
	}
	s.cols, s.rows = cols, rows
	if s.cpty == nil {
		return nil // applied at spawn
	}
	if err := s.cpty.Resize(cols, rows); err != nil {
		return fault.Wrap(fault.KindBackend, err, "resize console to %dx%d", cols, rows)
	}
	return nil
}

func (s *conptySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cpty != nil {
		_ = s.cpty.Close()
	}
	for _, f := range []*os.File{s.inR, s.outW} {
		if f != nil {
			_ = f.Close()
		}
	}
	return nil
}

type conptyProcess struct {
	cpty *conpty.ConPty
}

func (p *conptyProcess) Wait() (int, error) {
	code, err := p.cpty.Wait(context.Background())
	if err != nil {
		return -1, fault.Wrap(fault.KindBackend, err, "wait for child")
	}
	return int(code), nil
}

func (p *conptyProcess) Release() error { return nil }
