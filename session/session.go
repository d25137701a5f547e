//go:build unix

// Package session drives one bridged terminal session end to end: it opens
// the back end at the host terminal's geometry, spawns the child through the
// self-reinvocation trampoline, switches the controlling terminal to raw
// mode, attaches the I/O pumps, and runs the single wakeup-driven loop that
// multiplexes window resizes against pump completion. Shutdown is strictly
// ordered so the terminal is always restored and the child's exit code is
// still harvested after the data paths are torn down.
package session

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"

	"github.com/srg/termbridge/internal/cmdline"
	"github.com/srg/termbridge/internal/envprop"
	"github.com/srg/termbridge/internal/fault"
	"github.com/srg/termbridge/internal/pump"
	"github.com/srg/termbridge/internal/termmode"
	"github.com/srg/termbridge/internal/wakeup"
	"github.com/srg/termbridge/pkg/backend"
)

// ChildExecFlag marks a reinvocation of this binary that must exec the real
// child instead of running a session.
const ChildExecFlag = "--child-exec"

// IOWorker is one directional byte pump. The loop polls Complete after each
// wakeup; Shutdown stops the worker and waits for it.
type IOWorker interface {
	Complete() bool
	Shutdown()
}

// TerminalControl is the slice of termmode.Controller the session needs.
type TerminalControl interface {
	CaptureAndSetRaw(opts termmode.RawOptions) (*termmode.Snapshot, error)
	Restore(snap *termmode.Snapshot) error
}

// Params configures a session. Backend, Argv and Logger are required; the
// remaining fields default to the real host terminal plumbing and exist so
// tests can substitute fakes.
type Params struct {
	Backend backend.Backend
	Config  backend.Config

	// Argv is the child program and its arguments.
	Argv []string

	// SelfPath is the executable reinvoked with ChildExecFlag. Defaults to
	// os.Executable().
	SelfPath string

	// AllowNonTTY skips raw-mode handling of non-terminal stdio.
	AllowNonTTY bool

	Logger *logrus.Logger

	// Probe reads the host terminal geometry. Defaults to TIOCGWINSZ on
	// stdin.
	Probe func() (cols, rows int, err error)

	// Terminal controls raw mode. Defaults to termmode.NewController.
	Terminal TerminalControl

	// NewWorker builds one I/O pump. Defaults to internal/pump.
	NewWorker func(name string, src, dst *os.File, wake *wakeup.Wakeup) IOWorker

	// PumpOptions tunes the default workers; nil keeps the built-in
	// defaults. Ignored when NewWorker is set.
	PumpOptions *pump.Options

	// Stdin, Stdout, Stderr default to the process's own stdio.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Session is a single run. It is not reusable.
type Session struct {
	p    Params
	wake *wakeup.Wakeup

	sess backend.Session
	proc backend.Process
	snap *termmode.Snapshot

	// workers in shutdown order: conin, conout, conerr.
	workers []IOWorker
	handles []*os.File

	sigCh   chan os.Signal
	sigDone chan struct{}

	lastCols int
	lastRows int
}

// New validates params and fills in the host defaults.
func New(p Params) (*Session, error) {
	if p.Backend == nil {
		return nil, fault.New(fault.KindUsage, "no back end")
	}
	if len(p.Argv) == 0 {
		return nil, fault.New(fault.KindUsage, "no program to run")
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.SelfPath == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fault.Wrap(fault.KindEnvironment, err, "locate own executable")
		}
		p.SelfPath = self
	}
	if p.Stdin == nil {
		p.Stdin, p.Stdout, p.Stderr = os.Stdin, os.Stdout, os.Stderr
	}
	if p.Probe == nil {
		stdin := p.Stdin
		p.Probe = func() (int, int, error) {
			sz, err := pty.GetsizeFull(stdin)
			if err != nil {
				return 0, 0, err
			}
			return int(sz.Cols), int(sz.Rows), nil
		}
	}
	if p.Terminal == nil {
		p.Terminal = termmode.NewController(p.Logger)
	}

	wake, err := wakeup.New()
	if err != nil {
		return nil, fault.Wrap(fault.KindResource, err, "create wakeup pipe")
	}
	s := &Session{p: p, wake: wake}
	if p.NewWorker == nil {
		s.p.NewWorker = func(name string, src, dst *os.File, w *wakeup.Wakeup) IOWorker {
			pm := pump.New(name, src, dst, w, p.Logger, p.PumpOptions)
			pm.Start()
			return pm
		}
	}
	return s, nil
}

// Run executes the whole session and returns the child's exit code.
func (s *Session) Run() (int, error) {
	defer s.wake.Close()

	cols, rows := s.probeGeometry()
	s.lastCols, s.lastRows = cols, rows

	cfg := s.p.Config
	cfg.Cols, cfg.Rows = cols, rows
	sess, err := s.p.Backend.Open(cfg)
	if err != nil {
		return 1, err
	}
	s.sess = sess

	if err := s.spawnChild(); err != nil {
		_ = sess.Close()
		return 1, err
	}

	s.watchResize()
	defer s.unwatchResize()

	snap, err := s.p.Terminal.CaptureAndSetRaw(termmode.RawOptions{
		AllowNonTTY:   s.p.AllowNonTTY,
		IncludeStdout: true,
		IncludeStderr: s.p.Config.ConErr,
	})
	if err != nil {
		_ = sess.Close()
		_, _ = s.proc.Wait()
		_ = s.proc.Release()
		return 1, err
	}
	s.snap = snap

	s.startWorkers()
	s.loop()
	return s.shutdown(), nil
}

// probeGeometry returns the host terminal size, falling back to 80x25 when
// stdin is not a terminal.
func (s *Session) probeGeometry() (int, int) {
	cols, rows, err := s.p.Probe()
	if err != nil || cols <= 0 || rows <= 0 {
		s.p.Logger.WithError(err).Debug("geometry probe failed, assuming 80x25")
		return 80, 25
	}
	return cols, rows
}

// spawnChild starts this binary inside the back end session with the
// trampoline flag so the child sees a clean exec of the real program.
func (s *Session) spawnChild() error {
	trampoline := append([]string{s.p.SelfPath, ChildExecFlag}, s.p.Argv...)
	proc, err := s.sess.Spawn(backend.SpawnConfig{
		CommandLine: cmdline.Encode(trampoline),
		Env:         envprop.Build(os.Environ(), os.Getenv),
	})
	if err != nil {
		return err
	}
	s.proc = proc
	return nil
}

func (s *Session) watchResize() {
	s.sigCh = make(chan os.Signal, 1)
	s.sigDone = make(chan struct{})
	signal.Notify(s.sigCh, syscall.SIGWINCH)
	go func() {
		defer close(s.sigDone)
		for range s.sigCh {
			s.wake.Set()
		}
	}()
}

// unwatchResize stops signal delivery and joins the forwarder so it can no
// longer touch the wakeup pipe once Run's deferred Close runs.
func (s *Session) unwatchResize() {
	signal.Stop(s.sigCh)
	close(s.sigCh)
	<-s.sigDone
}

func (s *Session) startWorkers() {
	conin := s.p.NewWorker("conin", s.p.Stdin, s.sess.InputPipe(), s.wake)
	conout := s.p.NewWorker("conout", s.sess.OutputPipe(), s.p.Stdout, s.wake)
	s.workers = []IOWorker{conin, conout}
	s.handles = []*os.File{s.sess.InputPipe(), s.sess.OutputPipe()}
	if errPipe := s.sess.ErrorPipe(); errPipe != nil {
		s.workers = append(s.workers, s.p.NewWorker("conerr", errPipe, s.p.Stderr, s.wake))
		s.handles = append(s.handles, errPipe)
	}
}

// loop blocks on the wakeup pipe and wakes for two reasons only: a window
// resize to forward, or a pump that finished (usually because the child
// exited). Any completed pump ends the session.
func (s *Session) loop() {
	for {
		if err := s.wake.Wait(); err != nil {
			s.p.Logger.WithError(err).Warn("wakeup wait failed")
			return
		}
		s.wake.Reset()

		s.forwardResize()

		for _, w := range s.workers {
			if w.Complete() {
				return
			}
		}
	}
}

// forwardResize reprobes the host geometry and forwards it only when it
// actually changed, so coalesced SIGWINCH bursts produce a single resize.
func (s *Session) forwardResize() {
	cols, rows, err := s.p.Probe()
	if err != nil {
		s.p.Logger.WithError(err).Debug("geometry probe failed, keeping size")
		return
	}
	if cols == s.lastCols && rows == s.lastRows {
		return
	}
	s.lastCols, s.lastRows = cols, rows
	if err := s.sess.Resize(cols, rows); err != nil {
		s.p.Logger.WithError(err).Warn("resize failed")
	}
}

// shutdown tears the session down in a fixed order: the back end goes first
// so its channel peers close and unblock the pumps, then the pumps are
// joined and the handles released, then the terminal is restored, and only
// then is the exit code collected. A child whose code cannot be read counts
// as a failure.
func (s *Session) shutdown() int {
	_ = s.sess.Close()

	for _, w := range s.workers {
		w.Shutdown()
	}
	for _, h := range s.handles {
		_ = h.Close()
	}

	if s.snap != nil {
		if err := s.p.Terminal.Restore(s.snap); err != nil {
			s.p.Logger.WithError(err).Warn("terminal restore failed")
		}
	}

	code, err := s.proc.Wait()
	if err != nil {
		s.p.Logger.WithError(err).Debug("could not read child exit code")
		code = 1
	}
	_ = s.proc.Release()
	return code
}
