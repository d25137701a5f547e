//go:build unix

// Package pump implements the byte-copy workers that bridge one direction of
// traffic between a terminal file descriptor and a back-end channel handle.
// Each pump owns a ring buffer filled by a poll-driven reader goroutine and
// drained by a writer goroutine, exposes a completion flag the control loop
// samples, and signals the session wakeup when the copy finishes for any
// reason (typically the child exited and its channel peer closed).
package pump

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sys/unix"

	"github.com/srg/termbridge/internal/wakeup"
)

// Options tunes a pump. Zero values take the struct-tag defaults.
type Options struct {
	// BufferSize is the ring buffer capacity in bytes.
	BufferSize int `default:"4096"`
	// PollTimeoutMs bounds how long the loops wait for readiness before
	// rechecking cancellation, so Shutdown latency stays small.
	PollTimeoutMs int `default:"50"`
}

// noopLogger is shared by pumps constructed without a logger.
var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Pump copies bytes from src to dst until EOF, an unrecoverable I/O error, or
// Shutdown. The zero direction of a session needs one Pump per stream.
type Pump struct {
	name   string
	src    *os.File
	dst    *os.File
	ring   *ringbuffer.RingBuffer
	logger *logrus.Logger
	wake   *wakeup.Wakeup

	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	pollTimeoutMs int

	srcDone  atomic.Bool // reader finished, ring holds the remaining bytes
	complete atomic.Bool
}

// New builds a pump named for diagnostics (e.g. "conin", "conout"). The
// wakeup is signalled once when the pump completes; it may be nil in tests.
func New(name string, src, dst *os.File, wake *wakeup.Wakeup, logger *logrus.Logger, opts *Options) *Pump {
	if opts == nil {
		opts = &Options{}
	}
	defaults.SetDefaults(opts)
	if logger == nil {
		logger = noopLogger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pump{
		name:          name,
		src:           src,
		dst:           dst,
		ring:          ringbuffer.New(opts.BufferSize),
		logger:        logger,
		wake:          wake,
		ctx:           ctx,
		cancel:        cancel,
		pollTimeoutMs: opts.PollTimeoutMs,
	}
}

// Start launches the reader and writer goroutines.
func (p *Pump) Start() {
	p.wg.Add(2)
	p.spawn(p.name+"-read", p.readLoop)
	p.spawn(p.name+"-write", p.writeLoop)
}

// spawn runs fn on a labelled goroutine so pprof dumps name the loops.
func (p *Pump) spawn(name string, fn func()) {
	go pprof.Do(p.ctx, pprof.Labels("goroutine_name", name), func(context.Context) {
		fn()
	})
}

// Complete reports whether the pump has finished copying. The control loop
// samples this after each wakeup to decide when the session has ended.
func (p *Pump) Complete() bool { return p.complete.Load() }

// Shutdown cancels the loops and waits for them to stop. Both loops observe
// cancellation within one poll timeout, so the wait is bounded.
func (p *Pump) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pump) readLoop() {
	defer func() {
		p.srcDone.Store(true)
		p.wg.Done()
	}()

	fd := int32(p.src.Fd())
	pollFd := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
	buf := make([]byte, 4096)

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		nReady, err := unix.Poll(pollFd, p.pollTimeoutMs)
		if err != nil && !errors.Is(err, unix.EINTR) {
			p.logger.WithError(err).WithField("pump", p.name).Warn("poll failed")
			return
		}
		if nReady == 0 {
			continue // timeout, recheck cancellation
		}

		n, err := p.src.Read(buf)
		if n > 0 {
			if !p.enqueue(buf[:n]) {
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EAGAIN):
				continue
			default:
				// EOF, EIO (pty peer gone), or EBADF (handle closed during
				// shutdown) all mean this direction is finished.
				if !errors.Is(err, io.EOF) {
					p.logger.WithError(err).WithField("pump", p.name).Debug("read loop exiting")
				}
				return
			}
		}
	}
}

// enqueue writes data into the ring, waiting for the writer to drain when
// full. Returns false when cancelled.
func (p *Pump) enqueue(data []byte) bool {
	for len(data) > 0 {
		n, err := p.ring.Write(data)
		data = data[n:]
		if len(data) == 0 {
			return true
		}
		// A full ring reports ErrIsFull, a chunk larger than the free space
		// reports ErrTooMuchDataToWrite after storing what fit. Both just
		// mean "wait for the writer to drain and retry the remainder".
		if err != nil &&
			!errors.Is(err, ringbuffer.ErrIsFull) &&
			!errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) {
			p.logger.WithError(err).WithField("pump", p.name).Warn("ring write failed")
			return false
		}
		select {
		case <-p.ctx.Done():
			return false
		case <-time.After(time.Duration(p.pollTimeoutMs) * time.Millisecond):
		}
	}
	return true
}

func (p *Pump) writeLoop() {
	defer func() {
		p.complete.Store(true)
		if p.wake != nil {
			p.wake.Set()
		}
		p.wg.Done()
	}()

	buf := make([]byte, 4096)
	for {
		// Sample the reader's state before draining: the reader enqueues its
		// final chunk before setting srcDone, so an empty read with done
		// already observed proves the ring holds nothing more.
		done := p.srcDone.Load()
		n, err := p.ring.TryRead(buf)
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			p.logger.WithError(err).WithField("pump", p.name).Warn("ring read failed")
			return
		}
		if n == 0 {
			if done {
				return
			}
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(time.Duration(p.pollTimeoutMs) * time.Millisecond):
			}
			continue
		}

		offset := 0
		for offset < n {
			written, err := p.dst.Write(buf[offset:n])
			offset += written
			if err != nil {
				if errors.Is(err, syscall.EINTR) {
					continue
				}
				// EPIPE or EBADF: the channel peer is gone.
				p.logger.WithError(err).WithField("pump", p.name).Debug("write loop exiting")
				return
			}
		}
	}
}
