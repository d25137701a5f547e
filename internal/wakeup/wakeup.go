//go:build unix

// Package wakeup provides a one-shot, signal-safe event primitive used to
// interrupt the session's blocking readiness wait. It is a classic self-pipe:
// Set writes a byte to a non-blocking pipe, Reset drains it, and FD exposes
// the read end so the waiter can poll it alongside nothing else.
package wakeup

import (
	"errors"

	"github.com/srg/termbridge/internal/fault"
	"golang.org/x/sys/unix"
)

// Wakeup is a process-wide event source safe to trigger from a signal
// handling context. Multiple Set calls before a Reset collapse into a single
// pending wakeup.
type Wakeup struct {
	r int // read end, polled by the waiter
	w int // write end, written by Set
}

// New creates the wakeup pipe. Failure is a resource fault: without the
// primitive, resize notifications would be silently dropped and the session
// would hang, so callers treat this as fatal.
func New() (*Wakeup, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fault.Wrap(fault.KindResource, err, "create wakeup pipe")
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, fault.Wrap(fault.KindResource, err, "configure wakeup pipe")
		}
	}
	return &Wakeup{r: fds[0], w: fds[1]}, nil
}

// Set marks the wakeup pending. It performs a single non-blocking write and
// swallows EAGAIN, so it is idempotent and async-signal-safe: no allocation,
// no locks, just a write(2) on an existing descriptor.
func (wk *Wakeup) Set() {
	var b [1]byte
	for {
		_, err := unix.Write(wk.w, b[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		// EAGAIN means a wakeup is already pending; nothing to do.
		return
	}
}

// Reset clears the pending state. The waiter must call it immediately after
// its wait returns, before acting on the wakeup, so a Set that races with the
// processing is not lost.
func (wk *Wakeup) Reset() {
	var buf [64]byte
	for {
		n, err := unix.Read(wk.r, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n <= 0 || err != nil {
			return
		}
	}
}

// FD returns the waitable read end for use with poll(2).
func (wk *Wakeup) FD() int { return wk.r }

// Wait blocks until the wakeup is pending. There is no timeout; the loop is
// purely event-driven.
func (wk *Wakeup) Wait() error {
	fds := []unix.PollFd{{Fd: int32(wk.r), Events: unix.POLLIN}}
	for {
		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fault.Wrap(fault.KindResource, err, "wait on wakeup pipe")
		}
		return nil
	}
}

// Pending reports whether a wakeup is currently pending without consuming it.
func (wk *Wakeup) Pending() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(wk.r), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fault.Wrap(fault.KindResource, err, "poll wakeup pipe")
		}
		return n > 0, nil
	}
}

// Close releases both pipe ends.
func (wk *Wakeup) Close() error {
	err1 := unix.Close(wk.r)
	err2 := unix.Close(wk.w)
	if err1 != nil {
		return err1
	}
	return err2
}
