//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package termmode

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETAF
)
