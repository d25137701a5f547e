//go:build unix

package main

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/srg/termbridge/session"
)

// maybeChildExec handles the spawn trampoline. The session starts this
// binary inside the emulated console with the flag and the real argv; the
// reinvoked copy replaces itself with the program so the child sees a clean
// exec. Does not return in trampoline mode.
func maybeChildExec() {
	if len(os.Args) < 3 || os.Args[1] != session.ChildExecFlag {
		return
	}
	err := childExec(os.Args[2:])
	fmt.Fprintf(os.Stderr, "error: exec failed: %v\n", err)
	os.Exit(1)
}

// childExec resolves argv[0] on PATH and replaces the process image. It only
// returns on failure, with the lookup or exec error.
func childExec(argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}
	return unix.Exec(path, argv, os.Environ())
}
