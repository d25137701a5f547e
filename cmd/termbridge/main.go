//go:build unix

package main

import (
	"errors"
	"fmt"
	"os"
	"unicode"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// exitCode carries the child's exit status out of the command handler so the
// bridge exits with the same code.
var exitCode int

func main() {
	// The trampoline path runs before any flag parsing: the reinvoked copy
	// must exec the real child untouched.
	maybeChildExec()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, rootCmd.UsageString())
			os.Exit(1)
		}
		// Print user-friendly error message
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", formatUserError(err))
		os.Exit(1)
	}
	os.Exit(exitCode)
}
