//go:build unix

package main

import (
	"errors"
	"fmt"

	"github.com/srg/termbridge/pkg/backend"
)

// errUsage asks main to print the usage text and exit nonzero, for
// invocations with no program to run.
var errUsage = errors.New("usage")

// formatUserError turns internal errors into the message shown on stderr.
func formatUserError(err error) string {
	var spawnErr *backend.SpawnError
	if errors.As(err, &spawnErr) && spawnErr.CreateFailed {
		return fmt.Sprintf("Could not start '%s': %v", spawnErr.Program, spawnErr.Err)
	}
	return err.Error()
}
