package envprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func noEnv(string) string { return "" }

func TestBuildRemovesTerm(t *testing.T) {
	got := Build([]string{"HOME=/home/u", "TERM=xterm-256color", "SHELL=/bin/sh"}, noEnv)
	assert.Equal(t, []string{"HOME=/home/u", "SHELL=/bin/sh"}, got)
}

func TestBuildPreservesOrder(t *testing.T) {
	in := []string{"Z=1", "A=2", "M=3", "B=4"}
	assert.Equal(t, in, Build(in, noEnv))
}

func TestBuildForwardsDiagnosticsSwitches(t *testing.T) {
	getenv := func(key string) string {
		if key == "TERMBRIDGE_DEBUG" {
			return "trace"
		}
		return ""
	}
	got := Build([]string{"HOME=/home/u"}, getenv)
	assert.Equal(t, []string{"HOME=/home/u", "TERMBRIDGE_DEBUG=trace"}, got)
}

func TestBuildDoesNotDuplicateForwardedVars(t *testing.T) {
	getenv := func(string) string { return "from-getenv" }
	got := Build([]string{"TERMBRIDGE_DEBUG=already", "TERMBRIDGE_SHOW_CONSOLE=1"}, getenv)
	assert.Equal(t, []string{"TERMBRIDGE_DEBUG=already", "TERMBRIDGE_SHOW_CONSOLE=1"}, got)
}

func TestBuildSkipsMalformedEntries(t *testing.T) {
	got := Build([]string{"HOME=/home/u", "garbage", "=nokey"}, noEnv)
	assert.Equal(t, []string{"HOME=/home/u"}, got)
}

func TestBuildKeepsLastDuplicate(t *testing.T) {
	got := Build([]string{"PATH=/bin", "PATH=/usr/bin"}, noEnv)
	assert.Equal(t, []string{"PATH=/usr/bin"}, got)
}
