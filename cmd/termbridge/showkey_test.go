//go:build unix

package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"

	"github.com/srg/termbridge/internal/testutils"
)

func TestDumpKeysTranscript(t *testing.T) {
	var out bytes.Buffer
	dumpKeys(&out, color.New(color.FgCyan), []byte{27, '[', 'A'})

	ta := testutils.NewTranscriptAsserter(t, testutils.WithStrippedEscapes())
	ta.Assert(out.String(), "^[[A"+
		"\t 27 0033 0x1b\n"+
		"\t 91 0133 0x5b\n"+
		"\t 65 0101 0x41\n")
}

func TestDumpKeysCtrlD(t *testing.T) {
	var out bytes.Buffer
	dumpKeys(&out, color.New(color.FgCyan), []byte{4})

	ta := testutils.NewTranscriptAsserter(t, testutils.WithStrippedEscapes())
	ta.Assert(out.String(), "^D\t  4 0004 0x04\n")
}
