package testutils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingT captures Errorf calls so the asserter can be tested.
type recordingT struct {
	failures []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func TestDefaultsNormalizeCRLF(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec)

	ta.Assert("line one\r\nline two\r\n", "line one\nline two\n")
	assert.Empty(t, rec.failures)
}

func TestRawLineEndingsKeepCR(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec, WithRawLineEndings())

	ta.Assert("line one\r\n", "line one\n")
	assert.Len(t, rec.failures, 1)
}

func TestStripEscapes(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec, WithStrippedEscapes())

	ta.Assert("\x1b[31mred\x1b[0m text", "red text")
	assert.Empty(t, rec.failures)
}

func TestIgnoreTrailingWhitespace(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec, WithIgnoredTrailingWhitespace())

	ta.Assert("prompt>  \noutput\t\n", "prompt>\noutput\n")
	assert.Empty(t, rec.failures)
}

func TestTrimSpace(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec, WithTrimSpace())

	ta.Assert("\n\n  hello  \n\n", "hello")
	assert.Empty(t, rec.failures)
}

func TestMismatchReportsUnifiedDiff(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec)

	ta.Assert("actual output\n", "expected output\n")
	assert.Len(t, rec.failures, 1)
	assert.Contains(t, rec.failures[0], "-expected output")
	assert.Contains(t, rec.failures[0], "+actual output")
}

func TestDiffColors(t *testing.T) {
	rec := &recordingT{}
	ta := NewTranscriptAsserterWithInterface(rec, WithDiffColors())

	ta.Assert("a\n", "b\n")
	assert.Len(t, rec.failures, 1)
	assert.True(t, strings.Contains(rec.failures[0], "\x1b["),
		"diff output should carry color escapes")
}

func TestOptionsAccumulate(t *testing.T) {
	ta := NewTranscriptAsserterWithInterface(&recordingT{},
		WithStrippedEscapes(), WithTrimSpace())
	opts := ta.GetOptions()
	assert.True(t, opts.NormalizeCRLF)
	assert.True(t, opts.StripEscapes)
	assert.True(t, opts.TrimSpace)
	assert.False(t, opts.IgnoreTrailingWhitespace)
}
