// Package testutils provides assertion helpers for terminal transcripts.
// Bytes read back from a pty differ from what the child wrote in mechanical
// ways (CR-LF line endings, trailing padding, colour escapes), so plain
// string equality makes for brittle tests; the asserter normalizes those
// differences away and reports the rest as a unified diff.
package testutils

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is an interface that matches the methods we need from testing.T
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type TranscriptOptions struct {
	// NormalizeCRLF folds "\r\n" into "\n" before comparing, since pty
	// output post-processing inserts carriage returns.
	NormalizeCRLF bool `default:"true"`
	// StripEscapes removes ANSI escape sequences before comparing.
	StripEscapes bool `default:"false"`
	// IgnoreTrailingWhitespace drops trailing spaces and tabs per line.
	IgnoreTrailingWhitespace bool `default:"false"`
	// TrimSpace trims leading and trailing whitespace of the whole text.
	TrimSpace bool `default:"false"`
	// EnableColors colorizes the diff output.
	EnableColors bool `default:"false"`
}

// TranscriptOption is a functional option for configuring TranscriptAsserter
type TranscriptOption func(*TranscriptOptions)

func WithStrippedEscapes() TranscriptOption {
	return func(o *TranscriptOptions) { o.StripEscapes = true }
}

func WithTrimSpace() TranscriptOption {
	return func(o *TranscriptOptions) { o.TrimSpace = true }
}

func WithIgnoredTrailingWhitespace() TranscriptOption {
	return func(o *TranscriptOptions) { o.IgnoreTrailingWhitespace = true }
}

func WithDiffColors() TranscriptOption {
	return func(o *TranscriptOptions) { o.EnableColors = true }
}

func WithRawLineEndings() TranscriptOption {
	return func(o *TranscriptOptions) { o.NormalizeCRLF = false }
}

type TranscriptAsserter struct {
	t       TestingT
	options TranscriptOptions
}

// NewTranscriptAsserter creates an asserter with default options.
func NewTranscriptAsserter(t *testing.T, opts ...TranscriptOption) *TranscriptAsserter {
	return NewTranscriptAsserterWithInterface(t, opts...)
}

// NewTranscriptAsserterWithInterface is the TestingT variant, used to test
// the asserter itself.
func NewTranscriptAsserterWithInterface(t TestingT, opts ...TranscriptOption) *TranscriptAsserter {
	options := TranscriptOptions{}
	defaults.SetDefaults(&options)
	for _, opt := range opts {
		opt(&options)
	}
	return &TranscriptAsserter{t: t, options: options}
}

// GetOptions returns a copy of the current options (for testing)
func (ta *TranscriptAsserter) GetOptions() TranscriptOptions {
	return ta.options
}

// Assert compares an actual transcript against the expected text.
func (ta *TranscriptAsserter) Assert(actual, expected string) {
	if diff := ta.diff(actual, expected); diff != "" {
		ta.t.Errorf("Transcript assertion failed - unified diff:\n%s", diff)
	}
}

func (ta *TranscriptAsserter) diff(actual, expected string) string {
	normalizedActual := ta.normalize(actual)
	normalizedExpected := ta.normalize(expected)
	if normalizedActual == normalizedExpected {
		return ""
	}

	edits := myers.ComputeEdits("", normalizedExpected, normalizedActual)
	unified := gotextdiff.ToUnified("expected", "actual", normalizedExpected, edits)
	return ta.colorizeUnifiedDiff(fmt.Sprint(unified))
}

// ansiEscape matches CSI and simple two-byte escape sequences.
var ansiEscape = regexp.MustCompile(`\x1b(\[[0-9;?]*[ -/]*[@-~]|[@-Z\\-_])`)

func (ta *TranscriptAsserter) normalize(text string) string {
	if ta.options.NormalizeCRLF {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	if ta.options.StripEscapes {
		text = ansiEscape.ReplaceAllString(text, "")
	}
	if ta.options.IgnoreTrailingWhitespace {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
		text = strings.Join(lines, "\n")
	}
	if ta.options.TrimSpace {
		text = strings.TrimSpace(text)
	}
	return text
}

// colorizeUnifiedDiff applies colors to unified diff output
func (ta *TranscriptAsserter) colorizeUnifiedDiff(diff string) string {
	if !ta.options.EnableColors {
		return diff
	}

	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()
	cyan := color.New(color.FgCyan)
	cyan.EnableColor()

	lines := strings.Split(diff, "\n")
	colorized := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "-"):
			colorized = append(colorized, red.Sprint(line))
		case strings.HasPrefix(line, "+"):
			colorized = append(colorized, green.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			colorized = append(colorized, cyan.Sprint(line))
		default:
			colorized = append(colorized, line)
		}
	}
	return strings.Join(colorized, "\n")
}
