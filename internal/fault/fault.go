// Package fault classifies the bridge's fatal failure modes so callers and
// tests can assert on the category instead of on process termination.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the failure category. Every fatal condition in the bridge maps to
// exactly one Kind.
type Kind int

const (
	// KindUnknown is the zero value; errors that are not *Error report it.
	KindUnknown Kind = iota
	// KindUsage covers bad flags and a missing child program.
	KindUsage
	// KindEnvironment covers conditions of the invoking environment, such as
	// a required stream that is not a terminal.
	KindEnvironment
	// KindResource covers OS resource failures: termios get/set, wakeup pipe
	// creation. The tool cannot continue without them.
	KindResource
	// KindBackend covers pseudoconsole open and spawn failures.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindEnvironment:
		return "environment"
	case KindResource:
		return "resource"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Error is a classified failure. It wraps an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the classification of err, or KindUnknown when err carries
// no *Error in its chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
