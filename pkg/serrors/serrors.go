// Package serrors attaches a semantic kind to errors. The kind survives any
// amount of %w wrapping, so the CLI can pick an exit status and the queue
// worker can decide between retrying and cancelling without string matching.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a sentinel naming a category of failure. Each kind carries the
// process exit status used when an error of that kind ends the CLI.
type Kind interface {
	error
	ExitCode() int
}

type kind struct {
	name string
	code int
}

func (k kind) Error() string { return k.name }
func (k kind) ExitCode() int { return k.code }

// NewKind declares a kind. Kinds are compared by identity of the returned
// value, so declare each one once as a package variable.
func NewKind(name string, exitCode int) Kind {
	return &kind{name: name, code: exitCode}
}

var (
	ErrNotFound   = NewKind("NOT_FOUND", 1)
	ErrBadRequest = NewKind("BAD_REQUEST", 2)
	// ErrConflict reports a run that is already queued.
	ErrConflict = NewKind("CONFLICT", 1)
	ErrInternal = NewKind("INTERNAL", 1)
	// ErrTimeout uses the status timeout(1) exits with.
	ErrTimeout = NewKind("TIMEOUT", 124)
	// ErrUnavailable reports a missing dependency such as the gf patterns
	// directory or the database. 69 is EX_UNAVAILABLE from sysexits.h.
	ErrUnavailable = NewKind("UNAVAILABLE", 69)
)

// Error is an error tagged with a Kind. It optionally wraps a cause.
type Error struct {
	kind  Kind
	cause error
	msg   string
}

// With returns a new error of kind k with a formatted message.
func With(k Kind, format string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a new error of kind k that wraps cause. The message is
// prefixed to the cause as in "msg: cause".
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: k, cause: cause, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.msg != "" && e.cause != nil:
		return e.msg + ": " + e.cause.Error()
	case e.msg != "":
		return e.msg
	case e.cause != nil:
		return e.cause.Error()
	}

	return e.kind.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches the kind as well as anything in the cause chain.
func (e *Error) Is(target error) bool {
	return target == e.kind //nolint: errorlint
}

// As extracts the kind when target is a *Kind. The cause chain is walked by
// errors.As itself through Unwrap.
func (e *Error) As(target any) bool {
	k, ok := target.(*Kind)
	if !ok {
		return false
	}
	*k = e.kind

	return true
}

// Kind returns the kind of e.
func (e *Error) Kind() Kind { return e.kind }

// KindOf returns the kind of the outermost tagged error in err's chain, or nil.
func KindOf(err error) Kind {
	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return nil
}
