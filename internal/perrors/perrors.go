// Package perrors defines the closed taxonomy of process-facing error
// codes that PennOS syscalls report back to their callers (spec §6/§7),
// translated from the C original's global P_ERRNO + str_error table into
// a wrapped Go error that still carries a recoverable Code.
package perrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is one of the process error codes surfaced via the global
// errno-like integer described in spec §6.
type Code int

const (
	// InvalidArg covers malformed or out-of-range arguments.
	InvalidArg Code = iota + 1
	// NoSuchFile means a name did not resolve to a directory entry.
	NoSuchFile
	// InvalidSignal means kill was asked to deliver an unknown signal.
	InvalidSignal
	// NoChild means waitpid/kill targeted a PID that is not a child.
	NoChild
	// DequeError means a priority deque or PID deque operation failed
	// an invariant (empty pop, duplicate push, missing member).
	DequeError
	// FDError covers FD range, FD-not-open, and open-mode conflicts.
	FDError
	// IOError covers mid-operation host I/O failures.
	IOError
	// ParseError means a command line failed to tokenize or had an
	// invalid shape.
	ParseError
	// PermError covers capability and chmod-transition rejections.
	PermError
	// CmdNotFound means a builtin/executable name was not recognized.
	CmdNotFound
	// HostError means the underlying OS call (open/read/write/mmap)
	// failed outright.
	HostError
	// InvalidJob means a job id given to fg/bg/jobs does not exist.
	InvalidJob
)

var names = map[Code]string{
	InvalidArg:    "Invalid argument(s)",
	NoSuchFile:    "No such file or directory",
	InvalidSignal: "Invalid signal",
	NoChild:       "No child processes",
	DequeError:    "Deque error",
	FDError:       "File descriptor/table error",
	IOError:       "I/O error",
	ParseError:    "Invalid parse",
	PermError:     "Invalid permissions",
	CmdNotFound:   "Invalid command",
	HostError:     "Host OS error",
	InvalidJob:    "Invalid job / job doesn't exist",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "Unknown error"
}

// Error is the concrete error type every PennOS syscall returns. It
// keeps a Code so a caller can recover the errno-like classification
// without string matching, while still composing with the standard
// errors.Is/As machinery through the wrapped cause.
type Error struct {
	Code  Code
	cause error
}

// New builds a bare Error carrying only a code, no underlying cause.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap attaches code to an underlying host or library error, preserving
// the original error's chain via github.com/pkg/errors so callers that
// print it still see the root cause.
func Wrap(code Code, cause error) *Error {
	if cause == nil {
		return New(code)
	}
	return &Error{Code: code, cause: errors.Wrap(cause, code.String())}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.Code.String()
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the innermost error pkg/errors recorded, or nil.
func (e *Error) Cause() error {
	if e.cause == nil {
		return nil
	}
	return errors.Cause(e.cause)
}

// CodeOf recovers the Code carried by err, or 0 if err is nil or not a
// *perrors.Error.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// Annotatef is the built-in-facing helper equivalent to the original
// u_error: it formats "[prefix]: message" the way the C original's
// u_error wrote to fd 2, without performing the write itself (callers
// route the line through klog/stderr as appropriate for their context).
func Annotatef(err error, format string, args ...any) string {
	prefix := fmt.Sprintf(format, args...)
	if prefix == "" {
		return err.Error()
	}
	return fmt.Sprintf("[%s]: %s", prefix, err.Error())
}
