// Package errs defines the error kinds shared by the diff and annotation
// pipelines. File and document level errors abort an operation; malformed
// field errors are reported per element and never abort a render.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindInput Kind = iota + 1
	KindSizeMismatch
	KindMalformedField
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindSizeMismatch:
		return "size mismatch"
	case KindMalformedField:
		return "malformed field"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInput          = errors.New("input error")
	ErrSizeMismatch   = errors.New("size mismatch")
	ErrMalformedField = errors.New("malformed field")
	ErrIO             = errors.New("io error")
)

// Error is a classified error. Path names the file involved, Field the
// offending annotation key, if any.
type Error struct {
	Kind  Kind
	Op    string
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == KindInput
	case ErrSizeMismatch:
		return e.Kind == KindSizeMismatch
	case ErrMalformedField:
		return e.Kind == KindMalformedField
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

// Input reports a missing or unreadable file or a malformed document shape.
func Input(op, path string, err error) error {
	return &Error{Kind: KindInput, Op: op, Path: path, Err: err}
}

// SizeMismatch reports two images whose dimensions differ.
func SizeMismatch(bw, bh, cw, ch int) error {
	return &Error{
		Kind: KindSizeMismatch,
		Op:   "image sizes differ",
		Err:  fmt.Errorf("baseline %dx%d, current %dx%d; re-run with resize to match baseline size", bw, bh, cw, ch),
	}
}

// MalformedField reports an unparseable color, measure or anchor value.
func MalformedField(field string, value any) error {
	return &Error{
		Kind:  KindMalformedField,
		Op:    "cannot parse value",
		Field: field,
		Err:   fmt.Errorf("%v", value),
	}
}

// IO reports a failed write.
func IO(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
