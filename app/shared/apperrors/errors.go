// Package apperrors holds the error taxonomy shared by the competition modules.
//
// Every domain error carries one of the sentinel kinds below so callers can
// branch with errors.Is without knowing the concrete type.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input, such as a match without exactly two distinct teams.
	ErrValidation = errors.New("validation error")
	// ErrIllegalState marks an operation attempted from the wrong lifecycle state.
	ErrIllegalState = errors.New("illegal state")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPhaseViolation marks a progression step attempted in the wrong event phase or round.
	ErrPhaseViolation = errors.New("phase violation")
	// ErrIntegrity marks persisted data that breaks a structural expectation.
	ErrIntegrity = errors.New("integrity error")
)

// Error is a classified domain error.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind, so errors.Is(err, ErrNotFound) works on wrapped values.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...any) error {
	return newError(ErrValidation, op, format, args...)
}

func IllegalState(op, format string, args ...any) error {
	return newError(ErrIllegalState, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return newError(ErrNotFound, op, format, args...)
}

func PhaseViolation(op, format string, args ...any) error {
	return newError(ErrPhaseViolation, op, format, args...)
}

func Integrity(op, format string, args ...any) error {
	return newError(ErrIntegrity, op, format, args...)
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsDomain reports whether err belongs to the taxonomy. Anything else is an
// infrastructure failure.
func IsDomain(err error) bool {
	for _, kind := range []error{ErrValidation, ErrIllegalState, ErrNotFound, ErrPhaseViolation, ErrIntegrity} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
