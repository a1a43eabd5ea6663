package classify

import (
	"errors"
	"fmt"

	"github.com/justapithecus/scanport/types"
)

// ErrorKind classifies classification errors.
type ErrorKind int

const (
	// ErrorEmpty indicates a fragment with no payload.
	ErrorEmpty ErrorKind = iota
	// ErrorUnrecognizedFormat indicates a fragment matching no known scheme.
	ErrorUnrecognizedFormat
	// ErrorSchemeMismatch indicates a fragment of a known scheme other than
	// the one the session locked.
	ErrorSchemeMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorEmpty:
		return "empty"
	case ErrorUnrecognizedFormat:
		return "unrecognized_format"
	case ErrorSchemeMismatch:
		return "scheme_mismatch"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error represents a classification failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Reason maps the error to the failure reason surfaced to the UI.
func (e *Error) Reason() types.FailureReason {
	switch e.Kind {
	case ErrorEmpty:
		return types.FailureEmpty
	case ErrorSchemeMismatch:
		return types.FailureSchemeMismatch
	default:
		return types.FailureUnrecognizedFormat
	}
}

// Sentinels for errors.Is.
var (
	ErrEmpty              = &Error{Kind: ErrorEmpty, Msg: "empty fragment"}
	ErrUnrecognizedFormat = &Error{Kind: ErrorUnrecognizedFormat, Msg: "unrecognized format"}
	ErrSchemeMismatch     = &Error{Kind: ErrorSchemeMismatch, Msg: "scheme mismatch"}
)

// IsFatal returns true if the error ends a session even after lock-in.
func (e *Error) IsFatal() bool {
	return e.Kind == ErrorSchemeMismatch
}

// AsError extracts a classification error.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
