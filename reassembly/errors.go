package reassembly

import (
	"errors"
	"fmt"

	"github.com/justapithecus/scanport/types"
)

// AccumulatorErrorKind classifies accumulator errors.
type AccumulatorErrorKind int

const (
	// AccumulatorInconsistentTotal indicates a fragment declaring a different total.
	AccumulatorInconsistentTotal AccumulatorErrorKind = iota
	// AccumulatorInconsistentStream indicates a fragment from a different
	// encoded payload (encoding, file type, UR type or fountain parameters).
	AccumulatorInconsistentStream
	// AccumulatorIndexOutOfRange indicates an index outside [1, total].
	AccumulatorIndexOutOfRange
)

// AccumulatorError represents a fragment the accumulator cannot record.
type AccumulatorError struct {
	Kind AccumulatorErrorKind
	Msg  string
	Err  error
}

func (e *AccumulatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AccumulatorError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error ends the session. An out-of-range index
// is treated as noise once a stream is established.
func (e *AccumulatorError) IsFatal() bool {
	return e.Kind != AccumulatorIndexOutOfRange
}

// Reason maps the error to the failure reason surfaced to the UI.
func (e *AccumulatorError) Reason() types.FailureReason {
	switch e.Kind {
	case AccumulatorInconsistentTotal:
		return types.FailureInconsistentTotal
	case AccumulatorInconsistentStream:
		return types.FailureInconsistentStream
	default:
		return types.FailureUnrecognizedFormat
	}
}

// MergeErrorKind classifies merge errors.
type MergeErrorKind int

const (
	// MergeCorruptPayload indicates merged data that does not decode.
	MergeCorruptPayload MergeErrorKind = iota
)

// MergeError represents a failed merge-and-decode.
type MergeError struct {
	Kind MergeErrorKind
	Msg  string
	Err  error
	// Recoverable is set when more parts can still produce a valid message:
	// a fountain message that failed its checksum. A message that verified
	// but does not decode as its type never recovers.
	Recoverable bool
}

func (e *MergeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Reason maps the error to the failure reason surfaced to the UI.
func (e *MergeError) Reason() types.FailureReason {
	return types.FailureCorruptPayload
}

var (
	// ErrMergeNotReady is returned by Merge before the accumulator is ready.
	ErrMergeNotReady = errors.New("merge not ready")
	// ErrAlreadyMerged is returned by Merge after a successful merge.
	ErrAlreadyMerged = errors.New("already merged")
)

// AsAccumulatorError extracts an accumulator error.
func AsAccumulatorError(err error) (*AccumulatorError, bool) {
	var ae *AccumulatorError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// AsMergeError extracts a merge error.
func AsMergeError(err error) (*MergeError, bool) {
	var me *MergeError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

func corrupt(msg string, err error) *MergeError {
	return &MergeError{Kind: MergeCorruptPayload, Msg: msg, Err: err}
}
