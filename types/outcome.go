package types

import "fmt"

// OutcomeKind discriminates ScanOutcome.
type OutcomeKind string

const (
	// OutcomeInProgress means more fragments are needed.
	OutcomeInProgress OutcomeKind = "in_progress"
	// OutcomeComplete means the payload was reassembled and decoded.
	OutcomeComplete OutcomeKind = "complete"
	// OutcomeFailed means the session terminated without a payload.
	OutcomeFailed OutcomeKind = "failed"
)

// IsTerminal returns true for complete and failed outcomes.
func (k OutcomeKind) IsTerminal() bool {
	return k == OutcomeComplete || k == OutcomeFailed
}

// FailureReason classifies a failed outcome.
type FailureReason string

// Failure reasons surfaced to the UI.
const (
	FailureEmpty              FailureReason = "empty"
	FailureUnrecognizedFormat FailureReason = "unrecognized_format"
	FailureSchemeMismatch     FailureReason = "scheme_mismatch"
	FailureInconsistentTotal  FailureReason = "inconsistent_total"
	FailureInconsistentStream FailureReason = "inconsistent_stream"
	FailureCorruptPayload     FailureReason = "corrupt_payload"
	FailureUserCancelled      FailureReason = "user_cancelled"
)

// Failure describes why a session failed.
type Failure struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// Progress is the reassembly progress after a fragment.
type Progress struct {
	// PartsScanned is the number of distinct fragments recorded.
	PartsScanned int `json:"parts_scanned"`
	// PartsLeft is the number of fragments still required.
	PartsLeft int `json:"parts_left"`
	// TotalParts is the declared (or refined) total. Zero before the first fragment.
	TotalParts int `json:"total_parts"`
	// Scheme is the locked scheme, empty before the first fragment.
	Scheme SchemeKind `json:"scheme,omitempty"`
}

// Fraction returns scanned/total clamped to [0, 1].
func (p Progress) Fraction() float64 {
	if p.TotalParts <= 0 {
		return 0
	}
	done := p.TotalParts - p.PartsLeft
	if done < 0 {
		return 0
	}
	f := float64(done) / float64(p.TotalParts)
	if f > 1 {
		return 1
	}
	return f
}

// DisplayText renders progress like "Scanned 3 of 10".
func (p Progress) DisplayText() string {
	return fmt.Sprintf("Scanned %d of %d", p.TotalParts-p.PartsLeft, p.TotalParts)
}

// DetailText renders the remaining count like "7 parts left".
func (p Progress) DetailText() string {
	if p.PartsLeft == 1 {
		return "1 part left"
	}
	return fmt.Sprintf("%d parts left", p.PartsLeft)
}

// ScanOutcome is surfaced once per submitted fragment.
type ScanOutcome struct {
	Kind     OutcomeKind     `json:"kind"`
	Progress Progress        `json:"progress"`
	Payload  *DecodedPayload `json:"payload,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`
	Feedback FeedbackHint    `json:"feedback"`
}

// InProgress builds an in-progress outcome.
func InProgress(progress Progress, feedback FeedbackHint) ScanOutcome {
	return ScanOutcome{Kind: OutcomeInProgress, Progress: progress, Feedback: feedback}
}

// Complete builds a complete outcome. Feedback is always FeedbackSuccess.
func Complete(progress Progress, payload *DecodedPayload) ScanOutcome {
	return ScanOutcome{Kind: OutcomeComplete, Progress: progress, Payload: payload, Feedback: FeedbackSuccess}
}

// Failed builds a failed outcome.
func Failed(progress Progress, reason FailureReason, message string) ScanOutcome {
	return ScanOutcome{
		Kind:     OutcomeFailed,
		Progress: progress,
		Failure:  &Failure{Reason: reason, Message: message},
		Feedback: FeedbackNone,
	}
}
