package types

// SchemeKind is the closed set of multi-part encodings a session can lock in.
type SchemeKind string

const (
	// SchemeSingle is a self-contained payload carried by one fragment.
	SchemeSingle SchemeKind = "single"
	// SchemeSequentialText is an indexed encoding concatenated in index order.
	SchemeSequentialText SchemeKind = "sequential_text"
	// SchemeFountainCoded is a rateless encoding where any sufficient set of
	// distinct fragments reconstructs the payload.
	SchemeFountainCoded SchemeKind = "fountain_coded"
)

// IsMultiPart returns true if the scheme needs more than one fragment in general.
func (s SchemeKind) IsMultiPart() bool {
	return s == SchemeSequentialText || s == SchemeFountainCoded
}

// Dialect is the header grammar inside a scheme.
type Dialect string

// Dialects recognized by the classifier.
const (
	DialectSingle Dialect = "single"
	DialectPlain  Dialect = "plain"
	DialectBBQr   Dialect = "bbqr"
	DialectUR     Dialect = "ur"
)

// SchemeLock is the scheme and dialect fixed by a session's first fragment.
type SchemeLock struct {
	Scheme  SchemeKind
	Dialect Dialect
}

// FeedbackHint is a haptic or visual cue the UI layer may render.
type FeedbackHint string

const (
	// FeedbackNone means nothing changed worth signaling (duplicate frame).
	FeedbackNone FeedbackHint = "none"
	// FeedbackProgressTick means a new part was recorded.
	FeedbackProgressTick FeedbackHint = "progress_tick"
	// FeedbackSuccess means the scan completed.
	FeedbackSuccess FeedbackHint = "success"
)
