// Package session implements the scan session state machine a UI drives:
// one session per scan screen, fed one fragment at a time.
package session

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/justapithecus/scanport/classify"
	"github.com/justapithecus/scanport/log"
	"github.com/justapithecus/scanport/metrics"
	"github.com/justapithecus/scanport/reassembly"
	"github.com/justapithecus/scanport/types"
)

// State is the session lifecycle state.
type State string

const (
	// StateIdle means no fragment has been accepted yet.
	StateIdle State = "idle"
	// StateCollecting means a scheme is locked and parts are being collected.
	StateCollecting State = "collecting"
	// StateCompleted means a payload was reassembled.
	StateCompleted State = "completed"
	// StateFailed means the session ended without a payload.
	StateFailed State = "failed"
)

// IsTerminal returns true for completed and failed.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Config configures a session.
type Config struct {
	// Meta carries session identity. A nil Meta gets a fresh UUID, optical
	// origin and attempt 1.
	Meta *types.ScanMeta
	// Logger receives session events. Nil discards.
	Logger *log.Logger
	// Collector receives counters. Nil is allowed.
	Collector *metrics.Collector
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID                string             `json:"session_id"`
	Origin            types.Origin       `json:"origin"`
	State             State              `json:"state"`
	Progress          types.Progress     `json:"progress"`
	Estimated         float64            `json:"estimated_complete"`
	FragmentsReceived int                `json:"fragments_received"`
	Outcome           *types.ScanOutcome `json:"outcome,omitempty"`
}

// Session reassembles one payload. Submit, Cancel, Reset and Snapshot are
// serialized; fragments are processed in call order.
type Session struct {
	mu sync.Mutex

	meta      types.ScanMeta
	logger    *log.Logger
	collector *metrics.Collector

	state     State
	acc       *reassembly.Accumulator
	outcome   *types.ScanOutcome
	lastLeft  int
	received  int
	announced bool
}

// New creates an idle session.
func New(cfg Config) *Session {
	meta := types.ScanMeta{SessionID: uuid.NewString(), Origin: types.OriginOptical, Attempt: 1}
	if cfg.Meta != nil {
		meta = *cfg.Meta
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	s := &Session{
		meta:      meta,
		logger:    logger.WithSession(&meta),
		collector: cfg.Collector,
	}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.state = StateIdle
	s.acc = reassembly.New()
	s.outcome = nil
	s.lastLeft = math.MaxInt
	s.received = 0
	s.announced = false
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.meta.SessionID
}

// Meta returns the session identity.
func (s *Session) Meta() types.ScanMeta {
	return s.meta
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit processes one fragment and returns the resulting outcome. Once the
// session is terminal every call returns the cached terminal outcome.
func (s *Session) Submit(f types.Fragment) types.ScanOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome != nil {
		return *s.outcome
	}
	s.collector.IncFragmentReceived()
	if !s.announced {
		s.announced = true
		s.collector.IncSessionStarted()
	}
	s.received++

	first := s.acc.Lock() == nil

	c, err := classify.Classify(f, s.acc.Lock())
	if err != nil {
		ce, _ := classify.AsError(err)
		if first || ce == nil || ce.IsFatal() {
			reason := types.FailureUnrecognizedFormat
			if ce != nil {
				reason = ce.Reason()
			}
			return s.fail(reason, err.Error())
		}
		return s.ignore("classification", err)
	}

	res, err := s.acc.Add(c)
	if err != nil {
		ae, ok := reassembly.AsAccumulatorError(err)
		if ok && !ae.IsFatal() && !first {
			return s.ignore("accumulator", err)
		}
		if ok {
			return s.fail(ae.Reason(), err.Error())
		}
		return s.fail(types.FailureUnrecognizedFormat, err.Error())
	}

	if first {
		s.state = StateCollecting
		s.logger.Info("scheme locked", map[string]any{
			"scheme":      string(c.Scheme),
			"dialect":     string(c.Dialect),
			"total_parts": res.TotalParts,
		})
	}

	switch res.Kind {
	case reassembly.AddDuplicate:
		s.collector.IncFragmentDuplicate()
		return types.InProgress(s.acc.Progress(), types.FeedbackNone)
	case reassembly.AddAccepted:
		s.collector.IncFragmentAccepted()
		return types.InProgress(s.acc.Progress(), s.feedback(res.PartsLeft))
	case reassembly.AddMergeReady:
		s.collector.IncFragmentAccepted()
		return s.merge()
	default:
		// AlreadyComplete cannot be reached while outcome is nil.
		return types.InProgress(s.acc.Progress(), types.FeedbackNone)
	}
}

// feedback ticks the first time partsLeft drops below its previous value.
func (s *Session) feedback(partsLeft int) types.FeedbackHint {
	if partsLeft < s.lastLeft {
		s.lastLeft = partsLeft
		return types.FeedbackProgressTick
	}
	return types.FeedbackNone
}

func (s *Session) merge() types.ScanOutcome {
	s.collector.IncMergeAttempted()

	p, err := s.acc.Merge()
	if err == nil {
		s.state = StateCompleted
		out := types.Complete(s.acc.Progress(), p)
		s.outcome = &out
		s.collector.IncSessionCompleted()
		s.logger.Info("scan completed", map[string]any{
			"payload_kind":  string(p.Kind),
			"payload_size":  p.Size(),
			"parts_scanned": out.Progress.PartsScanned,
			"fragments":     s.received,
		})
		return out
	}

	s.collector.IncMergeFailed()
	me, ok := reassembly.AsMergeError(err)
	if ok && me.Recoverable {
		s.logger.Warn("merge failed, collecting more parts", map[string]any{
			"error":      err.Error(),
			"parts_left": s.acc.PartsLeft(),
		})
		return types.InProgress(s.acc.Progress(), types.FeedbackNone)
	}

	reason := types.FailureCorruptPayload
	if ok {
		reason = me.Reason()
	}
	return s.fail(reason, err.Error())
}

func (s *Session) ignore(stage string, err error) types.ScanOutcome {
	s.collector.IncFragmentIgnored()
	s.logger.Debug("fragment ignored", map[string]any{
		"stage": stage,
		"error": err.Error(),
	})
	return types.InProgress(s.acc.Progress(), types.FeedbackNone)
}

func (s *Session) fail(reason types.FailureReason, msg string) types.ScanOutcome {
	s.state = StateFailed
	out := types.Failed(s.acc.Progress(), reason, msg)
	s.outcome = &out
	s.collector.IncSessionFailed(string(reason))
	s.logger.Warn("scan failed", map[string]any{
		"reason":    string(reason),
		"error":     msg,
		"fragments": s.received,
	})
	return out
}

// Cancel ends a non-terminal session with user_cancelled. On a terminal
// session it returns the cached outcome.
func (s *Session) Cancel() types.ScanOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome != nil {
		return *s.outcome
	}
	return s.fail(types.FailureUserCancelled, "scan cancelled")
}

// Reset discards all state and returns the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.reset()
	s.logger.Debug("session reset", map[string]any{"previous_state": string(prev)})
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                s.meta.SessionID,
		Origin:            s.meta.Origin,
		State:             s.state,
		Progress:          s.acc.Progress(),
		Estimated:         s.acc.EstimatedPercentComplete(),
		FragmentsReceived: s.received,
	}
	if s.outcome != nil {
		out := *s.outcome
		snap.Outcome = &out
	}
	return snap
}
