package types

import (
	"errors"
	"fmt"
)

// ScanMeta carries session identity and lineage through logs, journal records
// and completion events.
type ScanMeta struct {
	// SessionID is the canonical session identifier. Must be globally unique.
	SessionID string
	// Origin is the capture source the session was opened for.
	Origin Origin
	// ParentSessionID links a session restarted after a failure or reset to
	// its predecessor. Nil for the first attempt.
	ParentSessionID *string
	// Attempt is the attempt number. Starts at 1.
	Attempt int
}

// Validate validates lineage rules:
//   - attempt >= 1
//   - attempt == 1 => parent_session_id must be nil
//   - attempt > 1 => parent_session_id must be present
func (m *ScanMeta) Validate() error {
	if m.SessionID == "" {
		return errors.New("session_id must be non-empty")
	}

	if m.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", m.Attempt)
	}

	if m.Attempt == 1 && m.ParentSessionID != nil {
		return errors.New("first attempt must not have parent_session_id")
	}

	if m.Attempt > 1 && m.ParentSessionID == nil {
		return fmt.Errorf("attempt %d must have parent_session_id", m.Attempt)
	}

	return nil
}

// Next returns the lineage for a retry session with the given id.
func (m *ScanMeta) Next(sessionID string) *ScanMeta {
	parent := m.SessionID
	return &ScanMeta{
		SessionID:       sessionID,
		Origin:          m.Origin,
		ParentSessionID: &parent,
		Attempt:         m.Attempt + 1,
	}
}
