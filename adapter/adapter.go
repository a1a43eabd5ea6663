// Package adapter defines the boundary for publishing scan completion
// notifications to downstream systems.
//
// The runtime owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/justapithecus/scanport/types"
)

// EventTypeScanCompleted is the event_type of every published event.
const EventTypeScanCompleted = "scan_completed"

// ScanCompletedEvent is the payload published when a session reaches a
// terminal outcome.
type ScanCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "scan_completed"
	SessionID       string `json:"session_id"`
	Origin          string `json:"origin"`
	Outcome         string `json:"outcome"` // complete or failed
	FailureReason   string `json:"failure_reason,omitempty"`
	Scheme          string `json:"scheme,omitempty"`
	PayloadKind     string `json:"payload_kind,omitempty"`
	ImportStatus    string `json:"import_status,omitempty"`
	WalletID        string `json:"wallet_id,omitempty"`
	PartsScanned    int    `json:"parts_scanned"`
	Attempt         int    `json:"attempt"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	DurationMs      int64  `json:"duration_ms"`
}

// NewScanCompletedEvent builds the event for a terminal outcome. imp may be
// nil when the scan did not complete.
func NewScanCompletedEvent(meta *types.ScanMeta, outcome types.ScanOutcome, imp *types.ImportResult, at time.Time, duration time.Duration) *ScanCompletedEvent {
	ev := &ScanCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeScanCompleted,
		SessionID:       meta.SessionID,
		Origin:          string(meta.Origin),
		Outcome:         string(outcome.Kind),
		Scheme:          string(outcome.Progress.Scheme),
		PartsScanned:    outcome.Progress.PartsScanned,
		Attempt:         meta.Attempt,
		Timestamp:       at.UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
	}
	if outcome.Failure != nil {
		ev.FailureReason = string(outcome.Failure.Reason)
	}
	if outcome.Payload != nil {
		ev.Scheme = string(outcome.Payload.Scheme)
		ev.PayloadKind = string(outcome.Payload.Kind)
	}
	if imp != nil {
		ev.ImportStatus = string(imp.Status)
		ev.WalletID = imp.WalletID
	}
	return ev
}

// Adapter publishes scan completion events to a downstream system.
type Adapter interface {
	// Publish sends a scan completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ScanCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
