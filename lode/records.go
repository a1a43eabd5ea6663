package lode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/justapithecus/scanport/metrics"
	"github.com/justapithecus/scanport/types"
)

// RecordKindScan is the record_kind discriminator for scan records.
const RecordKindScan = "scan"

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "scanport"

// tsFormat is fixed-width so timestamps sort lexically.
const tsFormat = "2006-01-02T15:04:05.000Z07:00"

// Partition keys, in Hive layout order.
var partitionKeys = []string{"origin", "day", "outcome"}

// DeriveDay computes the partition day from the session end time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ScanRecord is the storage format for one finished scan session.
type ScanRecord struct {
	RecordKind      string  `json:"record_kind"`
	ContractVersion string  `json:"contract_version"`
	SessionID       string  `json:"session_id"`
	ParentSessionID *string `json:"parent_session_id,omitempty"`
	Attempt         int     `json:"attempt"`

	Scheme        string `json:"scheme,omitempty"`
	Dialect       string `json:"dialect,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	PayloadKind  string `json:"payload_kind,omitempty"`
	URType       string `json:"ur_type,omitempty"`
	PayloadBytes int    `json:"payload_bytes,omitempty"`
	ImportStatus string `json:"import_status,omitempty"`
	WalletID     string `json:"wallet_id,omitempty"`

	PartsScanned      int    `json:"parts_scanned"`
	TotalParts        int    `json:"total_parts"`
	FragmentsReceived int    `json:"fragments_received"`
	DurationMs        int64  `json:"duration_ms"`
	Ts                string `json:"ts"`

	Metrics *metrics.Snapshot `json:"metrics,omitempty"`

	// Partition keys (used by Lode HiveLayout)
	Origin  string `json:"origin"`
	Day     string `json:"day"`
	Outcome string `json:"outcome"`
}

// NewScanRecord builds a record from a terminal outcome. The import result
// may be nil when the scan did not complete.
func NewScanRecord(meta *types.ScanMeta, outcome types.ScanOutcome, imp *types.ImportResult, finishedAt time.Time, duration time.Duration) *ScanRecord {
	rec := &ScanRecord{
		RecordKind:      RecordKindScan,
		ContractVersion: types.ContractVersion,
		SessionID:       meta.SessionID,
		ParentSessionID: meta.ParentSessionID,
		Attempt:         meta.Attempt,
		Scheme:          string(outcome.Progress.Scheme),
		PartsScanned:    outcome.Progress.PartsScanned,
		TotalParts:      outcome.Progress.TotalParts,
		DurationMs:      duration.Milliseconds(),
		Ts:              finishedAt.UTC().Format(tsFormat),
		Origin:          string(meta.Origin),
		Day:             DeriveDay(finishedAt),
		Outcome:         string(outcome.Kind),
	}
	if outcome.Failure != nil {
		rec.FailureReason = string(outcome.Failure.Reason)
	}
	if p := outcome.Payload; p != nil {
		rec.Scheme = string(p.Scheme)
		rec.Dialect = string(p.Dialect)
		rec.PayloadKind = string(p.Kind)
		rec.URType = p.URType
		rec.PayloadBytes = p.Size()
	}
	if imp != nil {
		rec.ImportStatus = string(imp.Status)
		rec.WalletID = imp.WalletID
	}
	return rec
}

// Validate checks that partition keys are present.
func (r *ScanRecord) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("scan record: session_id is required")
	}
	if r.Origin == "" || r.Day == "" || r.Outcome == "" {
		return fmt.Errorf("scan record %s: origin, day and outcome are required", r.SessionID)
	}
	return nil
}

// toRecordMap converts a ScanRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toRecordMap(r *ScanRecord) (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromRecordMap converts a stored record back to a ScanRecord.
func fromRecordMap(m map[string]any) (*ScanRecord, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var r ScanRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
