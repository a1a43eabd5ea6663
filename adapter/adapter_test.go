package adapter

import (
	"testing"
	"time"

	"github.com/justapithecus/scanport/types"
)

func TestNewScanCompletedEvent(t *testing.T) {
	parent := "scan-000"
	meta := &types.ScanMeta{SessionID: "scan-001", Origin: types.OriginOptical, ParentSessionID: &parent, Attempt: 2}
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		outcome      types.ScanOutcome
		imp          *types.ImportResult
		wantOutcome  string
		wantReason   string
		wantKind     string
		wantStatus   string
		wantWalletID string
	}{
		{
			name: "imported",
			outcome: types.Complete(
				types.Progress{PartsScanned: 4, TotalParts: 4, Scheme: types.SchemeFountainCoded},
				&types.DecodedPayload{Kind: types.PayloadPSBT, Scheme: types.SchemeFountainCoded},
			),
			imp:          types.Imported("0011223344556677"),
			wantOutcome:  "complete",
			wantKind:     "psbt",
			wantStatus:   "imported",
			wantWalletID: "0011223344556677",
		},
		{
			name:        "failed",
			outcome:     types.Failed(types.Progress{PartsScanned: 1}, types.FailureSchemeMismatch, "bbqr after ur"),
			wantOutcome: "failed",
			wantReason:  "scheme_mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewScanCompletedEvent(meta, tt.outcome, tt.imp, at, 1500*time.Millisecond)
			if ev.EventType != EventTypeScanCompleted {
				t.Errorf("EventType = %q, want %q", ev.EventType, EventTypeScanCompleted)
			}
			if ev.ContractVersion != types.ContractVersion {
				t.Errorf("ContractVersion = %q, want %q", ev.ContractVersion, types.ContractVersion)
			}
			if ev.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", ev.Outcome, tt.wantOutcome)
			}
			if ev.FailureReason != tt.wantReason {
				t.Errorf("FailureReason = %q, want %q", ev.FailureReason, tt.wantReason)
			}
			if ev.PayloadKind != tt.wantKind {
				t.Errorf("PayloadKind = %q, want %q", ev.PayloadKind, tt.wantKind)
			}
			if ev.ImportStatus != tt.wantStatus {
				t.Errorf("ImportStatus = %q, want %q", ev.ImportStatus, tt.wantStatus)
			}
			if ev.WalletID != tt.wantWalletID {
				t.Errorf("WalletID = %q, want %q", ev.WalletID, tt.wantWalletID)
			}
			if ev.Timestamp != "2026-03-04T10:00:00Z" {
				t.Errorf("Timestamp = %q", ev.Timestamp)
			}
			if ev.DurationMs != 1500 {
				t.Errorf("DurationMs = %d, want 1500", ev.DurationMs)
			}
			if ev.Attempt != 2 {
				t.Errorf("Attempt = %d, want 2", ev.Attempt)
			}
		})
	}
}
