package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/scanport/types"
)

func update(t *testing.T, m ScanModel, msg tea.Msg) (ScanModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(ScanModel)
	if !ok {
		t.Fatalf("Update returned %T, want ScanModel", next)
	}
	return sm, cmd
}

func TestScanModel_TracksOutcomes(t *testing.T) {
	m := NewScanModel(nil)

	progress := types.Progress{PartsScanned: 1, PartsLeft: 2, TotalParts: 3, Scheme: types.SchemeSequentialText}
	m, _ = update(t, m, OutcomeMsg{Outcome: types.InProgress(progress, types.FeedbackProgressTick)})
	m, _ = update(t, m, OutcomeMsg{Outcome: types.InProgress(progress, types.FeedbackNone)})

	if m.Received() != 2 {
		t.Errorf("Received() = %d, want 2", m.Received())
	}
	if m.Outcome().Progress.PartsLeft != 2 {
		t.Errorf("PartsLeft = %d, want 2", m.Outcome().Progress.PartsLeft)
	}

	view := m.View()
	for _, want := range []string{"sequential_text", "Scanned 1 of 3", "2 parts left", "2 received, 1 new", "cancel scan"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestScanModel_FailureShown(t *testing.T) {
	m := NewScanModel(nil)
	m, _ = update(t, m, OutcomeMsg{Outcome: types.Failed(types.Progress{}, types.FailureSchemeMismatch, "bbqr after ur")})
	m, cmd := update(t, m, DoneMsg{})
	if cmd == nil {
		t.Fatal("DoneMsg should return tea.Quit")
	}

	view := m.View()
	if !strings.Contains(view, "scheme_mismatch") {
		t.Errorf("View() missing failure reason:\n%s", view)
	}
	if strings.Contains(view, "cancel scan") {
		t.Errorf("View() should drop help after done:\n%s", view)
	}
}

func TestScanModel_QuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	m := NewScanModel(cancel)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if ctx.Err() == nil {
		t.Error("quit key should cancel the scan context")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Errorf("View() should show cancelling:\n%s", m.View())
	}
}

func TestScanModel_DoneError(t *testing.T) {
	m := NewScanModel(nil)
	m, _ = update(t, m, DoneMsg{Err: errors.New("source broke")})
	if !strings.Contains(m.View(), "source broke") {
		t.Errorf("View() missing error:\n%s", m.View())
	}
}

func TestOutcomeStyle(t *testing.T) {
	tests := []struct {
		kind types.OutcomeKind
		want string
	}{
		{types.OutcomeComplete, SuccessStyle.Render("x")},
		{types.OutcomeFailed, ErrorStyle.Render("x")},
		{types.OutcomeInProgress, WarningStyle.Render("x")},
	}
	for _, tt := range tests {
		if got := OutcomeStyle(tt.kind).Render("x"); got != tt.want {
			t.Errorf("OutcomeStyle(%s).Render = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
