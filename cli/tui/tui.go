package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/scanport/types"
)

// OutcomeMsg carries one session outcome into the model.
type OutcomeMsg struct {
	Outcome types.ScanOutcome
}

// DoneMsg reports that the scan driver returned.
type DoneMsg struct {
	Err error
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "cancel scan"),
	),
}

// ScanModel is a Bubble Tea model showing scan progress.
type ScanModel struct {
	cancel   context.CancelFunc
	spinner  spinner.Model
	bar      progress.Model
	outcome  types.ScanOutcome
	received int
	ticks    int
	done     bool
	err      error
	quitting bool
}

// NewScanModel creates a model. cancel is invoked when the user quits.
func NewScanModel(cancel context.CancelFunc) ScanModel {
	return ScanModel{
		cancel:  cancel,
		spinner: newSpinner(),
		bar:     newProgressBar(),
		outcome: types.ScanOutcome{Kind: types.OutcomeInProgress},
	}
}

// Outcome returns the last outcome received.
func (m ScanModel) Outcome() types.ScanOutcome {
	return m.outcome
}

// Received returns the number of outcomes received.
func (m ScanModel) Received() int {
	return m.received
}

// Init implements tea.Model.
func (m ScanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.quitting {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case OutcomeMsg:
		m.outcome = msg.Outcome
		m.received++
		if msg.Outcome.Feedback == types.FeedbackProgressTick {
			m.ticks++
		}
		return m, m.bar.SetPercent(msg.Outcome.Progress.Fraction())

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m ScanModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("scanport"))
	b.WriteString("\n")

	status := string(m.outcome.Kind)
	if !m.done && !m.outcome.Kind.IsTerminal() {
		status = m.spinner.View() + " scanning"
		if m.quitting {
			status = m.spinner.View() + " cancelling"
		}
	}
	b.WriteString(row("status", OutcomeStyle(m.outcome.Kind).Render(status)))

	p := m.outcome.Progress
	if p.Scheme != "" {
		b.WriteString(row("scheme", string(p.Scheme)))
	}
	if p.TotalParts > 0 {
		b.WriteString(row("progress", p.DisplayText()))
		b.WriteString(row("", p.DetailText()))
	}
	b.WriteString(row("fragments", fmt.Sprintf("%d received, %d new", m.received, m.ticks)))
	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")

	switch {
	case m.outcome.Payload != nil:
		b.WriteString("\n")
		b.WriteString(row("payload", fmt.Sprintf("%s (%d bytes)", m.outcome.Payload.Kind, m.outcome.Payload.Size())))
	case m.outcome.Failure != nil:
		b.WriteString("\n")
		b.WriteString(row("failure", ErrorStyle.Render(m.outcome.Failure.Error())))
	}
	if m.err != nil {
		b.WriteString(row("error", ErrorStyle.Render(m.err.Error())))
	}

	out := BoxStyle.Render(b.String())
	if !m.done {
		help := keys.Quit.Help()
		out += "\n" + HelpStyle.Render(help.Key+" "+help.Desc)
	}
	return out + "\n"
}

func row(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value) + "\n"
}

// RunScan runs scan while showing the progress view on out. The scan
// receives a context cancelled when the user quits and a notify callback to
// forward outcomes. RunScan returns once both the view and scan have ended.
func RunScan(ctx context.Context, out io.Writer, scan func(ctx context.Context, notify func(types.ScanOutcome)) error) error {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewScanModel(cancel), tea.WithOutput(out), tea.WithContext(ctx))

	scanErr := make(chan error, 1)
	go func() {
		err := scan(scanCtx, func(o types.ScanOutcome) {
			p.Send(OutcomeMsg{Outcome: o})
		})
		p.Send(DoneMsg{Err: err})
		scanErr <- err
	}()

	_, viewErr := p.Run()
	if viewErr != nil {
		// The view died early; stop the scan and keep its result.
		cancel()
	}
	err := <-scanErr
	if err != nil {
		return err
	}
	if viewErr != nil && ctx.Err() == nil {
		return fmt.Errorf("progress view: %w", viewErr)
	}
	return nil
}
