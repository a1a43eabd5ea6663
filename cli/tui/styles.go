// Package tui renders live scan progress with Bubble Tea.
//
// The view is opt-in (--tui) and draws to stderr so stdout keeps the
// rendered result.
package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/scanport/types"
)

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
)

var (
	// TitleStyle for the view header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	ValueStyle   = lipgloss.NewStyle()
	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)

	// BoxStyle frames the scan panel.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// OutcomeStyle picks a style for an outcome kind.
func OutcomeStyle(kind types.OutcomeKind) lipgloss.Style {
	switch kind {
	case types.OutcomeComplete:
		return SuccessStyle
	case types.OutcomeInProgress:
		return WarningStyle
	case types.OutcomeFailed:
		return ErrorStyle
	default:
		return ValueStyle
	}
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return s
}

func newProgressBar() progress.Model {
	return progress.New(
		progress.WithGradient(string(primaryColor), string(successColor)),
		progress.WithWidth(40),
	)
}
