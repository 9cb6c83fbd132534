// Package tui provides Bubble Tea views for the beacon CLI.
//
// The TUI is opt-in (--tui) and read-only. It renders the same payloads
// as the table/json/yaml output and never adds data of its own.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/beacon/xray"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
	textColor      = lipgloss.Color("#FFFFFF")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	TitleStyle    = fg(primaryColor).Bold(true).MarginBottom(1)
	LabelStyle    = fg(mutedColor).Width(12)
	ValueStyle    = fg(textColor)
	SuccessStyle  = fg(successColor)
	WarningStyle  = fg(warningColor)
	ErrorStyle    = fg(errorColor)
	SelectedStyle = fg(highlightColor).Bold(true)
	HelpStyle     = fg(mutedColor).MarginTop(1)

	// BoxStyle frames the batch detail pane.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// StatBoxStyle frames one summary figure.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(18).
			Align(lipgloss.Center)

	StatLabelStyle = fg(mutedColor).Align(lipgloss.Center)
	StatValueStyle = fg(textColor).Bold(true).Align(lipgloss.Center)
)

// OutcomeStyle returns a style for a batch outcome.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case xray.OutcomeSuccess:
		return SuccessStyle
	case xray.OutcomePending:
		return WarningStyle
	case xray.OutcomeError:
		return ErrorStyle
	default:
		return ValueStyle
	}
}
