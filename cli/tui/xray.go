package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/beacon/xray"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous batch"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next batch"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// BatchesModel lists archived batches with a detail pane for the
// selected one.
type BatchesModel struct {
	batches  []*xray.NetworkBatch
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewBatchesModel creates a batch list model.
func NewBatchesModel(batches []*xray.NetworkBatch) BatchesModel {
	return BatchesModel{batches: batches}
}

// Init implements tea.Model.
func (m BatchesModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BatchesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.batches)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

// Cursor returns the index of the selected batch.
func (m BatchesModel) Cursor() int { return m.cursor }

// View implements tea.Model.
func (m BatchesModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Xray Batches"))
	b.WriteString("\n")

	if len(m.batches) == 0 {
		b.WriteString(LabelStyle.Render("(no batches)"))
	} else {
		list := m.renderList()
		detail := BoxStyle.Render(m.renderDetail(m.batches[m.cursor]))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", detail))
	}

	help := HelpStyle.Render("↑/↓ select • q quit")
	return b.String() + "\n" + help
}

func (m BatchesModel) renderList() string {
	rows := make([]string, 0, len(m.batches))
	for i, batch := range m.batches {
		line := fmt.Sprintf("#%-4d %-8s %4d msgs %7d B",
			batch.BatchNumber, batch.Outcome, batch.MessageCount, batch.Bytes)
		if i == m.cursor {
			rows = append(rows, SelectedStyle.Render("> "+line))
			continue
		}
		rows = append(rows, OutcomeStyle(batch.Outcome).Render("  "+line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m BatchesModel) renderDetail(batch *xray.NetworkBatch) string {
	var b strings.Builder
	b.WriteString(m.renderField("Batch", fmt.Sprintf("#%d", batch.BatchNumber)))
	b.WriteString(m.renderField("ID", batch.ID))
	b.WriteString(m.renderField("Outcome", OutcomeStyle(batch.Outcome).Render(batch.Outcome)))
	b.WriteString(m.renderField("Started", batch.Start.Format("2006-01-02 15:04:05.000")))
	b.WriteString(m.renderField("Latency", batch.Latency().String()))
	b.WriteString(m.renderField("Messages", fmt.Sprintf("%d", batch.MessageCount)))
	b.WriteString(m.renderField("Bytes", fmt.Sprintf("%d", batch.Bytes)))

	if len(batch.Calls) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Calls"))
		b.WriteString("\n")
		for i := range batch.Calls {
			c := &batch.Calls[i]
			line := fmt.Sprintf("  %s (%s)", c.Name, c.Duration())
			if len(c.Errors) > 0 {
				line = ErrorStyle.Render(fmt.Sprintf("%s, %d errors", line, len(c.Errors)))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, e := range batch.Errors {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s: %s", e.Context, e.Message)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m BatchesModel) renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", LabelStyle.Render(label+":"), ValueStyle.Render(value))
}

// SummaryModel shows archive totals as stat boxes.
type SummaryModel struct {
	totals   xray.Totals
	quitting bool
}

// NewSummaryModel creates a totals model.
func NewSummaryModel(totals xray.Totals) SummaryModel {
	return SummaryModel{totals: totals}
}

// Init implements tea.Model.
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Xray Summary"))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Batches", fmt.Sprintf("%d", m.totals.Batches), highlightColor),
		renderStatBox("Calls", fmt.Sprintf("%d", m.totals.Calls), primaryColor),
		renderStatBox("Bytes", fmt.Sprintf("%d", m.totals.BytesSent), successColor),
		renderStatBox("Time in calls", m.totals.TimeSpent.String(), warningColor),
		renderStatBox("Errors", fmt.Sprintf("%d", m.totals.Errors), errorColor),
		renderStatBox("Network errors", fmt.Sprintf("%d", m.totals.NetworkErrors), errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunBatchesTUI runs the batch list TUI.
func RunBatchesTUI(data any) error {
	batches, ok := data.([]*xray.NetworkBatch)
	if !ok {
		return fmt.Errorf("invalid data type %T for %s", data, ViewXrayBatches)
	}
	_, err := tea.NewProgram(NewBatchesModel(batches), tea.WithAltScreen()).Run()
	return err
}

// RunSummaryTUI runs the totals TUI.
func RunSummaryTUI(data any) error {
	totals, ok := data.(xray.Totals)
	if !ok {
		return fmt.Errorf("invalid data type %T for %s", data, ViewXraySummary)
	}
	_, err := tea.NewProgram(NewSummaryModel(totals), tea.WithAltScreen()).Run()
	return err
}
