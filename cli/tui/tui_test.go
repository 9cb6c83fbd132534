package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/beacon/xray"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{ViewXrayBatches, true},
		{ViewXraySummary, true},
		{"simulate", false},
		{"version", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestRun_RejectsWrongData(t *testing.T) {
	if err := Run(ViewXrayBatches, "not batches"); err == nil {
		t.Error("Run() with wrong data type should fail")
	}
	if err := Run("simulate", nil); err == nil {
		t.Error("Run() for unsupported view should fail")
	}
}

func testBatches() []*xray.NetworkBatch {
	start := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	return []*xray.NetworkBatch{
		{
			BatchNumber: 1, ID: "b1", Start: start, Outcome: xray.OutcomeSuccess, MessageCount: 3, Bytes: 120,
			Calls: []xray.Call{{Name: "logAction", Start: start, End: start.Add(2 * time.Millisecond)}},
		},
		{
			BatchNumber: 2, ID: "b2", Start: start.Add(time.Minute), Outcome: xray.OutcomeError, MessageCount: 1, Bytes: 40,
			Errors: []xray.ErrorRecord{{Context: "batch_response", Message: "connection refused"}},
		},
	}
}

func TestBatchesModel_Navigation(t *testing.T) {
	var m tea.Model = NewBatchesModel(testBatches())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(BatchesModel).Cursor(); got != 1 {
		t.Errorf("Cursor() after two downs = %d, want 1", got)
	}

	view := m.View()
	if !strings.Contains(view, "connection refused") {
		t.Errorf("detail pane missing selected batch error:\n%s", view)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(BatchesModel).Cursor(); got != 0 {
		t.Errorf("Cursor() after up = %d, want 0", got)
	}
	if view := m.View(); !strings.Contains(view, "logAction") {
		t.Errorf("detail pane missing call list:\n%s", view)
	}
}

func TestBatchesModel_Quit(t *testing.T) {
	m, cmd := NewBatchesModel(nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if m.View() != "" {
		t.Error("View() after quit should be empty")
	}
}

func TestSummaryModel_View(t *testing.T) {
	m := NewSummaryModel(xray.Summarize(testBatches()))
	view := m.View()
	for _, want := range []string{"Xray Summary", "160", "Network errors"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}
