package tui

import (
	"fmt"
	"slices"
)

// View types.
const (
	ViewXrayBatches = "xray_batches"
	ViewXraySummary = "xray_summary"
)

// Run starts the TUI for viewType.
func Run(viewType string, data any) error {
	switch viewType {
	case ViewXrayBatches:
		return RunBatchesTUI(data)
	case ViewXraySummary:
		return RunSummaryTUI(data)
	default:
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewXrayBatches, ViewXraySummary}
}
