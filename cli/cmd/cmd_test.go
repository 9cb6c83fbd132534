package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/beacon/archive"
	"github.com/pithecene-io/beacon/config"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/xray"
)

func simulateConfig() *config.Client {
	return &config.Client{MetricsLoggingURL: simulateURL, APIKey: simulateAPIKey}
}

func TestWithOutputFlags_AppendsSharedFlags(t *testing.T) {
	var names []string
	for _, f := range withOutputFlags(archiveFlag("root", true)) {
		names = append(names, f.Names()[0])
	}
	want := []string{"archive", "format", "no-color", "tui"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("flags = %v, want %v", names, want)
	}
}

func TestVersion_ReportsWireOptions(t *testing.T) {
	v, err := Version("abc123")
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v.Version != types.Version || v.Commit != "abc123" {
		t.Errorf("version = %s/%s, want %s/abc123", v.Version, v.Commit, types.Version)
	}
	if got := v.WireFormats.String(); got != "binary (application/msgpack), json (application/json)" {
		t.Errorf("WireFormats = %q", got)
	}
	if got := v.XrayLevels.String(); got != "none, batch_summaries, call_details, call_details_and_stack_traces" {
		t.Errorf("XrayLevels = %q", got)
	}
	if got := v.Transports.String(); got != "http, redis" {
		t.Errorf("Transports = %q, want http, redis", got)
	}
}

func TestSimulate_CapturesTimerAndCloseBatches(t *testing.T) {
	res, err := Simulate(t.Context(), simulateConfig(), SimulateOptions{
		UserID:      "u1",
		Impressions: 3,
		Actions:     1,
		Start:       time.Unix(1000, 0),
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if len(res.Batches) != 2 {
		t.Fatalf("batches = %d, want 2 (timer + close)", len(res.Batches))
	}

	first := res.Batches[0].Request
	if len(first.Users) != 1 || len(first.Views) != 1 || len(first.Impressions) != 3 || len(first.Actions) != 1 {
		t.Errorf("first batch = %d users, %d views, %d impressions, %d actions, want 1/1/3/1",
			len(first.Users), len(first.Views), len(first.Impressions), len(first.Actions))
	}
	if first.UserInfo.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", first.UserInfo.UserID)
	}
	if first.Impressions[1].ContentID != "content-1" {
		t.Errorf("impression ContentID = %q, want content-1", first.Impressions[1].ContentID)
	}

	second := res.Batches[1]
	if second.Messages != 1 || second.LogUserID != res.Batches[0].LogUserID {
		t.Errorf("second batch = %+v, want one purchase under the same log user", second)
	}
	if res.Metrics.Batches != 2 {
		t.Errorf("Metrics.Batches = %d, want 2", res.Metrics.Batches)
	}
}

func TestSimulate_FailuresReachArchive(t *testing.T) {
	dir := t.TempDir()
	res, err := Simulate(t.Context(), simulateConfig(), SimulateOptions{
		UserID:  "u1",
		Fail:    true,
		Archive: dir,
		Start:   time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if got := res.Metrics.ErrorsByContext[monitor.ContextBatchResponse]; got != 2 {
		t.Errorf("batch_response errors = %d, want 2", got)
	}

	batches, err := ReadArchive(t.Context(), dir, config.DefaultArchiveDataset, archive.Query{Day: "2026-03-05"})
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("archived batches = %d, want 2", len(batches))
	}
	for _, b := range batches {
		if b.Outcome != xray.OutcomeError {
			t.Errorf("batch %d outcome = %q, want error", b.BatchNumber, b.Outcome)
		}
	}

	rows := BatchRows(batches)
	if rows[0].Errors == 0 || rows[0].Calls == 0 {
		t.Errorf("row = %+v, want calls and errors", rows[0])
	}
}

func TestReadArchive_EmptyIsNotAnError(t *testing.T) {
	batches, err := ReadArchive(t.Context(), t.TempDir(), config.DefaultArchiveDataset, archive.Query{})
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("batches = %d, want 0", len(batches))
	}
}

func TestSimulate_InvalidConfig(t *testing.T) {
	if _, err := Simulate(t.Context(), &config.Client{}, SimulateOptions{}); err == nil {
		t.Error("Simulate() with no endpoint should fail validation")
	}
}
