package xray

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
)

type memorySink struct {
	batches []*NetworkBatch
	err     error
}

func (s *memorySink) WriteBatch(_ context.Context, b *NetworkBatch) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, b)
	return nil
}

func newTestXray(t *testing.T, level Level, max int) (*Xray, *monitor.Monitor, *clock.Fake, *memorySink) {
	t.Helper()
	clk := clock.NewFake(time.Unix(1000, 0))
	sink := &memorySink{}
	x := New(Config{Level: level, MaxBatches: max, Clock: clk, Sink: sink})
	m := monitor.New()
	m.AddListener(x)
	return x, m, clk, sink
}

// runBatch simulates one flush cycle: a batch send then its response.
func runBatch(m *monitor.Monitor, clk *clock.Fake, number int, payload []byte, respErr error) {
	m.Execute(monitor.Context{Kind: monitor.ContextBatch, Batch: number}, func() {
		m.WillLogData(payload)
		m.DidLog()
	})
	clk.Advance(40 * time.Millisecond)
	m.Execute(monitor.Context{Kind: monitor.ContextBatchResponse, Batch: number}, func() {
		m.ReportError(respErr)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelNone, false},
		{"none", LevelNone, false},
		{"batch_summaries", LevelBatchSummaries, false},
		{"call_details", LevelCallDetails, false},
		{"call_details_and_stack_traces", LevelCallDetailsAndStackTraces, false},
		{"verbose", LevelNone, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCallDetails_AttachToNextBatch(t *testing.T) {
	x, m, clk, sink := newTestXray(t, LevelCallDetails, 0)

	m.ExecuteFunc("logAction", func() {
		m.WillLogMessage(&types.Action{})
		clk.Advance(5 * time.Millisecond)
	})
	m.ExecuteFunc("logView", func() {
		m.WillLogMessage(&types.View{})
	})
	runBatch(m, clk, 1, make([]byte, 128), nil)

	batches := x.Batches()
	if len(batches) != 1 {
		t.Fatalf("len(Batches()) = %d, want 1", len(batches))
	}
	b := batches[0]
	if len(b.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(b.Calls))
	}
	if b.Calls[0].Name != "logAction" || b.Calls[0].Duration() != 5*time.Millisecond {
		t.Errorf("Calls[0] = %s/%v, want logAction/5ms", b.Calls[0].Name, b.Calls[0].Duration())
	}
	if len(b.Calls[0].Messages) != 1 || b.Calls[0].Messages[0] != types.KindAction {
		t.Errorf("Calls[0].Messages = %v, want [%s]", b.Calls[0].Messages, types.KindAction)
	}
	if b.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", b.MessageCount)
	}
	if b.Bytes != 128 {
		t.Errorf("Bytes = %d, want 128", b.Bytes)
	}
	if b.Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %q, want %q", b.Outcome, OutcomeSuccess)
	}
	if b.Latency() != 40*time.Millisecond {
		t.Errorf("Latency() = %v, want 40ms", b.Latency())
	}
	if b.ID == "" || b.Calls[0].ID == "" {
		t.Error("record IDs are empty")
	}
	if len(sink.batches) != 1 {
		t.Errorf("sink received %d batches, want 1", len(sink.batches))
	}
}

func TestBatchSummaries_KeepsOnlyErrorCalls(t *testing.T) {
	x, m, clk, _ := newTestXray(t, LevelBatchSummaries, 0)

	m.ExecuteFunc("logAction", func() {
		m.WillLogMessage(&types.Action{})
	})
	m.ExecuteFunc("logImpression", func() {
		m.ReportError(errors.New("missing joinable fields"))
	})
	runBatch(m, clk, 1, []byte("x"), nil)

	b := x.Batches()[0]
	if len(b.Calls) != 1 {
		t.Fatalf("len(Calls) = %d, want 1", len(b.Calls))
	}
	c := b.Calls[0]
	if c.Name != "logImpression" || len(c.Errors) != 1 {
		t.Errorf("Calls[0] = %s with %d errors, want logImpression with 1", c.Name, len(c.Errors))
	}
	if len(c.Messages) != 0 {
		t.Errorf("Messages = %v, want none at batch_summaries", c.Messages)
	}
}

func TestNetworkError_MarksBatch(t *testing.T) {
	x, m, clk, _ := newTestXray(t, LevelBatchSummaries, 0)

	runBatch(m, clk, 1, []byte("abc"), errors.New("503"))

	s := x.Summaries()
	if len(s) != 1 {
		t.Fatalf("len(Summaries()) = %d, want 1", len(s))
	}
	if s[0].Outcome != OutcomeError || s[0].ErrorCount != 1 {
		t.Errorf("summary = %+v, want error outcome with 1 error", s[0])
	}
	tot := x.Totals()
	if tot.NetworkErrors != 1 || tot.Errors != 1 {
		t.Errorf("Totals() = %+v, want 1 network error", tot)
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	x, m, clk, _ := newTestXray(t, LevelBatchSummaries, 2)

	for i := 1; i <= 3; i++ {
		runBatch(m, clk, i, []byte("ab"), nil)
	}

	s := x.Summaries()
	if len(s) != 2 || s[0].BatchNumber != 2 || s[1].BatchNumber != 3 {
		t.Errorf("Summaries() = %+v, want batches 2 and 3", s)
	}
	tot := x.Totals()
	if tot.Batches != 3 || tot.Evicted != 1 || tot.BytesSent != 6 {
		t.Errorf("Totals() = %+v, want 3 batches, 1 evicted, 6 bytes", tot)
	}
}

func TestLevelNone_RecordsNothing(t *testing.T) {
	x, m, clk, sink := newTestXray(t, LevelNone, 0)

	m.ExecuteFunc("logAction", func() {
		m.WillLogMessage(&types.Action{})
	})
	runBatch(m, clk, 1, []byte("a"), nil)

	if len(x.Batches()) != 0 || len(sink.batches) != 0 {
		t.Error("LevelNone recorded batches")
	}
}

func TestSinkFailure_IsCounted(t *testing.T) {
	x, m, clk, sink := newTestXray(t, LevelBatchSummaries, 0)
	sink.err = errors.New("disk full")

	runBatch(m, clk, 1, []byte("a"), nil)

	if x.SinkErrors() != 1 {
		t.Errorf("SinkErrors() = %d, want 1", x.SinkErrors())
	}
}

func TestStackTraces_Captured(t *testing.T) {
	x, m, clk, _ := newTestXray(t, LevelCallDetailsAndStackTraces, 0)

	m.ExecuteFunc("logAction", func() {})
	runBatch(m, clk, 1, []byte("a"), nil)

	if c := x.Batches()[0].Calls[0]; c.Stack == "" {
		t.Error("Stack is empty at call_details_and_stack_traces")
	}
}

func TestMaxBatchesClamp(t *testing.T) {
	x := New(Config{MaxBatches: 500})
	if got := x.batches.Cap(); got != MaxMaxBatches {
		t.Errorf("Cap() = %d, want %d", got, MaxMaxBatches)
	}
}

func TestSummarize(t *testing.T) {
	start := time.Unix(100, 0)
	batches := []*NetworkBatch{
		{
			Bytes:   10,
			Outcome: OutcomeSuccess,
			Calls: []Call{
				{Start: start, End: start.Add(3 * time.Millisecond)},
				{Start: start, End: start.Add(2 * time.Millisecond), Errors: []ErrorRecord{{Message: "bad"}}},
			},
		},
		{
			Bytes:   5,
			Sent:    start,
			Outcome: OutcomeError,
			Errors:  []ErrorRecord{{Message: "timeout"}},
		},
		{
			// Failed before reaching the network.
			Outcome: OutcomeError,
			Errors:  []ErrorRecord{{Message: "encode"}},
		},
	}

	got := Summarize(batches)
	want := Totals{Calls: 2, Batches: 3, BytesSent: 15, TimeSpent: 5 * time.Millisecond, Errors: 3, NetworkErrors: 1}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestUndispatchedBatch_ArchivedAsError(t *testing.T) {
	x, m, clk, sink := newTestXray(t, LevelBatchSummaries, 0)

	m.Execute(monitor.Context{Kind: monitor.ContextBatch, Batch: 1}, func() {
		clk.Advance(time.Millisecond)
		m.ReportError(errors.New("encode failed"))
	})

	b := x.Batches()[0]
	if b.Outcome != OutcomeError {
		t.Errorf("Outcome = %q, want %q", b.Outcome, OutcomeError)
	}
	if b.End.IsZero() || !b.Sent.IsZero() {
		t.Errorf("End = %v, Sent = %v, want ended and never sent", b.End, b.Sent)
	}
	if len(sink.batches) != 1 || sink.batches[0] != b {
		t.Errorf("sink got %d batches, want the failed batch", len(sink.batches))
	}
	tot := x.Totals()
	if tot.Errors != 1 || tot.NetworkErrors != 0 {
		t.Errorf("Totals() = %+v, want 1 error and no network errors", tot)
	}
}
