// Package xray is an optional diagnostic profiler for the logging core.
//
// Xray listens to the operation monitor and records per-call timing,
// per-batch network statistics and error histories. Recent batches are kept
// in a bounded sliding window. At the lowest level only batch summaries
// are kept, plus a minimal record for every call that reported an error.
package xray

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/log"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/ring"
	"github.com/pithecene-io/beacon/types"
)

// Level selects how much xray records.
type Level int

// Levels, in increasing verbosity.
const (
	LevelNone Level = iota
	LevelBatchSummaries
	LevelCallDetails
	LevelCallDetailsAndStackTraces
)

var levelNames = map[Level]string{
	LevelNone:                      "none",
	LevelBatchSummaries:            "batch_summaries",
	LevelCallDetails:               "call_details",
	LevelCallDetailsAndStackTraces: "call_details_and_stack_traces",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a level name. Empty means none.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return LevelNone, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown xray level %q", s)
}

// Window bounds.
const (
	DefaultMaxBatches = 10
	MaxMaxBatches     = 100
)

// Batch outcomes.
const (
	OutcomePending = "pending"
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ErrorRecord is one reported error.
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Context string    `json:"context"`
	Message string    `json:"message"`
	Stack   string    `json:"stack,omitempty"`
}

// Call is one outermost public call into the core.
type Call struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Messages []types.MessageKind `json:"messages,omitempty"`
	Errors   []ErrorRecord       `json:"errors,omitempty"`
	Stack    string              `json:"stack,omitempty"`
}

// Duration returns End-Start.
func (c *Call) Duration() time.Duration { return c.End.Sub(c.Start) }

// NetworkBatch is the record of one flush cycle.
type NetworkBatch struct {
	ID           string        `json:"id"`
	BatchNumber  int           `json:"batch_number"`
	Start        time.Time     `json:"start"`
	Sent         time.Time     `json:"sent"`
	End          time.Time     `json:"end"`
	Bytes        int           `json:"bytes"`
	MessageCount int           `json:"message_count"`
	Outcome      string        `json:"outcome"`
	Calls        []Call        `json:"calls,omitempty"`
	Errors       []ErrorRecord `json:"errors,omitempty"`

	dispatched bool
}

// Latency returns the network round trip, or zero while pending.
func (b *NetworkBatch) Latency() time.Duration {
	if b.End.IsZero() || b.Sent.IsZero() {
		return 0
	}
	return b.End.Sub(b.Sent)
}

// Summary converts b to the compact diagnostics form.
func (b *NetworkBatch) Summary() types.BatchSummary {
	return types.BatchSummary{
		BatchNumber:  b.BatchNumber,
		MessageCount: b.MessageCount,
		Bytes:        b.Bytes,
		LatencyMs:    b.Latency().Milliseconds(),
		ErrorCount:   len(b.Errors),
		Outcome:      b.Outcome,
	}
}

// Totals are running counters over the whole process lifetime.
type Totals struct {
	Calls         int64         `json:"calls"`
	Batches       int64         `json:"batches"`
	BytesSent     int64         `json:"bytes_sent"`
	TimeSpent     time.Duration `json:"time_spent"`
	Errors        int64         `json:"errors"`
	NetworkErrors int64         `json:"network_errors"`
	Evicted       uint64        `json:"evicted"`
}

// Summarize computes totals over a set of recorded batches, such as
// those read back from an archive. Evicted is always zero.
func Summarize(batches []*NetworkBatch) Totals {
	var t Totals
	for _, b := range batches {
		t.Batches++
		t.BytesSent += int64(b.Bytes)
		t.Errors += int64(len(b.Errors))
		if b.Outcome == OutcomeError && !b.Sent.IsZero() {
			t.NetworkErrors++
		}
		for i := range b.Calls {
			t.Calls++
			t.TimeSpent += b.Calls[i].Duration()
			t.Errors += int64(len(b.Calls[i].Errors))
		}
	}
	return t
}

// Sink receives completed batches, for example an archive.
type Sink interface {
	WriteBatch(ctx context.Context, batch *NetworkBatch) error
}

// Config configures Xray.
type Config struct {
	Level Level
	// MaxBatches is the sliding window size, clamped to [1, MaxMaxBatches].
	MaxBatches int
	Clock      clock.Clock
	// Sink is optional. Write failures are logged and counted.
	Sink   Sink
	Logger *log.Logger
	// Entropy seeds record IDs. Defaults to ulid.DefaultEntropy().
	Entropy io.Reader
}

// Xray implements monitor.Listener.
// Not safe for concurrent use; it runs on the core's logical context.
type Xray struct {
	config  Config
	batches *ring.Buffer[*NetworkBatch]
	totals  Totals

	current      *Call
	pendingCalls []Call
	pendingMsgs  int
	sinkErrors   int64
}

// New creates an Xray recorder.
func New(config Config) *Xray {
	switch {
	case config.MaxBatches <= 0:
		config.MaxBatches = DefaultMaxBatches
	case config.MaxBatches > MaxMaxBatches:
		config.MaxBatches = MaxMaxBatches
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.Entropy == nil {
		config.Entropy = ulid.DefaultEntropy()
	}
	return &Xray{
		config:  config,
		batches: ring.New[*NetworkBatch](config.MaxBatches),
	}
}

// Level returns the configured level.
func (x *Xray) Level() Level { return x.config.Level }

func (x *Xray) enabled() bool { return x.config.Level > LevelNone }

func (x *Xray) details() bool { return x.config.Level >= LevelCallDetails }

func (x *Xray) stacks() bool { return x.config.Level >= LevelCallDetailsAndStackTraces }

func (x *Xray) newID() string {
	return ulid.MustNew(ulid.Timestamp(x.config.Clock.Now()), x.config.Entropy).String()
}

// ExecutionWillStart implements monitor.Listener.
func (x *Xray) ExecutionWillStart(ctx monitor.Context) {
	if !x.enabled() {
		return
	}
	now := x.config.Clock.Now()
	switch ctx.Kind {
	case monitor.ContextFunction:
		x.current = &Call{ID: x.newID(), Name: ctx.Function, Start: now}
		if x.stacks() {
			x.current.Stack = string(debug.Stack())
		}
	case monitor.ContextBatch:
		b := &NetworkBatch{
			ID:           x.newID(),
			BatchNumber:  ctx.Batch,
			Start:        now,
			Outcome:      OutcomePending,
			MessageCount: x.pendingMsgs,
			Calls:        x.pendingCalls,
		}
		x.pendingCalls = nil
		x.pendingMsgs = 0
		if _, evicted := x.batches.Push(b); evicted {
			x.totals.Evicted++
		}
		x.totals.Batches++
	}
}

// ExecutionDidEnd implements monitor.Listener.
func (x *Xray) ExecutionDidEnd(ctx monitor.Context) {
	if !x.enabled() {
		return
	}
	now := x.config.Clock.Now()
	switch ctx.Kind {
	case monitor.ContextFunction:
		c := x.current
		x.current = nil
		if c == nil {
			return
		}
		c.End = now
		x.totals.Calls++
		x.totals.TimeSpent += c.Duration()
		if x.details() || len(c.Errors) > 0 {
			if !x.details() {
				// error-only record
				c.Messages = nil
				c.Stack = ""
			}
			x.pendingCalls = append(x.pendingCalls, *c)
		}
	case monitor.ContextBatch:
		b := x.batch(ctx.Batch)
		if b == nil {
			return
		}
		if !b.dispatched {
			// Never reached the connection; no response context follows.
			b.End = now
			b.Outcome = OutcomeError
			x.writeSink(b)
			return
		}
		if b.Sent.IsZero() {
			b.Sent = now
		}
	case monitor.ContextBatchResponse:
		b := x.batch(ctx.Batch)
		if b == nil {
			return
		}
		b.End = now
		if b.Outcome == OutcomePending {
			b.Outcome = OutcomeSuccess
		}
		x.writeSink(b)
	}
}

// ExecutionDidError implements monitor.Listener.
func (x *Xray) ExecutionDidError(ctx monitor.Context, err error) {
	if !x.enabled() {
		return
	}
	rec := ErrorRecord{
		Time:    x.config.Clock.Now(),
		Context: ctx.String(),
		Message: err.Error(),
	}
	if x.stacks() {
		rec.Stack = string(debug.Stack())
	}
	x.totals.Errors++

	switch ctx.Kind {
	case monitor.ContextFunction:
		if x.current != nil {
			x.current.Errors = append(x.current.Errors, rec)
			return
		}
		// Outside any call: attach an error-only record.
		x.pendingCalls = append(x.pendingCalls, Call{
			ID:     x.newID(),
			Name:   ctx.Function,
			Start:  rec.Time,
			End:    rec.Time,
			Errors: []ErrorRecord{rec},
		})
	case monitor.ContextBatch, monitor.ContextBatchResponse:
		b := x.batch(ctx.Batch)
		if b == nil {
			return
		}
		b.Errors = append(b.Errors, rec)
		if ctx.Kind == monitor.ContextBatchResponse {
			b.Outcome = OutcomeError
			x.totals.NetworkErrors++
		}
	}
}

// ExecutionWillLogMessage implements monitor.Listener.
func (x *Xray) ExecutionWillLogMessage(ctx monitor.Context, msg types.Message) {
	if !x.enabled() {
		return
	}
	x.pendingMsgs++
	if x.details() && x.current != nil && ctx.Kind == monitor.ContextFunction {
		x.current.Messages = append(x.current.Messages, msg.Kind())
	}
}

// ExecutionWillLogData implements monitor.Listener.
func (x *Xray) ExecutionWillLogData(ctx monitor.Context, data []byte) {
	if !x.enabled() || ctx.Kind != monitor.ContextBatch {
		return
	}
	if b := x.batch(ctx.Batch); b != nil {
		b.Bytes += len(data)
		x.totals.BytesSent += int64(len(data))
	}
}

// ExecutionDidLog implements monitor.Listener.
func (x *Xray) ExecutionDidLog(ctx monitor.Context) {
	if !x.enabled() || ctx.Kind != monitor.ContextBatch {
		return
	}
	if b := x.batch(ctx.Batch); b != nil {
		b.dispatched = true
	}
}

// Batches returns the retained batches, oldest first.
func (x *Xray) Batches() []*NetworkBatch {
	return x.batches.Slice()
}

// Summaries returns compact summaries of the retained batches.
func (x *Xray) Summaries() []types.BatchSummary {
	out := make([]types.BatchSummary, 0, x.batches.Len())
	x.batches.Each(func(b **NetworkBatch) bool {
		out = append(out, (*b).Summary())
		return true
	})
	return out
}

// Totals returns the running totals.
func (x *Xray) Totals() Totals {
	return x.totals
}

// SinkErrors returns how many archive writes failed.
func (x *Xray) SinkErrors() int64 {
	return x.sinkErrors
}

func (x *Xray) batch(number int) *NetworkBatch {
	var found *NetworkBatch
	x.batches.Each(func(b **NetworkBatch) bool {
		if (*b).BatchNumber == number {
			found = *b
			return false
		}
		return true
	})
	return found
}

func (x *Xray) writeSink(b *NetworkBatch) {
	if x.config.Sink == nil {
		return
	}
	if err := x.config.Sink.WriteBatch(context.Background(), b); err != nil {
		x.sinkErrors++
		x.config.Logger.Warn("xray archive write failed", map[string]any{
			"batch_number": b.BatchNumber,
			"error":        err.Error(),
		})
	}
}

// Verify Xray implements monitor.Listener.
var _ monitor.Listener = (*Xray)(nil)
