package archive

import (
	"time"

	"github.com/pithecene-io/beacon/xray"
)

// Record kinds, also the record_kind partition value.
const (
	RecordKindBatch = "batch"
	RecordKindCall  = "call"
)

const dayFormat = "2006-01-02"

func day(t time.Time) string {
	return t.UTC().Format(dayFormat)
}

func toBatchRecordMap(b *xray.NetworkBatch, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":   RecordKindBatch,
		"batch_id":      b.ID,
		"batch_number":  b.BatchNumber,
		"start":         b.Start.UTC().Format(time.RFC3339Nano),
		"bytes":         b.Bytes,
		"message_count": b.MessageCount,
		"outcome":       b.Outcome,
		"latency_ms":    b.Latency().Milliseconds(),
		"call_count":    len(b.Calls),
		"errors":        toErrorList(b.Errors),
		"day":           day(b.Start),
	}
	if !b.Sent.IsZero() {
		m["sent"] = b.Sent.UTC().Format(time.RFC3339Nano)
	}
	if !b.End.IsZero() {
		m["end"] = b.End.UTC().Format(time.RFC3339Nano)
	}
	if cfg.Client != "" {
		m["client"] = cfg.Client
	}
	return m
}

func toCallRecordMap(b *xray.NetworkBatch, c *xray.Call, cfg Config) map[string]any {
	msgs := make([]any, 0, len(c.Messages))
	for _, k := range c.Messages {
		msgs = append(msgs, string(k))
	}
	m := map[string]any{
		"record_kind":  RecordKindCall,
		"call_id":      c.ID,
		"batch_id":     b.ID,
		"batch_number": b.BatchNumber,
		"name":         c.Name,
		"start":        c.Start.UTC().Format(time.RFC3339Nano),
		"end":          c.End.UTC().Format(time.RFC3339Nano),
		"duration_us":  c.Duration().Microseconds(),
		"messages":     msgs,
		"errors":       toErrorList(c.Errors),
		// Calls land in the same day partition as their batch.
		"day": day(b.Start),
	}
	if c.Stack != "" {
		m["stack"] = c.Stack
	}
	if cfg.Client != "" {
		m["client"] = cfg.Client
	}
	return m
}

func toErrorList(errs []xray.ErrorRecord) []any {
	out := make([]any, 0, len(errs))
	for _, e := range errs {
		m := map[string]any{
			"time":    e.Time.UTC().Format(time.RFC3339Nano),
			"context": e.Context,
			"message": e.Message,
		}
		if e.Stack != "" {
			m["stack"] = e.Stack
		}
		out = append(out, m)
	}
	return out
}
