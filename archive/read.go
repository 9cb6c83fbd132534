package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/xray"
)

// ErrNoBatches is returned when the dataset holds no matching batch records.
var ErrNoBatches = errors.New("no archived batches found")

// Query filters ReadBatches. Zero values match everything.
type Query struct {
	// Day restricts to one day partition (YYYY-MM-DD, UTC).
	Day string
	// Outcome restricts to one batch outcome.
	Outcome string
	// Limit keeps only the most recent batches when > 0.
	Limit int
}

type errorRecord struct {
	Time    time.Time `json:"time"`
	Context string    `json:"context"`
	Message string    `json:"message"`
	Stack   string    `json:"stack"`
}

type batchRecord struct {
	BatchID      string        `json:"batch_id"`
	BatchNumber  int           `json:"batch_number"`
	Start        time.Time     `json:"start"`
	Sent         time.Time     `json:"sent"`
	End          time.Time     `json:"end"`
	Bytes        int           `json:"bytes"`
	MessageCount int           `json:"message_count"`
	Outcome      string        `json:"outcome"`
	Errors       []errorRecord `json:"errors"`
}

type callRecord struct {
	CallID  string        `json:"call_id"`
	BatchID string        `json:"batch_id"`
	Name    string        `json:"name"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Stack   string        `json:"stack"`
	Msgs    []string      `json:"messages"`
	Errors  []errorRecord `json:"errors"`
}

// ReadBatches reads archived batches, oldest first, with their calls attached.
func (a *Archive) ReadBatches(ctx context.Context, q Query) ([]*xray.NetworkBatch, error) {
	snapshots, err := a.dataset.Snapshots(ctx)
	if err != nil {
		werr := WrapReadError(err, a.config.Dataset+"/snapshots")
		if errors.Is(werr, ErrNotFound) {
			return nil, ErrNoBatches
		}
		return nil, werr
	}

	batches := map[string]*xray.NetworkBatch{}
	calls := map[string][]xray.Call{}
	seenCalls := map[string]struct{}{}

	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "day", q.Day) {
			continue
		}
		data, err := a.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", a.config.Dataset, snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if q.Day != "" && record["day"] != q.Day {
				continue
			}
			switch record["record_kind"] {
			case RecordKindBatch:
				var r batchRecord
				if err := decodeRecord(record, &r); err != nil {
					return nil, err
				}
				if _, dup := batches[r.BatchID]; !dup {
					batches[r.BatchID] = r.toBatch()
				}
			case RecordKindCall:
				var r callRecord
				if err := decodeRecord(record, &r); err != nil {
					return nil, err
				}
				if _, dup := seenCalls[r.CallID]; dup {
					continue
				}
				seenCalls[r.CallID] = struct{}{}
				calls[r.BatchID] = append(calls[r.BatchID], r.toCall())
			}
		}
	}

	out := make([]*xray.NetworkBatch, 0, len(batches))
	for id, b := range batches {
		if q.Outcome != "" && b.Outcome != q.Outcome {
			continue
		}
		b.Calls = calls[id]
		sort.SliceStable(b.Calls, func(i, j int) bool {
			return b.Calls[i].Start.Before(b.Calls[j].Start)
		})
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, ErrNoBatches
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].BatchNumber < out[j].BatchNumber
		}
		return out[i].Start.Before(out[j].Start)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// decodeRecord converts a generic JSONL record into a typed one.
func decodeRecord(record map[string]any, v any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("re-encode archive record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode archive record: %w", err)
	}
	return nil
}

func (r *batchRecord) toBatch() *xray.NetworkBatch {
	return &xray.NetworkBatch{
		ID:           r.BatchID,
		BatchNumber:  r.BatchNumber,
		Start:        r.Start,
		Sent:         r.Sent,
		End:          r.End,
		Bytes:        r.Bytes,
		MessageCount: r.MessageCount,
		Outcome:      r.Outcome,
		Errors:       toErrorRecords(r.Errors),
	}
}

func (r *callRecord) toCall() xray.Call {
	c := xray.Call{
		ID:     r.CallID,
		Name:   r.Name,
		Start:  r.Start,
		End:    r.End,
		Stack:  r.Stack,
		Errors: toErrorRecords(r.Errors),
	}
	for _, m := range r.Msgs {
		c.Messages = append(c.Messages, types.MessageKind(m))
	}
	return c
}

func toErrorRecords(in []errorRecord) []xray.ErrorRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]xray.ErrorRecord, len(in))
	for i, e := range in {
		out[i] = xray.ErrorRecord{Time: e.Time, Context: e.Context, Message: e.Message, Stack: e.Stack}
	}
	return out
}

// snapshotMatchesFilter reports whether any file in the snapshot lives in the
// key=value partition. An empty value matches everything.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue matches whole path segments so day=2026-01-1 never
// matches day=2026-01-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
