package metrics

import (
	"github.com/pithecene-io/beacon/ring"
	"github.com/pithecene-io/beacon/types"
)

// DefaultHistorySize is the per-ID history length.
const DefaultHistorySize = 10

// IDKind names one tracked ancestor ID.
type IDKind string

// Ancestor ID kinds.
const (
	IDLogUser  IDKind = "log_user_id"
	IDSession  IDKind = "session_id"
	IDView     IDKind = "view_id"
	IDAutoView IDKind = "auto_view_id"
)

// History keeps the last few values of each ancestor ID together with the
// batch number in which each was first observed. Diagnostics only.
type History struct {
	rings map[IDKind]*ring.Buffer[types.AncestorIDHistoryEntry]
}

// NewHistory creates a history holding size entries per ID.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	h := &History{rings: make(map[IDKind]*ring.Buffer[types.AncestorIDHistoryEntry], 4)}
	for _, k := range []IDKind{IDLogUser, IDSession, IDView, IDAutoView} {
		h.rings[k] = ring.New[types.AncestorIDHistoryEntry](size)
	}
	return h
}

// Record notes id for kind. Null IDs and repeats of the latest value are
// ignored. Returns true when an entry was added.
func (h *History) Record(kind IDKind, id types.ID, batchNumber int) bool {
	r, ok := h.rings[kind]
	if !ok || id.IsNull() {
		return false
	}
	if last, ok := r.Last(); ok && last.ID.Value == id.Value {
		return false
	}
	r.Push(types.AncestorIDHistoryEntry{ID: id, BatchNumber: batchNumber})
	return true
}

// Entries returns the history for kind, oldest first.
func (h *History) Entries(kind IDKind) []types.AncestorIDHistoryEntry {
	r, ok := h.rings[kind]
	if !ok {
		return nil
	}
	return r.Slice()
}

// Message returns the serializable form.
func (h *History) Message() *types.AncestorIDHistory {
	return &types.AncestorIDHistory{
		LogUserIDs:  h.Entries(IDLogUser),
		SessionIDs:  h.Entries(IDSession),
		ViewIDs:     h.Entries(IDView),
		AutoViewIDs: h.Entries(IDAutoView),
	}
}
