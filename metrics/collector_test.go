package metrics

import (
	"errors"
	"sync"
	"testing"

	"github.com/pithecene-io/beacon/batch"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
)

func TestCollector_CountsNotifications(t *testing.T) {
	c := NewCollector("ios", "http")
	m := monitor.New()
	m.AddListener(c)

	m.ExecuteFunc("logAction", func() {
		m.WillLogMessage(&types.Action{})
		m.ReportError(errors.New("missing joinable fields"))
		m.DidLog()
	})
	m.ExecuteFunc("logView", func() {
		m.WillLogMessage(&types.View{})
		m.DidLog()
	})
	m.Execute(monitor.Context{Kind: monitor.ContextBatch, Batch: 1}, func() {
		m.WillLogData(make([]byte, 64))
	})
	m.Execute(monitor.Context{Kind: monitor.ContextBatchResponse, Batch: 1}, func() {
		m.ReportError(errors.New("503"))
	})

	s := c.Snapshot()
	if s.Calls != 2 {
		t.Errorf("Calls = %d, want 2", s.Calls)
	}
	if s.Batches != 1 || s.BatchResponses != 1 {
		t.Errorf("Batches/BatchResponses = %d/%d, want 1/1", s.Batches, s.BatchResponses)
	}
	if s.MessagesLogged != 2 {
		t.Errorf("MessagesLogged = %d, want 2", s.MessagesLogged)
	}
	if s.MessagesByKind[types.KindAction] != 1 || s.MessagesByKind[types.KindView] != 1 {
		t.Errorf("MessagesByKind = %v, want one action and one view", s.MessagesByKind)
	}
	if s.BytesLogged != 64 {
		t.Errorf("BytesLogged = %d, want 64", s.BytesLogged)
	}
	if s.DidLog != 2 {
		t.Errorf("DidLog = %d, want 2", s.DidLog)
	}
	if s.Errors != 2 {
		t.Errorf("Errors = %d, want 2", s.Errors)
	}
	if s.ErrorsByContext[monitor.ContextFunction] != 1 || s.ErrorsByContext[monitor.ContextBatchResponse] != 1 {
		t.Errorf("ErrorsByContext = %v", s.ErrorsByContext)
	}
	if s.Platform != "ios" || s.Transport != "http" {
		t.Errorf("dimensions = %q/%q, want ios/http", s.Platform, s.Transport)
	}
}

func TestCollector_AbsorbQueueStats(t *testing.T) {
	c := NewCollector("ios", "http")
	stats := batch.Stats{
		FlushCount:     3,
		EmptyFlushes:   1,
		MaxQueueLen:    7,
		FlushByTrigger: map[batch.FlushTrigger]int64{batch.FlushTriggerInterval: 2, batch.FlushTriggerExplicit: 1},
	}
	c.AbsorbQueueStats(stats)
	stats.FlushByTrigger[batch.FlushTriggerInterval] = 99

	s := c.Snapshot()
	if s.QueueFlushes != 3 || s.QueueEmptyFlushes != 1 || s.QueueMaxLen != 7 {
		t.Errorf("queue counters = %d/%d/%d, want 3/1/7", s.QueueFlushes, s.QueueEmptyFlushes, s.QueueMaxLen)
	}
	if s.FlushByTrigger[batch.FlushTriggerInterval] != 2 {
		t.Errorf("FlushByTrigger[interval] = %d, want 2 (snapshot copy)", s.FlushByTrigger[batch.FlushTriggerInterval])
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.ExecutionWillStart(monitor.Context{})
	c.ExecutionDidError(monitor.Context{}, errors.New("x"))
	c.ExecutionWillLogMessage(monitor.Context{}, &types.User{})
	c.ExecutionWillLogData(monitor.Context{}, nil)
	c.ExecutionDidLog(monitor.Context{})
	c.AbsorbQueueStats(batch.Stats{})
	if s := c.Snapshot(); s.Calls != 0 {
		t.Errorf("nil Snapshot().Calls = %d, want 0", s.Calls)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("ios", "http")
	c.ExecutionWillLogMessage(monitor.Context{}, &types.User{})
	s := c.Snapshot()
	s.MessagesByKind[types.KindUser] = 100

	if got := c.Snapshot().MessagesByKind[types.KindUser]; got != 1 {
		t.Errorf("MessagesByKind[user] = %d after mutating snapshot, want 1", got)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("ios", "http")
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ExecutionWillStart(monitor.Context{Kind: monitor.ContextFunction})
			c.ExecutionWillLogData(monitor.Context{}, []byte("ab"))
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Calls != 50 || s.BytesLogged != 100 {
		t.Errorf("Calls/BytesLogged = %d/%d, want 50/100", s.Calls, s.BytesLogged)
	}
}
