// Package batch holds pending messages between log calls and a flush, and
// owns the single coalescing flush timer.
package batch

import (
	"errors"
	"time"

	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/log"
	"github.com/pithecene-io/beacon/loop"
	"github.com/pithecene-io/beacon/types"
)

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	// FlushTriggerInterval indicates the coalescing timer fired.
	FlushTriggerInterval FlushTrigger = "interval"
	// FlushTriggerExplicit indicates a host-requested flush.
	FlushTriggerExplicit FlushTrigger = "explicit"
	// FlushTriggerClose indicates a flush on shutdown.
	FlushTriggerClose FlushTrigger = "close"
)

// ErrInvalidConfig is returned when Config is invalid.
var ErrInvalidConfig = errors.New("invalid batch config: clock and positive flush interval required")

// Config configures a Queue.
type Config struct {
	// FlushInterval is the delay between the first pending message and
	// the flush that sweeps it.
	FlushInterval time.Duration

	// Clock schedules the flush timer.
	Clock clock.Clock

	// Loop delivers the timer callback. Defaults to loop.Immediate.
	Loop loop.Loop

	// OnFlush is called on the loop when the timer fires. It is expected
	// to call Drain.
	OnFlush func(trigger FlushTrigger)

	// Logger is an optional logger.
	Logger *log.Logger
}

// Stats is a snapshot of queue counters.
type Stats struct {
	TotalMessages   int64
	DrainedMessages int64
	FlushCount      int64
	EmptyFlushes    int64
	MaxQueueLen     int
	TimersScheduled int64
	FlushByTrigger  map[FlushTrigger]int64
}

// Queue is the pending message queue. Not safe for concurrent use; all
// calls happen on the loop.
type Queue struct {
	config  Config
	pending []types.Message
	timer   clock.Timer
	stats   Stats
}

// New creates a queue.
func New(config Config) (*Queue, error) {
	if config.Clock == nil || config.FlushInterval <= 0 {
		return nil, ErrInvalidConfig
	}
	if config.Loop == nil {
		config.Loop = loop.Immediate{}
	}
	return &Queue{
		config:  config,
		pending: make([]types.Message, 0, 32),
		stats:   Stats{FlushByTrigger: make(map[FlushTrigger]int64)},
	}, nil
}

// Add appends msg and schedules a flush if none is pending.
// Returns true when this call scheduled the timer.
func (q *Queue) Add(msg types.Message) bool {
	q.pending = append(q.pending, msg)
	q.stats.TotalMessages++
	if len(q.pending) > q.stats.MaxQueueLen {
		q.stats.MaxQueueLen = len(q.pending)
	}
	if q.timer != nil {
		return false
	}
	q.stats.TimersScheduled++
	q.timer = q.config.Clock.Schedule(q.config.FlushInterval, func() {
		q.config.Loop.Post(q.fire)
	})
	return true
}

func (q *Queue) fire() {
	if q.timer == nil {
		// Drained by an explicit flush after the timer fired but before
		// the callback was delivered.
		return
	}
	q.timer = nil
	if q.config.OnFlush != nil {
		q.config.OnFlush(FlushTriggerInterval)
		return
	}
	q.Drain(FlushTriggerInterval)
}

// Drain cancels any pending timer and returns every pending message,
// leaving the queue empty.
func (q *Queue) Drain(trigger FlushTrigger) []types.Message {
	q.cancel()

	q.stats.FlushCount++
	q.stats.FlushByTrigger[trigger]++

	msgs := q.pending
	if len(msgs) == 0 {
		q.stats.EmptyFlushes++
		return nil
	}
	q.pending = make([]types.Message, 0, 32)
	q.stats.DrainedMessages += int64(len(msgs))

	q.config.Logger.Debug("batch drained", map[string]any{
		"trigger":  string(trigger),
		"messages": len(msgs),
	})
	return msgs
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Scheduled reports whether a flush timer is pending.
func (q *Queue) Scheduled() bool {
	return q.timer != nil
}

// Stop cancels the pending timer without draining.
func (q *Queue) Stop() {
	q.cancel()
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	s := q.stats
	s.FlushByTrigger = make(map[FlushTrigger]int64, len(q.stats.FlushByTrigger))
	for k, v := range q.stats.FlushByTrigger {
		s.FlushByTrigger[k] = v
	}
	return s
}

func (q *Queue) cancel() {
	if q.timer != nil {
		q.timer.Cancel()
		q.timer = nil
	}
}
