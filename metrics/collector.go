package metrics

import (
	"sync"

	"github.com/pithecene-io/beacon/batch"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
)

// Snapshot is an immutable point-in-time view of the collected counters.
type Snapshot struct {
	// Executions
	Calls          int64
	Batches        int64
	BatchResponses int64

	// Logging
	MessagesLogged int64
	MessagesByKind map[types.MessageKind]int64
	BytesLogged    int64
	DidLog         int64

	// Errors
	Errors          int64
	ErrorsByContext map[monitor.ContextKind]int64

	// Queue (absorbed from batch.Stats)
	QueueFlushes      int64
	QueueEmptyFlushes int64
	QueueMaxLen       int
	FlushByTrigger    map[batch.FlushTrigger]int64

	// Dimensions
	Platform  string
	Transport string
}

// Collector counts monitor notifications. It implements monitor.Listener.
// Thread-safe; all methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	calls          int64
	batches        int64
	batchResponses int64

	messagesLogged int64
	messagesByKind map[types.MessageKind]int64
	bytesLogged    int64
	didLog         int64

	errors          int64
	errorsByContext map[monitor.ContextKind]int64

	queue batch.Stats

	platform  string
	transport string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(platform, transport string) *Collector {
	return &Collector{
		messagesByKind:  make(map[types.MessageKind]int64),
		errorsByContext: make(map[monitor.ContextKind]int64),
		platform:        platform,
		transport:       transport,
	}
}

// ExecutionWillStart implements monitor.Listener.
func (c *Collector) ExecutionWillStart(ctx monitor.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	switch ctx.Kind {
	case monitor.ContextFunction:
		c.calls++
	case monitor.ContextBatch:
		c.batches++
	case monitor.ContextBatchResponse:
		c.batchResponses++
	}
	c.mu.Unlock()
}

// ExecutionDidEnd implements monitor.Listener.
func (c *Collector) ExecutionDidEnd(monitor.Context) {}

// ExecutionDidError implements monitor.Listener.
func (c *Collector) ExecutionDidError(ctx monitor.Context, _ error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.errors++
	c.errorsByContext[ctx.Kind]++
	c.mu.Unlock()
}

// ExecutionWillLogMessage implements monitor.Listener.
func (c *Collector) ExecutionWillLogMessage(_ monitor.Context, msg types.Message) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesLogged++
	c.messagesByKind[msg.Kind()]++
	c.mu.Unlock()
}

// ExecutionWillLogData implements monitor.Listener.
func (c *Collector) ExecutionWillLogData(_ monitor.Context, data []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesLogged += int64(len(data))
	c.mu.Unlock()
}

// ExecutionDidLog implements monitor.Listener.
func (c *Collector) ExecutionDidLog(monitor.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.didLog++
	c.mu.Unlock()
}

// AbsorbQueueStats copies the pending queue counters into the collector.
func (c *Collector) AbsorbQueueStats(s batch.Stats) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queue = s
	c.mu.Unlock()
}

// Snapshot returns a copy of every counter.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[types.MessageKind]int64, len(c.messagesByKind))
	for k, v := range c.messagesByKind {
		byKind[k] = v
	}
	byContext := make(map[monitor.ContextKind]int64, len(c.errorsByContext))
	for k, v := range c.errorsByContext {
		byContext[k] = v
	}
	byTrigger := make(map[batch.FlushTrigger]int64, len(c.queue.FlushByTrigger))
	for k, v := range c.queue.FlushByTrigger {
		byTrigger[k] = v
	}

	return Snapshot{
		Calls:          c.calls,
		Batches:        c.batches,
		BatchResponses: c.batchResponses,

		MessagesLogged: c.messagesLogged,
		MessagesByKind: byKind,
		BytesLogged:    c.bytesLogged,
		DidLog:         c.didLog,

		Errors:          c.errors,
		ErrorsByContext: byContext,

		QueueFlushes:      c.queue.FlushCount,
		QueueEmptyFlushes: c.queue.EmptyFlushes,
		QueueMaxLen:       c.queue.MaxQueueLen,
		FlushByTrigger:    byTrigger,

		Platform:  c.platform,
		Transport: c.transport,
	}
}

// Verify Collector implements monitor.Listener.
var _ monitor.Listener = (*Collector)(nil)
