// Package metrics implements the logging core: the Logger that owns the
// ancestor IDs, builds and enqueues event messages, and flushes batches to
// the network connection, plus the ancestor ID history and the execution
// counter collector.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/batch"
	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/ids"
	"github.com/pithecene-io/beacon/log"
	"github.com/pithecene-io/beacon/loop"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/store"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/viewtracker"
	"github.com/pithecene-io/beacon/wire"
	"github.com/pithecene-io/beacon/xray"
)

// Non-fatal errors reported through the monitor.
var (
	// ErrWrongThread is reported when a public method is called off the loop.
	ErrWrongThread = errors.New("logger called off its execution context")
	// ErrPropertiesEncoding is reported when host properties fail to encode.
	ErrPropertiesEncoding = errors.New("properties encoding failed")
	// ErrSend is reported when the connection reports a failed batch.
	ErrSend = errors.New("batch send failed")
	// ErrEncode is reported when a batch cannot be serialized.
	ErrEncode = errors.New("batch encoding failed")
	// ErrStore is reported when the persistent store rejects a write.
	ErrStore = errors.New("persistent store write failed")
	// ErrClosed is reported when the logger is used after Close.
	ErrClosed = errors.New("logger closed")
	// ErrInvalidViewKey is reported when TrackView gets the zero key.
	ErrInvalidViewKey = errors.New("invalid view key")
)

// ErrMissingCollaborator is returned by New when a required dependency is nil.
var ErrMissingCollaborator = errors.New("missing required collaborator")

// DiagnosticsConfig selects the optional diagnostics sub-message.
type DiagnosticsConfig struct {
	IncludeBatchSummaries       bool
	IncludeAncestorIDHistory    bool
	AncestorIDHistorySize       int
	IncludeAncestorIDProvenance bool
}

func (d DiagnosticsConfig) enabled() bool {
	return d.IncludeBatchSummaries || d.IncludeAncestorIDHistory
}

// Config configures a Logger.
type Config struct {
	// Connection delivers batches. Required.
	Connection adapter.Connection
	// Encoder serializes batches and properties. Required.
	Encoder *wire.Encoder
	// Store persists user and log-user IDs. Defaults to store.NewMemory().
	Store store.Store

	Clock clock.Clock
	// Loop is the execution context every call runs on. Required unless
	// Clock is a manual clock, where it defaults to loop.Immediate.
	Loop    loop.Loop
	IDs     ids.Map
	Monitor *monitor.Monitor
	Logger  *log.Logger
	// Xray, when set, supplies batch summaries for diagnostics.
	Xray *xray.Xray

	// FlushInterval is the batching delay. Defaults to 10s.
	FlushInterval time.Duration

	ClientInfo types.ClientInfo
	// Device is called once, on the first flush.
	Device func() *types.Device

	// StackSource backs UpdateViewState. Optional.
	StackSource viewtracker.StackSource

	// VisibilityThreshold and ScrollUpdateFrequency configure ScrollTracker.
	// A nil threshold uses the tracker default.
	VisibilityThreshold   *float64
	ScrollUpdateFrequency time.Duration

	Diagnostics DiagnosticsConfig
}

// BatchCounters are the running batch outcome counters.
type BatchCounters struct {
	Attempted  int64
	Succeeded  int64
	WithErrors int64
}

// Logger is the logging orchestrator.
//
// Logger holds no locks. Every public method must run on the configured
// loop; calls from elsewhere are dropped and ErrWrongThread is reported.
// Network completions are re-posted onto the loop.
type Logger struct {
	config  Config
	clock   clock.Clock
	loop    loop.Loop
	ids     ids.Map
	store   store.Store
	monitor *monitor.Monitor
	logger  *log.Logger

	queue *batch.Queue

	userID     string
	logUserID  *ids.Producer
	sessionID  *ids.Producer
	viewID     *ids.Producer
	autoViewID *ids.Producer
	views      *viewtracker.Tracker

	history   *History
	collector *Collector

	device       *types.Device
	deviceCached bool

	batchNumber int
	counters    BatchCounters

	// sending is set while a batch is handed to the connection; responses
	// arriving synchronously are deferred until the batch context unwinds.
	sending   bool
	responses []func()

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a Logger.
func New(config Config) (*Logger, error) {
	if config.Connection == nil {
		return nil, fmt.Errorf("%w: connection", ErrMissingCollaborator)
	}
	if config.Encoder == nil {
		return nil, fmt.Errorf("%w: encoder", ErrMissingCollaborator)
	}
	if config.Store == nil {
		config.Store = store.NewMemory()
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.Loop == nil {
		// Real timers fire on runtime goroutines; only a manual clock can
		// share the caller's context without a loop.
		if !clock.Manual(config.Clock) {
			return nil, fmt.Errorf("%w: loop (required with a real clock)", ErrMissingCollaborator)
		}
		config.Loop = loop.Immediate{}
	}
	if config.IDs == nil {
		config.IDs = ids.NewMap()
	}
	if config.Monitor == nil {
		config.Monitor = monitor.New()
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 10 * time.Second
	}

	l := &Logger{
		config:  config,
		clock:   config.Clock,
		loop:    config.Loop,
		ids:     config.IDs,
		store:   config.Store,
		monitor: config.Monitor,
		logger:  config.Logger,
		userID:  config.Store.UserID(),
		history: NewHistory(config.Diagnostics.AncestorIDHistorySize),
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())

	m := config.IDs
	l.logUserID = ids.NewProducer(func() string {
		if v := config.Store.LogUserID(); v != "" {
			return v
		}
		return m.LogUserID()
	}, m.LogUserID)
	l.sessionID = ids.NewProducer(m.SessionID, m.SessionID)
	l.viewID = ids.NewProducer(m.ViewID, m.ViewID)
	l.autoViewID = ids.NewProducer(m.AutoViewID, m.AutoViewID)
	l.views = viewtracker.New(l.viewID, config.StackSource)

	q, err := batch.New(batch.Config{
		FlushInterval: config.FlushInterval,
		Clock:         config.Clock,
		Loop:          config.Loop,
		OnFlush:       l.flush,
		Logger:        config.Logger,
	})
	if err != nil {
		return nil, err
	}
	l.queue = q

	l.logger.Info("metrics logger started", map[string]any{
		"flush_interval": config.FlushInterval.String(),
		"content_type":   config.Encoder.ContentType(),
		"compression":    string(config.Encoder.Compression()),
		"diagnostics":    config.Diagnostics.enabled(),
	})
	return l, nil
}

// SetCollector registers c as a monitor listener and feeds it queue stats
// on every flush.
func (l *Logger) SetCollector(c *Collector) {
	l.collector = c
	l.monitor.AddListener(c)
}

// Monitor returns the operation monitor.
func (l *Logger) Monitor() *monitor.Monitor { return l.monitor }

// Collector returns the registered collector, or nil.
func (l *Logger) Collector() *Collector { return l.collector }

// History returns the ancestor ID history.
func (l *Logger) History() *History { return l.history }

// Counters returns the batch outcome counters.
func (l *Logger) Counters() BatchCounters { return l.counters }

// Pending returns the number of queued messages.
func (l *Logger) Pending() int { return l.queue.Len() }

// QueueStats returns the pending queue counters.
func (l *Logger) QueueStats() batch.Stats { return l.queue.Stats() }

// onLoop reports whether the caller may proceed. Off-loop and post-close
// calls are dropped; the error is re-posted onto the loop so listeners
// only ever run there.
func (l *Logger) onLoop(name string) bool {
	if !l.loop.InLoop() {
		l.logger.Warn("call dropped: off execution context", map[string]any{"function": name})
		l.loop.Post(func() {
			l.monitor.ExecuteFunc(name, func() {
				l.monitor.ReportError(fmt.Errorf("%w: %s", ErrWrongThread, name))
			})
		})
		return false
	}
	if l.closed {
		l.monitor.ExecuteFunc(name, func() {
			l.monitor.ReportError(fmt.Errorf("%w: %s", ErrClosed, name))
		})
		return false
	}
	return true
}

// reportError logs err and forwards it to the monitor.
func (l *Logger) reportError(err error) {
	l.logger.Warn("reported error", map[string]any{"error": err.Error()})
	l.monitor.ReportError(err)
}

// Close flushes pending messages, waits for in-flight sends and releases
// the connection. Later calls are dropped.
func (l *Logger) Close(ctx context.Context) error {
	if !l.loop.InLoop() {
		return ErrWrongThread
	}
	if l.closed {
		return nil
	}
	l.flush(batch.FlushTriggerClose)
	l.closed = true
	l.queue.Stop()

	done := make(chan error, 1)
	go func() { done <- l.config.Connection.Close() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	l.cancel()
	l.collector.AbsorbQueueStats(l.queue.Stats())
	_ = l.logger.Sync()
	return err
}
