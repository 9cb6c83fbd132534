// Package monitor wraps logging operations in a re-entrant execution
// context and fans lifecycle notifications out to listeners.
//
// Start and end notifications fire only at the outermost call; nested calls
// are silent. Errors and log notifications are attributed to the bottommost
// (outermost) context on the stack, so an error raised deep inside a flush
// is reported against the batch rather than the innermost function.
package monitor

import "github.com/pithecene-io/beacon/types"

// ContextKind classifies an execution context.
type ContextKind string

// Context kinds.
const (
	ContextFunction      ContextKind = "function"
	ContextBatch         ContextKind = "batch"
	ContextBatchResponse ContextKind = "batch_response"
)

// Context describes one entry on the execution stack.
type Context struct {
	Kind ContextKind
	// Function is the public entry point name for ContextFunction.
	Function string
	// Batch is the batch number for ContextBatch and ContextBatchResponse.
	Batch int
}

// String returns a compact label for logs.
func (c Context) String() string {
	if c.Kind == ContextFunction {
		return c.Function
	}
	return string(c.Kind)
}

// unknownContext is used when a notification arrives outside any Execute.
var unknownContext = Context{Kind: ContextFunction, Function: "unknown"}

// Listener receives execution notifications.
// Embed NopListener to implement only the callbacks of interest.
type Listener interface {
	ExecutionWillStart(ctx Context)
	ExecutionDidEnd(ctx Context)
	ExecutionDidError(ctx Context, err error)
	ExecutionWillLogMessage(ctx Context, msg types.Message)
	ExecutionWillLogData(ctx Context, data []byte)
	ExecutionDidLog(ctx Context)
}

// NopListener implements Listener with no-ops.
type NopListener struct{}

func (NopListener) ExecutionWillStart(Context)                     {}
func (NopListener) ExecutionDidEnd(Context)                        {}
func (NopListener) ExecutionDidError(Context, error)               {}
func (NopListener) ExecutionWillLogMessage(Context, types.Message) {}
func (NopListener) ExecutionWillLogData(Context, []byte)           {}
func (NopListener) ExecutionDidLog(Context)                        {}

// Token identifies a listener registration.
type Token int

// Monitor tracks the execution stack and notifies listeners.
// Not safe for concurrent use; it runs on the logging core's single
// logical context.
type Monitor struct {
	stack     []Context
	listeners []registration
	nextToken Token
}

type registration struct {
	token    Token
	listener Listener
}

// New creates a monitor with no listeners.
func New() *Monitor {
	return &Monitor{}
}

// AddListener registers l and returns a token for RemoveListener.
// The monitor does not own listeners; owners must unregister them.
func (m *Monitor) AddListener(l Listener) Token {
	m.nextToken++
	m.listeners = append(m.listeners, registration{token: m.nextToken, listener: l})
	return m.nextToken
}

// RemoveListener unregisters the listener behind tok. Unknown tokens are ignored.
func (m *Monitor) RemoveListener(tok Token) {
	for i, r := range m.listeners {
		if r.token == tok {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Execute runs fn inside ctx. ExecutionWillStart fires only when the stack
// was empty, ExecutionDidEnd only when it becomes empty again.
func (m *Monitor) Execute(ctx Context, fn func()) {
	if len(m.stack) == 0 {
		m.each(func(l Listener) { l.ExecutionWillStart(ctx) })
	}
	m.stack = append(m.stack, ctx)
	defer func() {
		m.stack = m.stack[:len(m.stack)-1]
		if len(m.stack) == 0 {
			m.each(func(l Listener) { l.ExecutionDidEnd(ctx) })
		}
	}()
	fn()
}

// ExecuteFunc runs fn inside a function context named name.
func (m *Monitor) ExecuteFunc(name string, fn func()) {
	m.Execute(Context{Kind: ContextFunction, Function: name}, fn)
}

// ReportError notifies listeners of a non-fatal error.
func (m *Monitor) ReportError(err error) {
	if err == nil {
		return
	}
	ctx := m.bottom()
	m.each(func(l Listener) { l.ExecutionDidError(ctx, err) })
}

// WillLogMessage notifies listeners that msg is about to be enqueued.
func (m *Monitor) WillLogMessage(msg types.Message) {
	ctx := m.bottom()
	m.each(func(l Listener) { l.ExecutionWillLogMessage(ctx, msg) })
}

// WillLogData notifies listeners that data is about to be sent.
func (m *Monitor) WillLogData(data []byte) {
	ctx := m.bottom()
	m.each(func(l Listener) { l.ExecutionWillLogData(ctx, data) })
}

// DidLog notifies listeners that a log operation completed.
func (m *Monitor) DidLog() {
	ctx := m.bottom()
	m.each(func(l Listener) { l.ExecutionDidLog(ctx) })
}

// Depth returns the current stack depth.
func (m *Monitor) Depth() int {
	return len(m.stack)
}

// Current returns the bottommost context, if any.
func (m *Monitor) Current() (Context, bool) {
	if len(m.stack) == 0 {
		return Context{}, false
	}
	return m.stack[0], true
}

func (m *Monitor) bottom() Context {
	if len(m.stack) == 0 {
		return unknownContext
	}
	return m.stack[0]
}

// each iterates over a snapshot so listeners may unregister during a callback.
func (m *Monitor) each(fn func(Listener)) {
	snapshot := make([]registration, len(m.listeners))
	copy(snapshot, m.listeners)
	for _, r := range snapshot {
		fn(r.listener)
	}
}
