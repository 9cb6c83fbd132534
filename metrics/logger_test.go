package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/ids"
	"github.com/pithecene-io/beacon/impression"
	"github.com/pithecene-io/beacon/loop"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/store"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/validate"
	"github.com/pithecene-io/beacon/viewtracker"
	"github.com/pithecene-io/beacon/wire"
	"github.com/pithecene-io/beacon/xray"
)

const testInterval = 10 * time.Second

type errorRecorder struct {
	monitor.NopListener
	errs []error
	ctxs []monitor.Context
}

func (r *errorRecorder) ExecutionDidError(ctx monitor.Context, err error) {
	r.errs = append(r.errs, err)
	r.ctxs = append(r.ctxs, ctx)
}

func (r *errorRecorder) count(target error) int {
	n := 0
	for _, err := range r.errs {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

type harness struct {
	logger  *Logger
	clock   *clock.Fake
	conn    *adapter.Stub
	encoder *wire.Encoder
	store   *store.Memory
	errs    *errorRecorder
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	enc, err := wire.NewEncoder(wire.FormatBinary, wire.CompressionNone)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	n := 0
	h := &harness{
		clock:   clock.NewFake(time.Unix(123, 0)),
		conn:    &adapter.Stub{},
		encoder: enc,
		store:   store.NewMemory(),
		errs:    &errorRecorder{},
	}
	cfg := Config{
		Connection:    h.conn,
		Encoder:       enc,
		Store:         h.store,
		Clock:         h.clock,
		FlushInterval: testInterval,
		IDs: ids.NewMapWithSource(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		ClientInfo: types.ClientInfo{
			ClientType:  types.ClientTypePlatformClient,
			TrafficType: types.TrafficTypeProduction,
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Monitor().AddListener(h.errs)
	h.logger = l
	return h
}

func (h *harness) sent(t *testing.T) []*types.LogRequest {
	t.Helper()
	var out []*types.LogRequest
	for _, r := range h.conn.Requests() {
		req, err := h.encoder.DecodeRequest(r.Payload)
		if err != nil {
			t.Fatalf("DecodeRequest() error = %v", err)
		}
		out = append(out, req)
	}
	return out
}

func TestLogger_EndToEndImpression(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.StartSession("foo")
	h.logger.LogImpression(ImpressionEvent{ContentID: "bar", InsertionID: "baz"})
	h.clock.Advance(testInterval + time.Second)

	reqs := h.sent(t)
	if len(reqs) != 1 {
		t.Fatalf("sends = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if len(req.Impressions) != 1 {
		t.Fatalf("len(Impressions) = %d, want 1", len(req.Impressions))
	}
	imp := req.Impressions[0]
	if imp.ContentID != "bar" || imp.InsertionID != "baz" {
		t.Errorf("impression = %s/%s, want bar/baz", imp.ContentID, imp.InsertionID)
	}
	if imp.Timing.ClientLogTimestamp != 123000 {
		t.Errorf("ClientLogTimestamp = %d, want 123000", imp.Timing.ClientLogTimestamp)
	}
	if imp.SessionID == "" || imp.SessionID != h.logger.SessionID().Value {
		t.Errorf("SessionID = %q, want %q", imp.SessionID, h.logger.SessionID().Value)
	}
	if req.UserInfo.UserID != "foo" || req.UserInfo.LogUserID == "" {
		t.Errorf("UserInfo = %+v, want user foo with log user ID", req.UserInfo)
	}
	if len(req.Users) != 1 {
		t.Errorf("len(Users) = %d, want 1", len(req.Users))
	}
	if req.ClientInfo.ClientType != types.ClientTypePlatformClient {
		t.Errorf("ClientType = %v, want platform client", req.ClientInfo.ClientType)
	}
	if len(h.errs.errs) != 0 {
		t.Errorf("reported errors = %v, want none", h.errs.errs)
	}
}

func TestLogger_SessionIdempotence(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.StartSession("a")
	first := h.logger.LogUserID()
	session1 := h.logger.SessionID()
	h.logger.StartSession("a")
	second := h.logger.LogUserID()

	if first.Value != second.Value {
		t.Errorf("log user ID changed for same user: %q -> %q", first.Value, second.Value)
	}
	if session1.Value == h.logger.SessionID().Value {
		t.Error("session ID did not advance")
	}

	h.logger.StartSession("b")
	if got := h.logger.LogUserID(); got.Value == first.Value {
		t.Errorf("log user ID = %q for new user, want a fresh value", got.Value)
	}
	if h.store.UserID() != "b" || h.store.LogUserID() != h.logger.LogUserID().Value {
		t.Errorf("store = %q/%q, want persisted user b", h.store.UserID(), h.store.LogUserID())
	}
}

func TestLogger_PersistedLogUserIDSurvivesRestart(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		s := store.NewMemory()
		_ = s.SetUserID("a")
		_ = s.SetLogUserID("persisted-lu")
		c.Store = s
	})

	h.logger.StartSession("a")
	if got := h.logger.LogUserID().Value; got != "persisted-lu" {
		t.Errorf("LogUserID() = %q, want persisted-lu", got)
	}
}

func TestLogger_ValidationIsNonBlocking(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.LogAction(ActionEvent{Name: "go", Type: types.ActionNavigate})
	h.logger.Flush()

	reqs := h.sent(t)
	if len(reqs) != 1 || len(reqs[0].Actions) != 1 {
		t.Fatalf("sent = %d requests, want 1 with one action", len(reqs))
	}
	if len(h.errs.errs) != 1 {
		t.Fatalf("reported errors = %v, want exactly 1", h.errs.errs)
	}
	var verr *validate.Error
	if !errors.As(h.errs.errs[0], &verr) || verr.Kind != validate.KindMissingJoinableFieldsInAction {
		t.Errorf("error = %v, want missing_joinable_fields_in_action", h.errs.errs[0])
	}
	if h.errs.ctxs[0].Function != "logAction" {
		t.Errorf("error context = %q, want logAction", h.errs.ctxs[0].Function)
	}
}

func TestLogger_ContentlessActionsPassValidation(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.LogCheckoutAction()
	h.logger.LogPurchaseAction("", "")

	if len(h.errs.errs) != 0 {
		t.Errorf("reported errors = %v, want none", h.errs.errs)
	}
}

func TestLogger_TimerCoalescing(t *testing.T) {
	h := newHarness(t, nil)

	for i := range 3 {
		h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: fmt.Sprintf("c%d", i)})
		h.clock.Advance(time.Second)
	}
	if h.clock.Pending() != 1 {
		t.Errorf("Pending() timers = %d, want 1", h.clock.Pending())
	}
	if len(h.conn.Requests()) != 0 {
		t.Fatal("sent before the interval elapsed")
	}

	h.clock.Advance(testInterval)

	reqs := h.sent(t)
	if len(reqs) != 1 || len(reqs[0].Actions) != 3 {
		t.Fatalf("sent %d requests, want 1 with 3 actions", len(reqs))
	}
	if got := h.logger.QueueStats().TimersScheduled; got != 1 {
		t.Errorf("TimersScheduled = %d, want 1", got)
	}
}

func TestLogger_ExplicitFlushCancelsTimer(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	h.logger.Flush()
	if h.clock.Pending() != 0 {
		t.Errorf("Pending() timers = %d after Flush, want 0", h.clock.Pending())
	}
	h.clock.Advance(2 * testInterval)

	if got := len(h.conn.Requests()); got != 1 {
		t.Errorf("sends = %d, want 1", got)
	}
	if h.logger.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", h.logger.Pending())
	}
}

func TestLogger_EmptyFlushSendsNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.logger.Flush()
	if got := len(h.conn.Requests()); got != 0 {
		t.Errorf("sends = %d, want 0", got)
	}
}

func TestLogger_NetworkErrorIsNotRetried(t *testing.T) {
	h := newHarness(t, nil)
	h.conn.Result = func(*adapter.Request) ([]byte, error) {
		return nil, errors.New("503 service unavailable")
	}

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	h.logger.Flush()
	h.logger.Flush()

	if got := len(h.conn.Requests()); got != 1 {
		t.Errorf("sends = %d, want 1", got)
	}
	if h.errs.count(ErrSend) != 1 {
		t.Errorf("ErrSend reports = %d, want 1", h.errs.count(ErrSend))
	}
	if i := len(h.errs.ctxs) - 1; h.errs.ctxs[i].Kind != monitor.ContextBatchResponse {
		t.Errorf("error context = %v, want batch_response", h.errs.ctxs[i].Kind)
	}
	c := h.logger.Counters()
	if c.Attempted != 1 || c.WithErrors != 1 || c.Succeeded != 0 {
		t.Errorf("Counters() = %+v, want 1 attempted with errors", c)
	}
}

func TestLogger_DeferredResponse(t *testing.T) {
	h := newHarness(t, nil)
	h.conn.Defer = true

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	h.logger.Flush()
	if h.logger.Counters().Succeeded != 0 {
		t.Fatal("success recorded before the response arrived")
	}
	h.conn.Complete()
	if h.logger.Counters().Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", h.logger.Counters().Succeeded)
	}
}

func TestLogger_WrongThreadIsDropped(t *testing.T) {
	var posted []func()
	onLoop := false
	h := newHarness(t, func(c *Config) {
		c.Loop = loop.Func{
			PostFunc:   func(fn func()) { posted = append(posted, fn) },
			InLoopFunc: func() bool { return onLoop },
		}
	})

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	if h.logger.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 for off-loop call", h.logger.Pending())
	}

	onLoop = true
	for _, fn := range posted {
		fn()
	}
	if h.errs.count(ErrWrongThread) != 1 {
		t.Errorf("ErrWrongThread reports = %d, want 1", h.errs.count(ErrWrongThread))
	}
}

func TestLogger_PropertiesEncodingFailure(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.LogAction(ActionEvent{
		Type:       types.ActionCustom,
		ContentID:  "c",
		Properties: make(chan int),
	})
	h.logger.LogAction(ActionEvent{
		Type:       types.ActionCustom,
		ContentID:  "d",
		Properties: map[string]any{"color": "blue"},
	})
	h.logger.Flush()

	if h.errs.count(ErrPropertiesEncoding) != 1 {
		t.Errorf("ErrPropertiesEncoding reports = %d, want 1", h.errs.count(ErrPropertiesEncoding))
	}
	reqs := h.sent(t)
	if len(reqs) != 1 || len(reqs[0].Actions) != 2 {
		t.Fatalf("sent %d requests, want 1 with 2 actions", len(reqs))
	}
	if reqs[0].Actions[0].Properties != nil {
		t.Errorf("Properties = %v, want omitted", reqs[0].Actions[0].Properties)
	}
	if len(reqs[0].Actions[1].Properties) == 0 {
		t.Error("Properties for encodable value are empty")
	}
}

type screen struct{ name string }

func (s *screen) String() string { return s.name }

func TestLogger_TrackViewLogsOnChange(t *testing.T) {
	h := newHarness(t, nil)
	home, detail := &screen{"home"}, &screen{"detail"}

	h.logger.TrackView(viewtracker.ScreenKey(home), types.UseCaseFeed)
	homeID := h.logger.ViewID()
	h.logger.TrackView(viewtracker.ScreenKey(home), types.UseCaseFeed)
	h.logger.TrackView(viewtracker.ScreenKey(detail), types.UseCaseCloseUp)
	h.logger.TrackView(viewtracker.ScreenKey(home), types.UseCaseFeed)
	h.logger.Flush()

	reqs := h.sent(t)
	views := reqs[0].Views
	if len(views) != 3 {
		t.Fatalf("len(Views) = %d, want 3", len(views))
	}
	if views[0].Name != "home" || views[1].Name != "detail" {
		t.Errorf("view names = %q, %q", views[0].Name, views[1].Name)
	}
	if views[2].ViewID != homeID.Value {
		t.Errorf("back navigation ViewID = %q, want %q", views[2].ViewID, homeID.Value)
	}
}

func TestLogger_TrackViewRejectsZeroKey(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.TrackView(viewtracker.ScreenKey(map[string]int{"a": 1}), types.UseCaseFeed)

	if h.logger.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", h.logger.Pending())
	}
	if h.errs.count(ErrInvalidViewKey) != 1 {
		t.Errorf("ErrInvalidViewKey reports = %d, want 1", h.errs.count(ErrInvalidViewKey))
	}
}

func TestLogger_ImpressionTrackerLogsStartsOnly(t *testing.T) {
	h := newHarness(t, nil)
	tracker := h.logger.ImpressionTracker(types.ImpressionSourceDelivery)

	a := impressionContent("a")
	tracker.WillDisplay(a)
	tracker.WillDisplay(a)
	tracker.DidHide(a)
	tracker.DidHide(impressionContent("never-shown"))
	h.logger.Flush()

	reqs := h.sent(t)
	if len(reqs) != 1 || len(reqs[0].Impressions) != 1 {
		t.Fatalf("impressions sent = %v, want exactly 1", reqs)
	}
	if got := reqs[0].Impressions[0]; got.ContentID != "a" || got.SourceType != types.ImpressionSourceDelivery {
		t.Errorf("impression = %+v", got)
	}
}

func TestLogger_DiagnosticsIncludeHistoryAndSummaries(t *testing.T) {
	var x *xray.Xray
	h := newHarness(t, func(c *Config) {
		c.Diagnostics = DiagnosticsConfig{
			IncludeBatchSummaries:       true,
			IncludeAncestorIDHistory:    true,
			IncludeAncestorIDProvenance: true,
		}
		x = xray.New(xray.Config{Level: xray.LevelBatchSummaries, Clock: c.Clock})
		c.Xray = x
	})
	h.logger.Monitor().AddListener(x)

	h.logger.StartSession("u")
	h.logger.Flush()
	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	h.logger.Flush()

	reqs := h.sent(t)
	if len(reqs) != 2 {
		t.Fatalf("sends = %d, want 2", len(reqs))
	}
	d := reqs[1].Diagnostics
	if d == nil {
		t.Fatal("Diagnostics = nil")
	}
	if d.ClientVersion != types.Version || d.BatchesAttempted != 1 || d.BatchesSentSuccessfully != 1 {
		t.Errorf("Diagnostics counters = %+v", d)
	}
	if d.AncestorIDHistory == nil || len(d.AncestorIDHistory.SessionIDs) != 1 {
		t.Errorf("AncestorIDHistory = %+v, want one session ID", d.AncestorIDHistory)
	}
	if len(d.BatchSummaries) != 1 || d.BatchSummaries[0].Outcome != xray.OutcomeSuccess {
		t.Errorf("BatchSummaries = %+v, want first batch succeeded", d.BatchSummaries)
	}
	if p := reqs[1].Actions[0].IDProvenances; p == nil || p.SessionID != types.ProvenanceAutogenerated {
		t.Errorf("IDProvenances = %+v, want autogenerated session", p)
	}
}

func TestLogger_DeviceIsMemoized(t *testing.T) {
	calls := 0
	h := newHarness(t, func(c *Config) {
		c.Device = func() *types.Device {
			calls++
			return &types.Device{Platform: "ios", Model: "iPhone"}
		}
	})

	for range 3 {
		h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
		h.logger.Flush()
	}
	if calls != 1 {
		t.Errorf("Device() calls = %d, want 1", calls)
	}
	if d := h.sent(t)[2].Device; d == nil || d.Model != "iPhone" {
		t.Errorf("Device = %+v, want iPhone", d)
	}
}

func TestLogger_CloseFlushesAndDropsLaterCalls(t *testing.T) {
	h := newHarness(t, nil)

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "c"})
	if err := h.logger.Close(t.Context()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := len(h.conn.Requests()); got != 1 {
		t.Errorf("sends = %d, want 1", got)
	}
	if !h.conn.Closed() {
		t.Error("connection not closed")
	}

	h.logger.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "d"})
	if h.logger.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", h.logger.Pending())
	}
	if h.errs.count(ErrClosed) != 1 {
		t.Errorf("ErrClosed reports = %d, want 1", h.errs.count(ErrClosed))
	}
}

func TestNew_MissingCollaborators(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("New(Config{}) error = %v, want ErrMissingCollaborator", err)
	}
}

func TestNew_RealClockRequiresLoop(t *testing.T) {
	enc, err := wire.NewEncoder(wire.FormatBinary, wire.CompressionNone)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	_, err = New(Config{Connection: &adapter.Stub{}, Encoder: enc, FlushInterval: time.Millisecond})
	if !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("New() error = %v, want ErrMissingCollaborator", err)
	}
}

func TestLogger_SerialLoopWithRealTimers(t *testing.T) {
	enc, err := wire.NewEncoder(wire.FormatBinary, wire.CompressionNone)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	s := loop.NewSerial()
	conn := &adapter.Stub{}
	l, err := New(Config{
		Connection:    conn,
		Encoder:       enc,
		Loop:          s,
		FlushInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errs := &errorRecorder{}
	if err := s.Do(func() { l.Monitor().AddListener(errs) }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	for i := 0; time.Now().Before(deadline); i++ {
		err := s.Do(func() {
			l.LogImpression(ImpressionEvent{ContentID: fmt.Sprintf("c-%d", i)})
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
	}

	// Called from the test goroutine, so rejected.
	l.LogAction(ActionEvent{Type: types.ActionCustom, ContentID: "off-loop"})

	if err := s.Do(func() {
		if err := l.Close(t.Context()); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	s.Stop()

	if len(conn.Requests()) == 0 {
		t.Error("no batches sent")
	}
	c := l.Counters()
	if c.Attempted == 0 || c.Succeeded != c.Attempted {
		t.Errorf("counters = %+v, want every attempted batch to succeed", c)
	}
	if errs.count(ErrWrongThread) != 1 {
		t.Errorf("ErrWrongThread reports = %d, want 1", errs.count(ErrWrongThread))
	}
}

func TestLogger_ScrollTrackerThreshold(t *testing.T) {
	zero := 0.0
	h := newHarness(t, func(c *Config) { c.VisibilityThreshold = &zero })
	if got := h.logger.ScrollTracker(types.ImpressionSourceDelivery).Threshold(); got != 0 {
		t.Errorf("Threshold() = %v, want explicit 0", got)
	}

	h = newHarness(t, nil)
	if got := h.logger.ScrollTracker(types.ImpressionSourceDelivery).Threshold(); got != impression.DefaultVisibilityThreshold {
		t.Errorf("Threshold() = %v, want default %v", got, impression.DefaultVisibilityThreshold)
	}
}

type callRecorder struct {
	monitor.NopListener
	names []string
}

func (r *callRecorder) ExecutionWillStart(ctx monitor.Context) {
	if ctx.Kind == monitor.ContextFunction {
		r.names = append(r.names, ctx.Function)
	}
}

func TestLogger_IDSettersRunAsCalls(t *testing.T) {
	h := newHarness(t, nil)
	calls := &callRecorder{}
	h.logger.Monitor().AddListener(calls)

	h.logger.SetSessionID("s-host")
	h.logger.SetViewID("v-host")
	h.logger.SetAutoViewID("av-host")

	want := []string{"setSessionID", "setViewID", "setAutoViewID"}
	if fmt.Sprint(calls.names) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", calls.names, want)
	}
	if got := h.logger.SessionID().Value; got != "s-host" {
		t.Errorf("SessionID() = %q, want s-host", got)
	}
	if got := h.logger.ViewID().Value; got != "v-host" {
		t.Errorf("ViewID() = %q, want v-host", got)
	}
	if got := h.logger.AutoViewID().Value; got != "av-host" {
		t.Errorf("AutoViewID() = %q, want av-host", got)
	}
}
