package impression

import (
	"sort"

	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
)

// Sink receives impressions that should be logged to the server.
type Sink interface {
	RecordImpression(imp Impression)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Impression)

// RecordImpression implements Sink.
func (f SinkFunc) RecordImpression(imp Impression) { f(imp) }

// Observer is notified of impression starts and ends.
type Observer interface {
	ImpressionsStarted(imps []Impression)
	ImpressionsEnded(imps []Impression)
}

// Config configures a Tracker.
type Config struct {
	// SourceType is stamped on every impression the tracker opens.
	SourceType types.ImpressionSourceType

	// Monitor wraps each entry point in a function context. Optional.
	Monitor *monitor.Monitor

	// Name prefixes monitor context names. Defaults to "impressionTracker".
	Name string
}

// Tracker maps content to its open impression.
// Not safe for concurrent use.
type Tracker struct {
	clock     clock.Clock
	sink      Sink
	config    Config
	observers []Observer
	open      map[Content]*Impression
}

// NewTracker creates a tracker. sink may be nil, in which case nothing is
// logged.
func NewTracker(clk clock.Clock, sink Sink, config Config) *Tracker {
	if config.Name == "" {
		config.Name = "impressionTracker"
	}
	return &Tracker{
		clock:  clk,
		sink:   sink,
		config: config,
		open:   make(map[Content]*Impression),
	}
}

// AddObserver registers o for start and end notifications.
func (t *Tracker) AddObserver(o Observer) {
	t.observers = append(t.observers, o)
}

// WillDisplay opens an impression for c unless one is already open.
func (t *Tracker) WillDisplay(c Content) {
	t.execute("willDisplay", func() {
		t.apply([]Content{c}, nil)
	})
}

// DidHide closes the open impression for c, if any. Nothing is logged.
func (t *Tracker) DidHide(c Content) {
	t.execute("didHide", func() {
		t.apply(nil, []Content{c})
	})
}

// DidChangeVisibleContent replaces the visible set. Content that newly
// appears is opened and logged; content no longer present is closed.
func (t *Tracker) DidChangeVisibleContent(visible []Content) {
	t.execute("didChangeVisibleContent", func() {
		inSet := make(map[Content]struct{}, len(visible))
		for _, c := range visible {
			inSet[c] = struct{}{}
		}
		var hidden []Content
		for c := range t.open {
			if _, ok := inSet[c]; !ok {
				hidden = append(hidden, c)
			}
		}
		t.apply(visible, hidden)
	})
}

// DidHideAllContent closes every open impression.
func (t *Tracker) DidHideAllContent() {
	t.execute("didHideAllContent", func() {
		hidden := make([]Content, 0, len(t.open))
		for c := range t.open {
			hidden = append(hidden, c)
		}
		t.apply(nil, hidden)
	})
}

// Open returns the open impressions ordered by start time, then content.
func (t *Tracker) Open() []Impression {
	out := make([]Impression, 0, len(t.open))
	for _, imp := range t.open {
		out = append(out, *imp)
	}
	sortImpressions(out)
	return out
}

// IsOpen reports whether c has an open impression.
func (t *Tracker) IsOpen(c Content) bool {
	_, ok := t.open[c]
	return ok
}

func (t *Tracker) apply(shown, hidden []Content) {
	now := t.clock.Now()

	var started []Impression
	for _, c := range shown {
		if _, ok := t.open[c]; ok {
			continue
		}
		imp := &Impression{Content: c, Start: now, SourceType: t.config.SourceType}
		t.open[c] = imp
		started = append(started, *imp)
	}

	var ended []Impression
	for _, c := range hidden {
		imp, ok := t.open[c]
		if !ok {
			continue
		}
		delete(t.open, c)
		end := now
		imp.End = &end
		ended = append(ended, *imp)
	}
	sortImpressions(ended)

	if len(started) > 0 {
		if t.sink != nil {
			for _, imp := range started {
				t.sink.RecordImpression(imp)
			}
		}
		for _, o := range t.observers {
			o.ImpressionsStarted(started)
		}
	}
	if len(ended) > 0 {
		for _, o := range t.observers {
			o.ImpressionsEnded(ended)
		}
	}
}

func (t *Tracker) execute(name string, fn func()) {
	if t.config.Monitor == nil {
		fn()
		return
	}
	t.config.Monitor.ExecuteFunc(t.config.Name+"."+name, fn)
}

func sortImpressions(imps []Impression) {
	sort.Slice(imps, func(i, j int) bool {
		if !imps[i].Start.Equal(imps[j].Start) {
			return imps[i].Start.Before(imps[j].Start)
		}
		if imps[i].Content.ContentID != imps[j].Content.ContentID {
			return imps[i].Content.ContentID < imps[j].Content.ContentID
		}
		return imps[i].Content.InsertionID < imps[j].Content.InsertionID
	})
}
