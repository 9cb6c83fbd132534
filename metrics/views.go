package metrics

import (
	"github.com/pithecene-io/beacon/impression"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/viewtracker"
)

// TrackView records navigation to key and logs a View when the tracked
// top changes. Navigating back to a tracked view reuses its view ID. The
// zero key, as built from an unusable screen handle, is reported and
// ignored.
func (l *Logger) TrackView(key viewtracker.Key, useCase types.UseCase) {
	if !l.onLoop("trackView") {
		return
	}
	l.monitor.ExecuteFunc("trackView", func() {
		if key.IsZero() {
			l.reportError(ErrInvalidViewKey)
			return
		}
		if state := l.views.Track(key, useCase); state != nil {
			l.logView(key.Name(), state.UseCase, nil)
		}
	})
}

// UpdateViewState reconciles tracked views with the live screen stack and
// logs a View when the top changed.
func (l *Logger) UpdateViewState() {
	if !l.onLoop("updateViewState") {
		return
	}
	l.monitor.ExecuteFunc("updateViewState", func() {
		if state := l.views.UpdateState(); state != nil {
			l.logView(state.Key.Name(), state.UseCase, nil)
		}
	})
}

// ResetViewTracking clears tracked views and advances the view ID.
func (l *Logger) ResetViewTracking() {
	if !l.onLoop("resetViewTracking") {
		return
	}
	l.monitor.ExecuteFunc("resetViewTracking", func() {
		l.views.Reset()
		l.history.Record(IDView, l.viewID.Current(), l.batchNumber+1)
	})
}

// ViewStack returns the tracked view stack, bottom first.
func (l *Logger) ViewStack() []*viewtracker.State {
	return l.views.Stack()
}

// RecordImpression implements impression.Sink. Only impression starts are
// logged; ends never reach the server.
func (l *Logger) RecordImpression(imp impression.Impression) {
	l.LogImpression(ImpressionEvent{
		ContentID:   imp.Content.ContentID,
		InsertionID: imp.Content.InsertionID,
		SourceType:  imp.SourceType,
		Time:        imp.Start,
	})
}

// ImpressionTracker returns a tracker that logs through l.
func (l *Logger) ImpressionTracker(source types.ImpressionSourceType) *impression.Tracker {
	return impression.NewTracker(l.clock, l, impression.Config{
		SourceType: source,
		Monitor:    l.monitor,
	})
}

// ScrollTracker returns a scroll tracker that logs through l, using the
// configured visibility threshold and update frequency.
func (l *Logger) ScrollTracker(source types.ImpressionSourceType) *impression.ScrollTracker {
	return impression.NewScrollTracker(l.clock, l, impression.ScrollConfig{
		Config: impression.Config{
			SourceType: source,
			Monitor:    l.monitor,
		},
		VisibilityThreshold: l.config.VisibilityThreshold,
		UpdateFrequency:     l.config.ScrollUpdateFrequency,
		Loop:                l.loop,
	})
}

// Verify Logger implements impression.Sink.
var _ impression.Sink = (*Logger)(nil)
