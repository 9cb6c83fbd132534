package impression

import (
	"time"

	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/loop"
)

// Scroll tracker defaults.
const (
	DefaultVisibilityThreshold = 0.5
	DefaultUpdateFrequency     = 500 * time.Millisecond
)

// Rect is an axis-aligned rectangle in host coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// Area returns the rectangle area; negative sizes count as zero.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.Width, o.X+o.Width)
	y1 := min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// OverlapRatio returns the fraction of frame's area inside viewport.
// A zero-area frame is 0% visible.
func OverlapRatio(frame, viewport Rect) float64 {
	area := frame.Area()
	if area == 0 {
		return 0
	}
	return frame.Intersect(viewport).Area() / area
}

// ScrollConfig configures a ScrollTracker.
type ScrollConfig struct {
	Config

	// VisibilityThreshold is the minimum overlap ratio for content to
	// count as visible. Nil means DefaultVisibilityThreshold; an explicit
	// 0 makes every registered frame visible.
	VisibilityThreshold *float64

	// UpdateFrequency is the coalescing delay between a scroll and the
	// visibility recomputation. Defaults to DefaultUpdateFrequency.
	UpdateFrequency time.Duration

	// Loop delivers timer callbacks. Defaults to loop.Immediate.
	Loop loop.Loop
}

type frameEntry struct {
	content Content
	frame   Rect
}

// ScrollTracker derives visibility from content frames and a viewport.
// Updates are throttled: scrolling schedules at most one pending update.
type ScrollTracker struct {
	*Tracker

	clock     clock.Clock
	loop      loop.Loop
	config    ScrollConfig
	threshold float64
	viewport  Rect
	frames    []frameEntry
	timer     clock.Timer
}

// NewScrollTracker creates a scroll tracker.
func NewScrollTracker(clk clock.Clock, sink Sink, config ScrollConfig) *ScrollTracker {
	if config.Name == "" {
		config.Name = "scrollTracker"
	}
	threshold := DefaultVisibilityThreshold
	if config.VisibilityThreshold != nil {
		threshold = *config.VisibilityThreshold
	}
	if config.UpdateFrequency <= 0 {
		config.UpdateFrequency = DefaultUpdateFrequency
	}
	if config.Loop == nil {
		config.Loop = loop.Immediate{}
	}
	return &ScrollTracker{
		Tracker:   NewTracker(clk, sink, config.Config),
		clock:     clk,
		loop:      config.Loop,
		config:    config,
		threshold: threshold,
	}
}

// SetViewport sets the visible region.
func (s *ScrollTracker) SetViewport(viewport Rect) {
	s.viewport = viewport
}

// SetFrame registers or moves the frame of c.
func (s *ScrollTracker) SetFrame(frame Rect, c Content) {
	for i := range s.frames {
		if s.frames[i].content == c {
			s.frames[i].frame = frame
			return
		}
	}
	s.frames = append(s.frames, frameEntry{content: c, frame: frame})
}

// ClearFrames forgets every registered frame.
func (s *ScrollTracker) ClearFrames() {
	s.frames = nil
}

// ScrollDidChange records a viewport change and schedules an update if
// none is pending.
func (s *ScrollTracker) ScrollDidChange(viewport Rect) {
	s.viewport = viewport
	if s.timer != nil {
		return
	}
	s.timer = s.clock.Schedule(s.config.UpdateFrequency, func() {
		s.loop.Post(func() {
			s.timer = nil
			s.Update()
		})
	})
}

// Update recomputes the visible set immediately.
func (s *ScrollTracker) Update() {
	s.DidChangeVisibleContent(s.Visible())
}

// Visible returns the registered content meeting the visibility threshold,
// in registration order.
func (s *ScrollTracker) Visible() []Content {
	var visible []Content
	for _, e := range s.frames {
		if OverlapRatio(e.frame, s.viewport) >= s.threshold {
			visible = append(visible, e.content)
		}
	}
	return visible
}

// ViewDidDisappear cancels any pending update and closes every open
// impression.
func (s *ScrollTracker) ViewDidDisappear() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	s.DidHideAllContent()
}

// Threshold returns the effective visibility threshold.
func (s *ScrollTracker) Threshold() float64 {
	return s.threshold
}

// Pending reports whether an update is scheduled.
func (s *ScrollTracker) Pending() bool {
	return s.timer != nil
}
