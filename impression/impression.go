// Package impression tracks the visible lifetime of content entities and
// turns visibility changes into impression start and end events.
//
// Only start events are logged through the Sink. End events are delivered
// to observers but never logged, which keeps server-side event volume at
// one record per impression.
package impression

import (
	"math"
	"time"

	"github.com/pithecene-io/beacon/types"
)

// Content identifies one impressionable entity.
type Content struct {
	ContentID   string
	InsertionID string
}

// IsZero reports whether c carries no identifiers.
func (c Content) IsZero() bool {
	return c.ContentID == "" && c.InsertionID == ""
}

// Impression is one content entity's visible lifetime.
type Impression struct {
	Content    Content
	Start      time.Time
	End        *time.Time // nil while ongoing
	SourceType types.ImpressionSourceType
}

// Duration returns End-Start, or zero for an ongoing impression.
func (i Impression) Duration() time.Duration {
	if i.End == nil {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Equal reports whether i and o describe the same impression: same content
// and start/end times within epsilon.
func (i Impression) Equal(o Impression, epsilon time.Duration) bool {
	if i.Content != o.Content {
		return false
	}
	if !within(i.Start, o.Start, epsilon) {
		return false
	}
	switch {
	case i.End == nil && o.End == nil:
		return true
	case i.End == nil || o.End == nil:
		return false
	default:
		return within(*i.End, *o.End, epsilon)
	}
}

func within(a, b time.Time, epsilon time.Duration) bool {
	return time.Duration(math.Abs(float64(a.Sub(b)))) <= epsilon
}
