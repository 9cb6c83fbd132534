// Package viewtracker maintains the stack of views a user navigates through
// and assigns view IDs as the stack grows, shrinks, or drifts from the live
// UI hierarchy.
package viewtracker

import (
	"github.com/pithecene-io/beacon/ids"
	"github.com/pithecene-io/beacon/types"
)

// State is one entry on the navigation stack.
type State struct {
	Key     Key
	UseCase types.UseCase
	ViewID  types.ID
}

// StackSource exposes the live screen hierarchy of the host UI.
type StackSource interface {
	// LiveStack returns the currently live screen keys, bottom first.
	LiveStack() []Key
	// ForeignRuntimeActive reports whether another UI runtime (for
	// example a cross-platform bridge) is in control of navigation.
	ForeignRuntimeActive() bool
}

// Tracker is the view stack state machine.
// Not safe for concurrent use.
type Tracker struct {
	producer *ids.Producer
	source   StackSource
	stack    []*State
}

// New creates a tracker issuing view IDs from producer. source may be nil,
// in which case UpdateState is a no-op.
func New(producer *ids.Producer, source StackSource) *Tracker {
	return &Tracker{producer: producer, source: source}
}

// Track records navigation to key.
//
// Returns nil for the zero key and when key is already on top. When key
// is found further down the stack, the stack is popped back to it and its
// existing state is returned with its original view ID. Otherwise a new
// state is pushed with a freshly advanced view ID.
func (t *Tracker) Track(key Key, useCase types.UseCase) *State {
	if key.IsZero() {
		return nil
	}
	if top := t.Top(); top != nil && top.Key == key {
		return nil
	}
	if i := t.index(key); i >= 0 {
		t.stack = t.stack[:i+1]
		state := t.stack[i]
		t.producer.Restore(state.ViewID)
		return state
	}
	state := &State{
		Key:     key,
		UseCase: useCase,
		ViewID:  t.producer.Advance(),
	}
	t.stack = append(t.stack, state)
	return state
}

// UpdateState reconciles the tracked stack with the live screen stack.
//
// The tracked stack is rebuilt from live entries that were previously
// tracked, in live order. Returns the new top when it differs from the old
// top, nil otherwise. Defers (returns nil, stack unchanged) when a foreign
// runtime is active with nothing tracked, or when the tracked top is not a
// native screen.
func (t *Tracker) UpdateState() *State {
	if t.source == nil {
		return nil
	}
	if len(t.stack) == 0 && t.source.ForeignRuntimeActive() {
		return nil
	}
	prev := t.Top()
	if prev != nil && prev.Key.Kind() != KindScreen {
		return nil
	}

	byKey := make(map[Key]*State, len(t.stack))
	for _, s := range t.stack {
		byKey[s.Key] = s
	}
	var rebuilt []*State
	for _, k := range t.source.LiveStack() {
		if s, ok := byKey[k]; ok {
			rebuilt = append(rebuilt, s)
		}
	}
	if len(rebuilt) == 0 {
		return nil
	}
	t.stack = rebuilt

	top := rebuilt[len(rebuilt)-1]
	if top == prev {
		return nil
	}
	t.producer.Restore(top.ViewID)
	return top
}

// Reset clears the stack and advances the view ID, starting a fresh
// tracking session.
func (t *Tracker) Reset() {
	t.stack = nil
	t.producer.Advance()
}

// Top returns the state on top of the stack, or nil.
func (t *Tracker) Top() *State {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Stack returns a copy of the tracked stack, bottom first.
func (t *Tracker) Stack() []*State {
	out := make([]*State, len(t.stack))
	copy(out, t.stack)
	return out
}

func (t *Tracker) index(key Key) int {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i].Key == key {
			return i
		}
	}
	return -1
}
