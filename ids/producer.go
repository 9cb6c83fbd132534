package ids

import "github.com/pithecene-io/beacon/types"

// Producer manages the lifecycle of one identifier slot.
//
// The first Advance yields the initial value (typically persisted from a
// previous process) so that identifiers survive restarts; every later
// Advance yields a fresh value from next.
type Producer struct {
	initial func() string
	next    func() string

	initialValue *string
	current      types.ID // committed value, null until first commit
	ancestor     types.ID // value current before the last Advance
	hasAdvanced  bool
}

// NewProducer creates a producer. initial is evaluated lazily, at most once.
func NewProducer(initial, next func() string) *Producer {
	return &Producer{
		initial:  initial,
		next:     next,
		current:  types.NullID(),
		ancestor: types.NullID(),
	}
}

// Value returns the active identifier. On first access with nothing
// committed, the initial value is computed, committed and cached.
func (p *Producer) Value() types.ID {
	if p.current.IsNull() {
		p.current = types.AutoID(p.initialOnce())
	}
	return p.current
}

// Set overrides the active identifier with a host-supplied value.
// The value is committed immediately; there is no pending state.
func (p *Producer) Set(value string) {
	p.ancestor = p.current
	p.current = types.PlatformID(value)
	p.hasAdvanced = true
}

// Current returns the committed identifier, or a null ID when nothing has
// been committed yet.
func (p *Producer) Current() types.ID {
	return p.current
}

// CurrentOrPending returns the committed identifier or, when nothing is
// committed, the initial value without committing it.
func (p *Producer) CurrentOrPending() types.ID {
	if !p.current.IsNull() {
		return p.current
	}
	return types.AutoID(p.initialOnce())
}

// Advance commits a new identifier and returns it. The first call returns
// the initial value; later calls generate a fresh one.
func (p *Producer) Advance() types.ID {
	p.ancestor = p.current
	if !p.hasAdvanced {
		p.hasAdvanced = true
		p.current = types.AutoID(p.initialOnce())
		return p.current
	}
	p.current = types.AutoID(p.next())
	return p.current
}

// Renew commits a freshly generated identifier, bypassing the initial
// value. Used when the identity it derives from has changed.
func (p *Producer) Renew() types.ID {
	p.ancestor = p.current
	p.hasAdvanced = true
	p.current = types.AutoID(p.next())
	return p.current
}

// Restore makes a previously issued identifier current again without
// generating a new one (navigating back to an already tracked view).
func (p *Producer) Restore(id types.ID) {
	p.ancestor = p.current
	p.current = id
	p.hasAdvanced = true
}

// Ancestor returns the identifier that was current before the last
// Advance, Set or Restore.
func (p *Producer) Ancestor() types.ID {
	return p.ancestor
}

func (p *Producer) initialOnce() string {
	if p.initialValue == nil {
		v := p.initial()
		p.initialValue = &v
	}
	return *p.initialValue
}
