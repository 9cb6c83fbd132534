package ids

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/pithecene-io/beacon/types"
)

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestDeterministicID_StableAndUUIDShaped(t *testing.T) {
	m := NewMap()

	a1 := m.DeterministicID("user-a")
	a2 := m.DeterministicID("user-a")
	b := m.DeterministicID("user-b")

	if a1 != a2 {
		t.Errorf("DeterministicID not stable: %q != %q", a1, a2)
	}
	if a1 == b {
		t.Errorf("DeterministicID collided for distinct inputs: %q", a1)
	}
	parsed, err := uuid.Parse(a1)
	if err != nil {
		t.Fatalf("DeterministicID %q is not a UUID: %v", a1, err)
	}
	if parsed.Version() != 8 {
		t.Errorf("Version() = %d, want 8", parsed.Version())
	}
	if m.ContentID("user-a") != a1 {
		t.Error("ContentID should use deterministic derivation")
	}
}

func TestNewMap_FreshIDsDiffer(t *testing.T) {
	m := NewMap()
	seen := map[string]bool{}
	for _, id := range []string{m.SessionID(), m.ViewID(), m.ImpressionID(), m.ActionID(), m.AutoViewID(), m.LogUserID(), m.NewID()} {
		if seen[id] {
			t.Fatalf("duplicate fresh id %q", id)
		}
		seen[id] = true
	}
}

func TestNewMapWithSource_UsesSource(t *testing.T) {
	m := NewMapWithSource(sequence("id"))
	if got := m.SessionID(); got != "id-1" {
		t.Errorf("SessionID() = %q, want id-1", got)
	}
	if got := m.ViewID(); got != "id-2" {
		t.Errorf("ViewID() = %q, want id-2", got)
	}
}

func TestProducer_FirstAdvanceYieldsInitial(t *testing.T) {
	p := NewProducer(func() string { return "X" }, sequence("fresh"))

	first := p.Advance()
	if first.Value != "X" {
		t.Fatalf("first Advance() = %q, want X", first.Value)
	}
	second := p.Advance()
	if second.Value == "X" {
		t.Fatal("second Advance() returned the initial value")
	}
	if second.Value != "fresh-1" {
		t.Errorf("second Advance() = %q, want fresh-1", second.Value)
	}
	if p.Ancestor().Value != "X" {
		t.Errorf("Ancestor() = %q, want X", p.Ancestor().Value)
	}
}

func TestProducer_ValueCommitsInitialLazily(t *testing.T) {
	calls := 0
	p := NewProducer(func() string { calls++; return "init" }, sequence("fresh"))

	if !p.Current().IsNull() {
		t.Fatal("Current() should be null before any access")
	}
	if got := p.CurrentOrPending(); got.Value != "init" {
		t.Errorf("CurrentOrPending() = %q, want init", got.Value)
	}
	if !p.Current().IsNull() {
		t.Error("CurrentOrPending() must not commit")
	}
	if got := p.Value(); got.Value != "init" || got.Provenance != types.ProvenanceAutogenerated {
		t.Errorf("Value() = %+v, want autogenerated init", got)
	}
	if p.Current().Value != "init" {
		t.Error("Value() should commit the initial value")
	}
	// Continuity: the first Advance still yields the initial value.
	if got := p.Advance(); got.Value != "init" {
		t.Errorf("Advance() after Value() = %q, want init", got.Value)
	}
	if calls != 1 {
		t.Errorf("initial evaluated %d times, want 1", calls)
	}
}

func TestProducer_SetIsPlatformSpecifiedAndCommitted(t *testing.T) {
	p := NewProducer(func() string { return "init" }, sequence("fresh"))
	p.Set("host-value")

	got := p.Current()
	if got.Value != "host-value" || got.Provenance != types.ProvenancePlatformSpecified {
		t.Errorf("Current() = %+v, want platform host-value", got)
	}
	if next := p.Advance(); next.Value != "fresh-1" {
		t.Errorf("Advance() after Set = %q, want fresh-1", next.Value)
	}

	p.Set("")
	if p.Current().Provenance != types.ProvenanceEmpty {
		t.Errorf("Set(\"\") provenance = %q, want empty", p.Current().Provenance)
	}
}

func TestProducer_Restore(t *testing.T) {
	p := NewProducer(func() string { return "v1" }, sequence("v"))
	v1 := p.Advance()
	p.Advance()

	p.Restore(v1)
	if p.Current() != v1 {
		t.Errorf("Current() = %+v, want %+v", p.Current(), v1)
	}
}

func TestProducer_RenewSkipsInitial(t *testing.T) {
	p := NewProducer(func() string { return "persisted" }, sequence("fresh"))

	if got := p.Renew(); got.Value != "fresh-1" {
		t.Errorf("Renew() = %q, want fresh-1", got.Value)
	}
	if got := p.Advance(); got.Value != "fresh-2" {
		t.Errorf("Advance() after Renew = %q, want fresh-2", got.Value)
	}
}
