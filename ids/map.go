// Package ids derives and generates the identifiers stamped on log events.
//
// Derived identifiers (log-user ID from a user ID, content ID from a client
// ID) are deterministic: the same input always maps to the same UUID-shaped
// output. Fresh identifiers (session, view, impression, action) are random.
package ids

import (
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Map produces identifiers for the logging core.
type Map interface {
	// DeterministicID maps value to a stable UUID-shaped identifier.
	DeterministicID(value string) string
	// ContentID maps a host client ID to a stable content identifier.
	ContentID(clientID string) string

	// NewID returns a fresh random identifier.
	NewID() string
	// LogUserID returns a fresh log-user identifier.
	LogUserID() string
	// SessionID returns a fresh session identifier.
	SessionID() string
	// ViewID returns a fresh view identifier.
	ViewID() string
	// AutoViewID returns a fresh auto-view identifier.
	AutoViewID() string
	// ImpressionID returns a fresh impression identifier.
	ImpressionID() string
	// ActionID returns a fresh action identifier.
	ActionID() string
}

// domainKey keys the BLAKE3 hash used for derivation. Changing it changes
// every derived identifier. ASCII of the domain name, zero-padded.
var domainKey = [32]byte{
	'b', 'e', 'a', 'c', 'o', 'n', '.', 'i', 'd', 's', '.',
	'd', 'e', 't', 'e', 'r', 'm', 'i', 'n', 'i', 's', 't', 'i', 'c',
	0, 0, 0, 0, 0, 0, 0, 0,
}

// namespace is mixed into every derived UUID.
var namespace = uuid.MustParse("4f0c7b8a-1a9e-4c1d-9a51-3d2f6c8b0e17")

// DefaultMap derives identifiers with keyed BLAKE3 and generates fresh ones
// from a random source (uuid.New unless overridden).
type DefaultMap struct {
	source func() string
}

// NewMap returns a DefaultMap backed by random UUIDs.
func NewMap() *DefaultMap {
	return &DefaultMap{source: func() string { return uuid.New().String() }}
}

// NewMapWithSource returns a DefaultMap whose fresh identifiers come from
// source. Derivation is unaffected.
func NewMapWithSource(source func() string) *DefaultMap {
	return &DefaultMap{source: source}
}

// DeterministicID implements Map.
func (m *DefaultMap) DeterministicID(value string) string {
	h, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		// Only fails for a key of the wrong length.
		panic("ids: blake3 keyed hasher: " + err.Error())
	}
	// Version 8 marks the UUID as vendor-defined.
	return uuid.NewHash(h, namespace, []byte(value), 8).String()
}

// ContentID implements Map.
func (m *DefaultMap) ContentID(clientID string) string {
	return m.DeterministicID(clientID)
}

// NewID implements Map.
func (m *DefaultMap) NewID() string { return m.source() }

// LogUserID implements Map.
func (m *DefaultMap) LogUserID() string { return m.source() }

// SessionID implements Map.
func (m *DefaultMap) SessionID() string { return m.source() }

// ViewID implements Map.
func (m *DefaultMap) ViewID() string { return m.source() }

// AutoViewID implements Map.
func (m *DefaultMap) AutoViewID() string { return m.source() }

// ImpressionID implements Map.
func (m *DefaultMap) ImpressionID() string { return m.source() }

// ActionID implements Map.
func (m *DefaultMap) ActionID() string { return m.source() }

// Verify DefaultMap implements Map.
var _ Map = (*DefaultMap)(nil)
