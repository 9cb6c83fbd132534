package types

import "strings"

// Provenance records where an identifier value came from.
// It is carried through the pipeline and serialized into diagnostics.
type Provenance string

// Provenance values.
const (
	// ProvenanceNull means no value is present.
	ProvenanceNull Provenance = "null"
	// ProvenanceAutogenerated means the value was produced internally.
	ProvenanceAutogenerated Provenance = "autogenerated"
	// ProvenancePlatformSpecified means the embedding application supplied the value.
	ProvenancePlatformSpecified Provenance = "platform_specified"
	// ProvenanceEmpty means the value was explicitly supplied as blank.
	ProvenanceEmpty Provenance = "empty"
)

// ID is an identifier value tagged with its provenance.
// The zero value is a null ID.
type ID struct {
	// Value is the identifier string. Empty for null IDs.
	Value string `msgpack:"value,omitempty" json:"value,omitempty"`
	// Provenance is where Value came from.
	Provenance Provenance `msgpack:"provenance,omitempty" json:"provenance,omitempty"`
}

// NullID returns an absent identifier.
func NullID() ID {
	return ID{Provenance: ProvenanceNull}
}

// AutoID returns an internally generated identifier.
func AutoID(value string) ID {
	return ID{Value: value, Provenance: ProvenanceAutogenerated}
}

// PlatformID returns a host-supplied identifier.
// A blank value is recorded with ProvenanceEmpty.
func PlatformID(value string) ID {
	if strings.TrimSpace(value) == "" {
		return ID{Value: value, Provenance: ProvenanceEmpty}
	}
	return ID{Value: value, Provenance: ProvenancePlatformSpecified}
}

// IsNull reports whether the ID carries no value.
func (id ID) IsNull() bool {
	return id.Provenance == "" || id.Provenance == ProvenanceNull
}

// IsBlank reports whether the ID is null or whitespace-only.
func (id ID) IsBlank() bool {
	return id.IsNull() || strings.TrimSpace(id.Value) == ""
}

// Or returns id unless it is null, in which case fallback is returned.
func (id ID) Or(fallback ID) ID {
	if id.IsNull() {
		return fallback
	}
	return id
}

// String returns the raw value.
func (id ID) String() string {
	return id.Value
}

// IsBlankString reports whether s is empty or whitespace-only.
func IsBlankString(s string) bool {
	return strings.TrimSpace(s) == ""
}
