// Package wire serializes log requests for the network and optionally
// compresses them.
//
// The byte layout is an external contract; this package only guarantees
// which logical fields are populated (see the struct tags in types).
package wire

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the serialization.
type Format string

// Formats.
const (
	FormatBinary Format = "binary"
	FormatJSON   Format = "json"
)

// ParseFormat parses a format name. Empty means binary.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatBinary:
		return FormatBinary, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown wire format %q", s)
	}
}

// Codec marshals values to one format.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
	Format() Format
}

// NewCodec returns the codec for f.
func NewCodec(f Format) (Codec, error) {
	switch f {
	case FormatBinary, "":
		return msgpackCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", f)
	}
}

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal: %w", err)
	}
	return data, nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("msgpack unmarshal: %w", err)
	}
	return nil
}

func (msgpackCodec) ContentType() string { return "application/msgpack" }
func (msgpackCodec) Format() Format      { return FormatBinary }

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) ContentType() string { return "application/json" }
func (jsonCodec) Format() Format      { return FormatJSON }
