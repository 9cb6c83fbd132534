package wire

import (
	"fmt"

	"github.com/pithecene-io/beacon/types"
)

// Encoder bundles a codec with a compression.
type Encoder struct {
	codec       Codec
	compression Compression
}

// NewEncoder creates an encoder.
func NewEncoder(f Format, c Compression) (*Encoder, error) {
	codec, err := NewCodec(f)
	if err != nil {
		return nil, err
	}
	if _, err := ParseCompression(string(c)); err != nil {
		return nil, err
	}
	if c == "" {
		c = CompressionNone
	}
	return &Encoder{codec: codec, compression: c}, nil
}

// Codec returns the underlying codec.
func (e *Encoder) Codec() Codec { return e.codec }

// ContentType returns the MIME type of encoded payloads.
func (e *Encoder) ContentType() string { return e.codec.ContentType() }

// ContentEncoding returns the HTTP content encoding, or "" when
// uncompressed.
func (e *Encoder) ContentEncoding() string {
	if e.compression == CompressionNone {
		return ""
	}
	return string(e.compression)
}

// Compression returns the configured compression.
func (e *Encoder) Compression() Compression { return e.compression }

// EncodeRequest serializes and compresses req. Returns the payload and its
// uncompressed size.
func (e *Encoder) EncodeRequest(req *types.LogRequest) ([]byte, int, error) {
	raw, err := e.codec.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("encode log request: %w", err)
	}
	payload, err := Compress(raw, e.compression)
	if err != nil {
		return nil, 0, fmt.Errorf("encode log request: %w", err)
	}
	return payload, len(raw), nil
}

// DecodeRequest reverses EncodeRequest.
func (e *Encoder) DecodeRequest(payload []byte) (*types.LogRequest, error) {
	raw, err := Decompress(payload, e.compression)
	if err != nil {
		return nil, fmt.Errorf("decode log request: %w", err)
	}
	var req types.LogRequest
	if err := e.codec.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode log request: %w", err)
	}
	return &req, nil
}

// EncodeProperties serializes host-supplied properties. nil yields nil.
func (e *Encoder) EncodeProperties(props any) ([]byte, error) {
	if props == nil {
		return nil, nil
	}
	data, err := e.codec.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return data, nil
}
