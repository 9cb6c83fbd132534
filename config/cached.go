package config

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Blob is the store's cached-configuration slot.
type Blob interface {
	ClientConfig() []byte
	SetClientConfig(blob []byte) error
}

// SaveCached stores cfg as a CBOR blob.
func SaveCached(store Blob, cfg *Client) error {
	data, err := cbor.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode cached config")
	}
	return errors.Wrap(store.SetClientConfig(data), "save cached config")
}

// LoadCached returns the cached configuration, or nil when none is stored.
func LoadCached(store Blob) (*Client, error) {
	data := store.ClientConfig()
	if len(data) == 0 {
		return nil, nil
	}
	var cfg Client
	if err := cbor.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode cached config")
	}
	return &cfg, nil
}
