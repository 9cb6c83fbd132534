package config

import "time"

// Defaults and bounds.
const (
	DefaultFlushInterval = 10 * time.Second
	MinFlushInterval     = 1 * time.Second
	MaxFlushInterval     = 300 * time.Second

	DefaultVisibilityThreshold = 0.5

	DefaultScrollUpdateFrequency = 500 * time.Millisecond
	MinScrollUpdateFrequency     = 100 * time.Millisecond
	MaxScrollUpdateFrequency     = 30 * time.Second

	DefaultXrayMaxBatches = 10
	MaxXrayMaxBatches     = 100

	DefaultAncestorIDHistorySize = 10

	DefaultArchiveDataset = "beacon_xray"
)

// Default returns a normalized configuration with every default applied.
// Transport settings (URL, API key) must still be supplied.
func Default() *Client {
	c := &Client{}
	c.Normalize()
	return c
}

// Normalize fills defaults and clamps out-of-range values in place.
func (c *Client) Normalize() {
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.WireFormat == "" {
		c.WireFormat = "binary"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.XrayLevel == "" {
		c.XrayLevel = "none"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}
	if c.Archive.Backend != "" && c.Archive.Dataset == "" {
		c.Archive.Dataset = DefaultArchiveDataset
	}

	c.FlushInterval.Duration = clampDuration(c.FlushInterval.Duration,
		DefaultFlushInterval, MinFlushInterval, MaxFlushInterval)
	c.ScrollTrackerUpdateFrequency.Duration = clampDuration(c.ScrollTrackerUpdateFrequency.Duration,
		DefaultScrollUpdateFrequency, MinScrollUpdateFrequency, MaxScrollUpdateFrequency)

	threshold := DefaultVisibilityThreshold
	if c.ScrollTrackerVisibilityThreshold != nil {
		threshold = min(max(*c.ScrollTrackerVisibilityThreshold, 0), 1)
	}
	c.ScrollTrackerVisibilityThreshold = &threshold

	switch {
	case c.XrayMaxBatches <= 0:
		c.XrayMaxBatches = DefaultXrayMaxBatches
	case c.XrayMaxBatches > MaxXrayMaxBatches:
		c.XrayMaxBatches = MaxXrayMaxBatches
	}
	if c.AncestorIDHistorySize <= 0 {
		c.AncestorIDHistorySize = DefaultAncestorIDHistorySize
	}
}

// VisibilityThreshold returns the normalized threshold, or the default
// when unset.
func (c *Client) VisibilityThreshold() float64 {
	if c.ScrollTrackerVisibilityThreshold == nil {
		return DefaultVisibilityThreshold
	}
	return *c.ScrollTrackerVisibilityThreshold
}

// clampDuration returns def for zero, otherwise d bounded to [lo, hi].
func clampDuration(d, def, lo, hi time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return min(max(d, lo), hi)
}
