// Package config loads and validates the client configuration.
//
// Values come from a YAML file with ${VAR} / ${VAR:-default} environment
// expansion. Normalize applies defaults and clamps; Validate reports every
// problem at once and is fatal to client construction.
package config

import (
	"fmt"
	"time"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportRedis = "redis"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Archive backends. Empty disables archiving.
const (
	ArchiveFS = "fs"
	ArchiveS3 = "s3"
)

// Client is the client configuration.
type Client struct {
	// Transport selects the network connection: http (default) or redis.
	Transport string `yaml:"transport"`

	// MetricsLoggingURL is the metrics endpoint for the http transport.
	MetricsLoggingURL string `yaml:"metrics_logging_url"`
	// APIKey authenticates requests on the http transport.
	APIKey string `yaml:"api_key"`
	// APIKeyHeader overrides the API key header name.
	APIKeyHeader string            `yaml:"api_key_header,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`

	// RedisURL and RedisChannel configure the redis transport.
	RedisURL     string `yaml:"redis_url,omitempty"`
	RedisChannel string `yaml:"redis_channel,omitempty"`

	NetworkTimeout Duration `yaml:"network_timeout,omitempty"`
	NetworkRetries *int     `yaml:"network_retries,omitempty"`

	// WireFormat is binary (default) or json.
	WireFormat string `yaml:"wire_format"`
	// Compression is none (default) or zstd.
	Compression string `yaml:"compression"`

	FlushInterval Duration `yaml:"flush_interval"`

	// ScrollTrackerVisibilityThreshold is a pointer so an explicit 0 is
	// distinguishable from unset.
	ScrollTrackerVisibilityThreshold *float64 `yaml:"scroll_tracker_visibility_threshold,omitempty"`
	ScrollTrackerUpdateFrequency     Duration `yaml:"scroll_tracker_update_frequency,omitempty"`

	XrayLevel      string `yaml:"xray_level"`
	XrayMaxBatches int    `yaml:"xray_max_batches,omitempty"`

	DiagnosticsIncludeBatchSummaries    bool `yaml:"diagnostics_include_batch_summaries"`
	DiagnosticsIncludeAncestorIDHistory bool `yaml:"diagnostics_include_ancestor_id_history"`
	AncestorIDHistorySize               int  `yaml:"ancestor_id_history_size,omitempty"`
	// AncestorIDProvenances attaches ID provenance metadata to messages.
	AncestorIDProvenances bool `yaml:"ancestor_id_provenances"`

	LogLevel string `yaml:"log_level"`

	// Platform and ClientType label log output and client info.
	Platform    string `yaml:"platform,omitempty"`
	ClientType  string `yaml:"client_type,omitempty"`
	TrafficType string `yaml:"traffic_type,omitempty"`

	// UseCachedConfig replaces this configuration with the blob cached in
	// the store, when one is present.
	UseCachedConfig bool `yaml:"use_cached_config"`

	Store   StoreConfig   `yaml:"store"`
	Archive ArchiveConfig `yaml:"archive"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// ArchiveConfig configures the xray batch archive.
type ArchiveConfig struct {
	Backend     string `yaml:"backend"`
	Dataset     string `yaml:"dataset,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Region      string `yaml:"region,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	S3PathStyle bool   `yaml:"s3_path_style,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}
