// Package client is the composition root. It turns a validated
// configuration into a ready metrics.Logger with every collaborator wired.
//
// Unless the host supplies Deps.Loop, the client owns a loop.Serial and
// every Logger call must go through Client.Do.
package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/adapter/redis"
	"github.com/pithecene-io/beacon/adapter/webhook"
	"github.com/pithecene-io/beacon/archive"
	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/config"
	"github.com/pithecene-io/beacon/ids"
	"github.com/pithecene-io/beacon/log"
	"github.com/pithecene-io/beacon/loop"
	"github.com/pithecene-io/beacon/metrics"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/store"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/viewtracker"
	"github.com/pithecene-io/beacon/wire"
	"github.com/pithecene-io/beacon/xray"
)

// Deps are host-provided collaborators. Every field is optional.
type Deps struct {
	Clock clock.Clock
	// Loop is the host's execution context. Defaults to a loop.Serial
	// owned by the client.
	Loop        loop.Loop
	IDs         ids.Map
	StackSource viewtracker.StackSource
	Device      func() *types.Device

	// Store overrides the configured store backend.
	Store store.Store
	// Connection overrides the configured transport.
	Connection adapter.Connection
	// Archive overrides the configured xray archive.
	Archive xray.Sink
	// LogOutput redirects structured logs (default stderr).
	LogOutput io.Writer
}

// Client bundles the logger with the optional diagnostics it was built with.
type Client struct {
	*metrics.Logger

	Config    *config.Client
	Xray      *xray.Xray
	Collector *metrics.Collector
	Store     store.Store

	// serial is nil when the host supplied the loop.
	serial *loop.Serial
}

// New validates cfg and builds a Client. Configuration errors are fatal.
func New(cfg *config.Client, deps Deps) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := deps.Store
	if st == nil {
		var err error
		if st, err = openStore(cfg.Store); err != nil {
			return nil, err
		}
	}

	cfg, cachedErr := applyCached(cfg, st)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger(log.ClientMeta{
		SDKVersion: types.Version,
		Platform:   cfg.Platform,
		ClientType: cfg.ClientType,
	}, level)
	if deps.LogOutput != nil {
		logger = logger.WithOutput(deps.LogOutput)
	}
	if cachedErr != nil {
		logger.Warn("cached config ignored", map[string]any{"error": cachedErr.Error()})
	}

	enc, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}

	conn := deps.Connection
	if conn == nil {
		if conn, err = newConnection(cfg); err != nil {
			return nil, err
		}
	}

	clientType, _ := config.ParseClientType(cfg.ClientType)
	trafficType, _ := config.ParseTrafficType(cfg.TrafficType)

	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}

	mon := monitor.New()
	collector := metrics.NewCollector(cfg.Platform, cfg.Transport)

	x, err := newXray(cfg, deps, clk, logger)
	if err != nil {
		return nil, err
	}
	if x != nil {
		mon.AddListener(x)
	}

	threshold := cfg.VisibilityThreshold()
	lp := deps.Loop
	var serial *loop.Serial
	if lp == nil {
		serial = loop.NewSerial()
		lp = serial
	}
	l, err := metrics.New(metrics.Config{
		Connection:    conn,
		Encoder:       enc,
		Store:         st,
		Clock:         clk,
		Loop:          lp,
		IDs:           deps.IDs,
		Monitor:       mon,
		Logger:        logger,
		Xray:          x,
		FlushInterval: cfg.FlushInterval.Duration,
		ClientInfo: types.ClientInfo{
			ClientType:  clientType,
			TrafficType: trafficType,
		},
		Device:                deps.Device,
		StackSource:           deps.StackSource,
		VisibilityThreshold:   &threshold,
		ScrollUpdateFrequency: cfg.ScrollTrackerUpdateFrequency.Duration,
		Diagnostics: metrics.DiagnosticsConfig{
			IncludeBatchSummaries:       cfg.DiagnosticsIncludeBatchSummaries,
			IncludeAncestorIDHistory:    cfg.DiagnosticsIncludeAncestorIDHistory,
			AncestorIDHistorySize:       cfg.AncestorIDHistorySize,
			IncludeAncestorIDProvenance: cfg.AncestorIDProvenances,
		},
	})
	if err != nil {
		if serial != nil {
			serial.Stop()
		}
		return nil, err
	}
	l.SetCollector(collector)

	if err := config.SaveCached(st, cfg); err != nil {
		logger.Warn("cached config not saved", map[string]any{"error": err.Error()})
	}

	return &Client{
		Logger:    l,
		Config:    cfg,
		Xray:      x,
		Collector: collector,
		Store:     st,
		serial:    serial,
	}, nil
}

// Do runs fn on the client's loop and waits for it to return. With a
// host-supplied loop, fn runs inline and the caller must already be on it.
func (c *Client) Do(fn func()) error {
	if c.serial == nil {
		fn()
		return nil
	}
	return c.serial.Do(fn)
}

// Close flushes and closes the logger on its loop, then stops the loop the
// client owns.
func (c *Client) Close(ctx context.Context) error {
	var err error
	if derr := c.Do(func() { err = c.Logger.Close(ctx) }); derr != nil {
		return derr
	}
	if c.serial != nil {
		c.serial.Stop()
	}
	return err
}

func openStore(c config.StoreConfig) (store.Store, error) {
	switch c.Backend {
	case config.StoreFile:
		return store.OpenFile(c.Path)
	default:
		return store.NewMemory(), nil
	}
}

// applyCached swaps in the cached configuration when enabled and valid.
// The store section always comes from the local configuration.
func applyCached(cfg *config.Client, st store.Store) (*config.Client, error) {
	if !cfg.UseCachedConfig {
		return cfg, nil
	}
	cached, err := config.LoadCached(st)
	if err != nil || cached == nil {
		return cfg, err
	}
	cached.Store = cfg.Store
	cached.UseCachedConfig = true
	cached.Normalize()
	if err := cached.Validate(); err != nil {
		return cfg, err
	}
	return cached, nil
}

func newEncoder(cfg *config.Client) (*wire.Encoder, error) {
	format, err := wire.ParseFormat(cfg.WireFormat)
	if err != nil {
		return nil, err
	}
	compression, err := wire.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return wire.NewEncoder(format, compression)
}

func newConnection(cfg *config.Client) (adapter.Connection, error) {
	retries := 2
	if cfg.NetworkRetries != nil {
		retries = *cfg.NetworkRetries
	}
	switch cfg.Transport {
	case config.TransportRedis:
		return redis.New(redis.Config{
			URL:     cfg.RedisURL,
			Channel: cfg.RedisChannel,
			Timeout: cfg.NetworkTimeout.Duration,
			Retries: retries,
		})
	default:
		return webhook.New(webhook.Config{
			URL:          cfg.MetricsLoggingURL,
			APIKey:       cfg.APIKey,
			APIKeyHeader: cfg.APIKeyHeader,
			Headers:      cfg.Headers,
			Timeout:      cfg.NetworkTimeout.Duration,
			Retries:      retries,
		})
	}
}

func newXray(cfg *config.Client, deps Deps, clk clock.Clock, logger *log.Logger) (*xray.Xray, error) {
	level, err := xray.ParseLevel(cfg.XrayLevel)
	if err != nil {
		return nil, err
	}
	if level == xray.LevelNone {
		return nil, nil
	}
	sink := deps.Archive
	if sink == nil {
		if sink, err = openArchive(cfg); err != nil {
			return nil, err
		}
	}
	return xray.New(xray.Config{
		Level:      level,
		MaxBatches: cfg.XrayMaxBatches,
		Clock:      clk,
		Sink:       sink,
		Logger:     logger,
	}), nil
}

// openArchive returns nil when archiving is disabled.
func openArchive(cfg *config.Client) (xray.Sink, error) {
	acfg := archive.Config{
		Dataset: cfg.Archive.Dataset,
		Client:  fmt.Sprintf("%s/%s", cfg.Platform, types.Version),
	}
	switch cfg.Archive.Backend {
	case config.ArchiveFS:
		if err := os.MkdirAll(cfg.Archive.Path, 0o755); err != nil {
			return nil, archive.WrapInitError(err, cfg.Archive.Path)
		}
		return archive.NewFS(acfg, cfg.Archive.Path)
	case config.ArchiveS3:
		bucket, prefix := archive.ParseS3Path(cfg.Archive.Path)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return archive.NewS3(ctx, acfg, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.S3PathStyle,
		})
	default:
		return nil, nil
	}
}
