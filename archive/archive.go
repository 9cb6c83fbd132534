// Package archive persists completed xray network batches into a lode
// dataset so they can be inspected after the process exits.
//
// Records are JSONL, Hive-partitioned by day and record_kind. Each batch
// produces one batch record plus one call record per profiled call.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/pithecene-io/beacon/xray"
)

// DefaultDataset is used when Config.Dataset is empty.
const DefaultDataset = "beacon_xray"

// partitionKeys is shared by the write and read paths.
var partitionKeys = []string{"day", "record_kind"}

// Config identifies the dataset.
type Config struct {
	Dataset string
	// Client is stamped on every record, typically "<platform>/<version>".
	Client string
}

// S3Config holds configuration for the S3 backend.
type S3Config struct {
	// Bucket is required.
	Bucket string
	Prefix string
	// Region is optional; the default AWS chain is used when empty.
	Region string
	// Endpoint overrides the S3 endpoint for compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path splits "bucket/prefix" into its parts.
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, prefix
}

// Archive writes xray batches to lode. Safe for concurrent use.
type Archive struct {
	dataset lode.Dataset
	config  Config

	mu      sync.Mutex
	written int
}

// NewFS creates an archive rooted at a local directory.
func NewFS(cfg Config, root string) (*Archive, error) {
	return NewWithFactory(cfg, lode.NewFSFactory(root))
}

// NewMemory creates an in-memory archive for tests and simulations.
func NewMemory(cfg Config) (*Archive, error) {
	return NewWithFactory(cfg, lode.NewMemoryFactory())
}

// NewS3 creates an archive backed by S3 using the default credential chain.
func NewS3(ctx context.Context, cfg Config, s3cfg S3Config) (*Archive, error) {
	factory, err := s3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewWithFactory(cfg, factory)
}

// NewWithFactory creates an archive over an arbitrary lode store factory.
func NewWithFactory(cfg Config, factory lode.StoreFactory) (*Archive, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Archive{dataset: ds, config: cfg}, nil
}

func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

func s3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}

// WriteBatch implements xray.Sink.
func (a *Archive) WriteBatch(ctx context.Context, batch *xray.NetworkBatch) error {
	if batch == nil {
		return nil
	}
	records := make([]any, 0, 1+len(batch.Calls))
	records = append(records, toBatchRecordMap(batch, a.config))
	for i := range batch.Calls {
		records = append(records, toCallRecordMap(batch, &batch.Calls[i], a.config))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, a.config.Dataset)
	}
	a.written++
	return nil
}

// Written returns how many batches were archived by this instance.
func (a *Archive) Written() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.written
}

// Close releases resources. The lode dataset holds none.
func (a *Archive) Close() error {
	return nil
}

// Verify Archive implements xray.Sink.
var _ xray.Sink = (*Archive)(nil)
