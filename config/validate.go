package config

import (
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/pithecene-io/beacon/log"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/wire"
	"github.com/pithecene-io/beacon/xray"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid client configuration")

// Validate checks the configuration and reports every problem found.
// Call Normalize first; Validate does not apply defaults.
func (c *Client) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportHTTP:
		if c.MetricsLoggingURL == "" {
			errs = append(errs, errors.New("metrics_logging_url is required for the http transport"))
		} else if err := checkURL(c.MetricsLoggingURL); err != nil {
			errs = append(errs, errors.Wrap(err, "metrics_logging_url"))
		}
		if c.APIKey == "" {
			errs = append(errs, errors.New("api_key is required for the http transport"))
		}
	case TransportRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required for the redis transport"))
		}
	default:
		errs = append(errs, errors.Errorf("unknown transport %q (want http or redis)", c.Transport))
	}

	if c.NetworkRetries != nil && *c.NetworkRetries < 0 {
		errs = append(errs, errors.Errorf("network_retries must be >= 0, got %d", *c.NetworkRetries))
	}
	if _, err := wire.ParseFormat(c.WireFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := wire.ParseCompression(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if _, err := xray.ParseLevel(c.XrayLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseClientType(c.ClientType); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseTrafficType(c.TrafficType); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file store"))
		}
	default:
		errs = append(errs, errors.Errorf("unknown store backend %q (want memory or file)", c.Store.Backend))
	}

	switch c.Archive.Backend {
	case "":
	case ArchiveFS:
		if c.Archive.Path == "" {
			errs = append(errs, errors.New("archive.path is required for the fs archive"))
		}
	case ArchiveS3:
		if c.Archive.Path == "" {
			errs = append(errs, errors.New("archive.path (bucket[/prefix]) is required for the s3 archive"))
		}
	default:
		errs = append(errs, errors.Errorf("unknown archive backend %q (want fs or s3)", c.Archive.Backend))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, multierror.Append(nil, errs...).ErrorOrNil())
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// ParseClientType parses a client type name. Empty means platform_client.
func ParseClientType(s string) (types.ClientType, error) {
	switch s {
	case "", "platform_client":
		return types.ClientTypePlatformClient, nil
	case "platform_server":
		return types.ClientTypePlatformServer, nil
	default:
		return types.ClientTypeUnknown, errors.Errorf("unknown client_type %q", s)
	}
}

// ParseTrafficType parses a traffic type name. Empty means production.
func ParseTrafficType(s string) (types.TrafficType, error) {
	switch s {
	case "", "production":
		return types.TrafficTypeProduction, nil
	case "replay":
		return types.TrafficTypeReplay, nil
	case "shadow":
		return types.TrafficTypeShadow, nil
	default:
		return types.TrafficTypeUnknown, errors.Errorf("unknown traffic_type %q", s)
	}
}
