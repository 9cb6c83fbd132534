package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/cli/render"
	"github.com/pithecene-io/beacon/client"
	"github.com/pithecene-io/beacon/clock"
	"github.com/pithecene-io/beacon/config"
	"github.com/pithecene-io/beacon/loop"
	"github.com/pithecene-io/beacon/metrics"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/wire"
)

// Placeholder endpoint used when no config file is given. Nothing is
// sent: the simulation captures requests in memory.
const (
	simulateURL    = "https://metrics.invalid/log"
	simulateAPIKey = "simulate"
)

var errSimulatedSendFailure = errors.New("simulated send failure")

// SimulateOptions scripts a simulated session.
type SimulateOptions struct {
	UserID      string
	Impressions int
	Actions     int
	// Fail makes every send report an error.
	Fail bool
	// Archive overrides the configured xray archive with a local directory.
	Archive string
	Start   time.Time
	// LogOutput receives structured logs; nil discards them.
	LogOutput io.Writer
}

// SimulatedBatch is one captured request, decoded.
type SimulatedBatch struct {
	BatchNumber int               `json:"batch_number"`
	ContentType string            `json:"content_type"`
	Encoding    string            `json:"content_encoding,omitempty"`
	Bytes       int               `json:"bytes"`
	Messages    int               `json:"messages"`
	LogUserID   string            `json:"log_user_id"`
	Request     *types.LogRequest `json:"request"`
}

// SimulationResult is the output of Simulate.
type SimulationResult struct {
	Batches []SimulatedBatch `json:"batches"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// SimulateCommand returns the simulate command.
func SimulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run a scripted session against a capturing connection and show the requests",
		Flags: withOutputFlags(
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to client config file (YAML)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Platform user ID for the session",
				Value: "simulated-user",
			},
			&cli.IntFlag{
				Name:  "impressions",
				Usage: "Impressions to log",
				Value: 3,
			},
			&cli.IntFlag{
				Name:  "actions",
				Usage: "Add-to-cart actions to log",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "fail",
				Usage: "Fail every send",
			},
			archiveFlag("Write xray batches to this directory", false),
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Write client logs to stderr",
			},
		),
		Action: simulateAction,
	}
}

func simulateAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg := &config.Client{MetricsLoggingURL: simulateURL, APIKey: simulateAPIKey}
	if path := c.String("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	opts := SimulateOptions{
		UserID:      c.String("user"),
		Impressions: c.Int("impressions"),
		Actions:     c.Int("actions"),
		Fail:        c.Bool("fail"),
		Archive:     c.String("archive"),
		Start:       time.Now(),
	}
	if c.Bool("verbose") {
		opts.LogOutput = os.Stderr
	}

	res, err := Simulate(c.Context, cfg, opts)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if r.Format() == render.FormatTable {
		return r.Render(summarizeBatches(res.Batches))
	}
	return r.Render(res)
}

// Simulate runs the scripted session: a signed-in session start, a view,
// impressions spaced on a fake clock, add-to-cart actions, a timer flush
// and a purchase flushed by Close.
func Simulate(ctx context.Context, cfg *config.Client, opts SimulateOptions) (*SimulationResult, error) {
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}
	if opts.Archive != "" {
		cfg.Archive = config.ArchiveConfig{Backend: config.ArchiveFS, Path: opts.Archive}
		if cfg.XrayLevel == "" || cfg.XrayLevel == "none" {
			cfg.XrayLevel = "call_details"
		}
	}

	clk := clock.NewFake(opts.Start)
	conn := &adapter.Stub{}
	if opts.Fail {
		conn.Result = func(*adapter.Request) ([]byte, error) {
			return nil, errSimulatedSendFailure
		}
	}

	c, err := client.New(cfg, client.Deps{
		Clock:      clk,
		Loop:       loop.Immediate{},
		Connection: conn,
		LogOutput:  opts.LogOutput,
	})
	if err != nil {
		return nil, err
	}

	c.StartSession(opts.UserID)
	c.LogView(metrics.ViewEvent{Name: "home", UseCase: types.UseCaseFeed})
	for i := range opts.Impressions {
		c.LogImpression(metrics.ImpressionEvent{
			ContentID:   contentID(i),
			InsertionID: insertionID(i),
			SourceType:  types.ImpressionSourceDelivery,
		})
		clk.Advance(250 * time.Millisecond)
	}
	for i := range opts.Actions {
		c.LogAddToCartAction(contentID(i), insertionID(i))
	}
	clk.Advance(c.Config.FlushInterval.Duration)

	c.LogPurchaseAction(contentID(0), insertionID(0))
	if err := c.Close(ctx); err != nil {
		return nil, fmt.Errorf("close client: %w", err)
	}

	enc, err := newEncoder(c.Config)
	if err != nil {
		return nil, err
	}
	res := &SimulationResult{Metrics: c.Collector.Snapshot()}
	for _, req := range conn.Requests() {
		decoded, err := enc.DecodeRequest(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode batch %d: %w", req.BatchNumber, err)
		}
		res.Batches = append(res.Batches, SimulatedBatch{
			BatchNumber: req.BatchNumber,
			ContentType: req.ContentType,
			Encoding:    req.ContentEncoding,
			Bytes:       len(req.Payload),
			Messages:    req.MessageCount,
			LogUserID:   decoded.UserInfo.LogUserID,
			Request:     decoded,
		})
	}
	return res, nil
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

func contentID(i int) string   { return fmt.Sprintf("content-%d", i) }
func insertionID(i int) string { return fmt.Sprintf("insertion-%d", i) }

// batchRow is the table form of a simulated batch.
type batchRow struct {
	BatchNumber int    `json:"batch"`
	Bytes       int    `json:"bytes"`
	Users       int    `json:"users"`
	Views       int    `json:"views"`
	Impressions int    `json:"impressions"`
	Actions     int    `json:"actions"`
	LogUserID   string `json:"log_user_id"`
}

func summarizeBatches(batches []SimulatedBatch) []batchRow {
	rows := make([]batchRow, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, batchRow{
			BatchNumber: b.BatchNumber,
			Bytes:       b.Bytes,
			Users:       len(b.Request.Users),
			Views:       len(b.Request.Views),
			Impressions: len(b.Request.Impressions),
			Actions:     len(b.Request.Actions),
			LogUserID:   b.LogUserID,
		})
	}
	return rows
}
