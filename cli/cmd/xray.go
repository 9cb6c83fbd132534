package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/beacon/archive"
	"github.com/pithecene-io/beacon/cli/render"
	"github.com/pithecene-io/beacon/cli/tui"
	"github.com/pithecene-io/beacon/config"
	"github.com/pithecene-io/beacon/xray"
)

// XrayCommand returns the xray command, which reads archived batches.
func XrayCommand() *cli.Command {
	return &cli.Command{
		Name:  "xray",
		Usage: "Show archived xray batches",
		Flags: withOutputFlags(
			archiveFlag("Archive root directory", true),
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "Archive dataset name",
				Value: config.DefaultArchiveDataset,
			},
			&cli.StringFlag{
				Name:  "day",
				Usage: "Only batches from this UTC day (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Only batches with this outcome: success, error, pending",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Only the most recent N batches",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Show totals instead of individual batches",
			},
		),
		Action: xrayAction,
	}
}

// BatchRow is the table form of an archived batch.
type BatchRow struct {
	BatchNumber int           `json:"batch"`
	ID          string        `json:"id"`
	Start       time.Time     `json:"start"`
	Outcome     string        `json:"outcome"`
	Messages    int           `json:"messages"`
	Bytes       int           `json:"bytes"`
	Calls       int           `json:"calls"`
	Errors      int           `json:"errors"`
	Latency     time.Duration `json:"latency"`
}

func xrayAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	batches, err := ReadArchive(c.Context, c.String("archive"), c.String("dataset"), archive.Query{
		Day:     c.String("day"),
		Outcome: c.String("outcome"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("summary") {
		totals := xray.Summarize(batches)
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewXraySummary, totals)
		}
		return r.Render(totals)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewXrayBatches, batches)
	}
	if r.Format() == render.FormatTable {
		return r.Render(BatchRows(batches))
	}
	return r.Render(batches)
}

// ReadArchive opens a filesystem archive and reads the matching batches.
// An archive with no matching batches yields an empty slice.
func ReadArchive(ctx context.Context, root, dataset string, q archive.Query) ([]*xray.NetworkBatch, error) {
	a, err := archive.NewFS(archive.Config{Dataset: dataset}, root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	batches, err := a.ReadBatches(ctx, q)
	if errors.Is(err, archive.ErrNoBatches) {
		return []*xray.NetworkBatch{}, nil
	}
	return batches, err
}

// BatchRows flattens batches for table output.
func BatchRows(batches []*xray.NetworkBatch) []BatchRow {
	rows := make([]BatchRow, 0, len(batches))
	for _, b := range batches {
		errs := len(b.Errors)
		for i := range b.Calls {
			errs += len(b.Calls[i].Errors)
		}
		rows = append(rows, BatchRow{
			BatchNumber: b.BatchNumber,
			ID:          b.ID,
			Start:       b.Start,
			Outcome:     b.Outcome,
			Messages:    b.MessageCount,
			Bytes:       b.Bytes,
			Calls:       len(b.Calls),
			Errors:      errs,
			Latency:     b.Latency(),
		})
	}
	return rows
}
