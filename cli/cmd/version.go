package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/beacon/cli/render"
	"github.com/pithecene-io/beacon/config"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/wire"
	"github.com/pithecene-io/beacon/xray"
)

// NameList renders as a comma-separated cell in tables and as an array
// in json and yaml.
type NameList []string

func (n NameList) String() string { return strings.Join(n, ", ") }

// VersionResponse describes the SDK build and what it can be configured
// with.
type VersionResponse struct {
	Version     string   `json:"version"`
	Commit      string   `json:"commit"`
	Go          string   `json:"go"`
	WireFormats NameList `json:"wire_formats"`
	Compression NameList `json:"compression"`
	Transports  NameList `json:"transports"`
	Stores      NameList `json:"stores"`
	Archives    NameList `json:"archives"`
	XrayLevels  NameList `json:"xray_levels"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show the SDK version and supported wire options",
		Flags:  withOutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := rejectTUI(c); err != nil {
			return err
		}
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		resp, err := Version(commit)
		if err != nil {
			return err
		}
		return r.Render(resp)
	}
}

// Version builds the version report.
func Version(commit string) (VersionResponse, error) {
	resp := VersionResponse{
		Version:     types.Version,
		Commit:      commit,
		Go:          runtime.Version(),
		Compression: NameList{string(wire.CompressionNone), string(wire.CompressionZstd)},
		Transports:  NameList{config.TransportHTTP, config.TransportRedis},
		Stores:      NameList{config.StoreMemory, config.StoreFile},
		Archives:    NameList{config.ArchiveFS, config.ArchiveS3},
	}
	for _, f := range []wire.Format{wire.FormatBinary, wire.FormatJSON} {
		enc, err := wire.NewEncoder(f, wire.CompressionNone)
		if err != nil {
			return VersionResponse{}, fmt.Errorf("wire format %s: %w", f, err)
		}
		resp.WireFormats = append(resp.WireFormats, fmt.Sprintf("%s (%s)", f, enc.ContentType()))
	}
	for l := xray.LevelNone; l <= xray.LevelCallDetailsAndStackTraces; l++ {
		resp.XrayLevels = append(resp.XrayLevels, l.String())
	}
	return resp, nil
}
