// Package cmd provides CLI commands for the beacon binary.
package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Output flags shared by every command.
var (
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml (default: table on a terminal, json otherwise)",
	}

	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored outcome cells",
	}

	// TUIFlag is accepted everywhere so commands without a view can reject
	// it with a clear message.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Browse results interactively (xray only)",
	}
)

// OutputFlags returns the shared output flags.
func OutputFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, NoColorFlag, TUIFlag}
}

// withOutputFlags appends the shared output flags to a command's own.
func withOutputFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, OutputFlags()...)
}

// archiveFlag points at an fs xray archive root.
func archiveFlag(usage string, required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "archive",
		Aliases:  []string{"a"},
		Usage:    usage,
		Required: required,
	}
}

// rejectTUI fails commands that have no interactive view.
func rejectTUI(c *cli.Context) error {
	if !c.Bool("tui") {
		return nil
	}
	return cli.Exit(fmt.Sprintf("--tui is not supported for %s command", c.Command.Name), 1)
}
