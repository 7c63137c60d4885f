package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/pkg/wintail"
)

var (
	// parse flags
	parseAll       bool
	parseLimit     int
	parseWinPrefix string
	parseFormat    string
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse local logfiles (batch mode)",
	Long: `Parse whole logfiles from disk and output their wins.

Unlike 'poll', this command reads files start to finish, never touches the
position store, and needs no network.

Examples:
  # All wins in a logfile
  wintail parse webzook-0.30.logfile

  # Every record, not only wins
  wintail parse --all webzook-0.30.logfile

  # First 10 wins, human-readable
  wintail parse --limit 10 --format pretty webzook-0.30.logfile

  # Pipe to jq for filtering
  wintail parse webzook-0.30.logfile | jq 'select(.race == "Spriggan")'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseAll, "all", false,
		"Output every record, not only wins")
	parseCmd.Flags().IntVar(&parseLimit, "limit", 0,
		"Stop after N records per file (0 = no limit)")
	parseCmd.Flags().StringVar(&parseWinPrefix, "win-prefix", wintail.WinPrefix,
		"tmsg prefix that marks a win")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", formatAuto,
		"Output format: auto, jsonl, pretty")
	registerFormatCompletion(parseCmd, "format")
}

func runParse(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	format, err := resolveFormat(parseFormat, out)
	if err != nil {
		return err
	}
	if parseLimit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", parseLimit)
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []wintail.ParseOption{
		wintail.WithParseAllRecords(parseAll),
		wintail.WithParseWinPrefix(parseWinPrefix),
		wintail.WithParseLimit(parseLimit),
	}

	for _, path := range args {
		for rec, err := range wintail.ParseFile(ctx, path, opts...) {
			if err != nil {
				// Ctrl+C: exit silently
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("parse error: %w", err)
			}

			if err := OutputEvent(format, rec, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}

	return nil
}
