package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/pkg/wintail"
)

var (
	// poll flags
	pollFormat string
	pollLimit  int
)

var pollCmd = &cobra.Command{
	Use:   "poll [source]",
	Short: "Fetch new wins once and exit",
	Long: `Poll a source once: fetch the bytes appended since the last poll,
output the wins found in them, and store the new offset.

The source is a configured source ID, an ID with a WINTAIL_SOURCE_<ID>
environment override, or an http(s) URL. Without an argument the
"default" source (http://localhost:8008/) is polled.

The first poll of a source starts fetch.window_bytes before the end of the
log instead of reading its whole history.

Examples:
  # Poll the default source
  wintail poll

  # Poll a configured source, human-readable
  wintail poll webzook --format pretty

  # Poll a URL directly
  wintail poll http://logs.example:8008/webzook-0.30.logfile`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runPoll,
}

func init() {
	pollCmd.Flags().StringVarP(&pollFormat, "format", "f", formatAuto,
		"Output format: auto, jsonl, pretty")
	pollCmd.Flags().IntVar(&pollLimit, "limit", 0,
		"Output at most N wins (0 = all; the offset still covers all of them)")
	registerFormatCompletion(pollCmd, "format")
}

func runPoll(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	format, err := resolveFormat(pollFormat, out)
	if err != nil {
		return err
	}
	if pollLimit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", pollLimit)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sourceID := a.defaultSource(args)
	res, err := a.tailer.PollResult(ctx, sourceID)
	if err != nil {
		if wintail.StaleOffset(err) {
			return fmt.Errorf("%w\nthe log is shorter than the stored offset; run 'wintail offset reset %s' to start over", err, sourceID)
		}
		return err
	}

	a.logger.Debug("poll done",
		logging.Source(sourceID),
		slog.Int64("from", res.From),
		slog.Int64("to", res.To),
		slog.Int("records", res.Records),
		slog.Int("wins", len(res.Wins)))

	wins := res.Wins
	if pollLimit > 0 && len(wins) > pollLimit {
		wins = wins[:pollLimit]
	}
	for _, w := range wins {
		if err := OutputEvent(format, w, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}
