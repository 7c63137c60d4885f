package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/logfinder"
	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/internal/publish"
	"github.com/webzook/wintail/internal/tailer"
	"github.com/webzook/wintail/pkg/wintail"
)

var (
	// follow flags
	followFormat    string
	followInterval  time.Duration
	followWatchFile string
	followPublish   bool
)

var followCmd = &cobra.Command{
	Use:   "follow [source]",
	Short: "Poll a source repeatedly and output wins as they appear",
	Long: `Poll a source repeatedly and output new wins as they are appended.

By default the source is polled every follow.interval_seconds. When wintail
runs next to the game server, --watch-file polls as soon as the local
logfile grows instead.

Failed polls are reported on stderr and retried on the next tick from the
same offset; no win is lost.

Examples:
  # Follow the default source every 5 seconds
  wintail follow

  # Follow a configured source every 30 seconds
  wintail follow webzook --interval 30s

  # Poll whenever the local logfile grows
  wintail follow --watch-file /var/games/webzook-0.30.logfile

  # Also publish wins to NATS (nats.url must be configured)
  wintail follow --publish

  # Pipe to jq
  wintail follow | jq -r .name`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runFollow,
}

func init() {
	followCmd.Flags().StringVarP(&followFormat, "format", "f", formatAuto,
		"Output format: auto, jsonl, pretty")
	followCmd.Flags().DurationVar(&followInterval, "interval", 0,
		"Delay between polls (default follow.interval_seconds; 0 with --watch-file disables the timer)")
	followCmd.Flags().StringVar(&followWatchFile, "watch-file", "",
		"Local copy of the logfile; poll whenever it grows (default follow.watch_file)")
	followCmd.Flags().BoolVar(&followPublish, "publish", false,
		"Publish wins to NATS (requires nats.url)")
	registerFormatCompletion(followCmd, "format")
}

func runFollow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	format, err := resolveFormat(followFormat, out)
	if err != nil {
		return err
	}
	if followInterval < 0 {
		return fmt.Errorf("--interval must be non-negative, got %s", followInterval)
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
	log := a.logger.With(logging.Source(sourceID))

	interval := a.cfg.FollowInterval()
	if cmd.Flags().Changed("interval") {
		interval = followInterval
	}
	watchFile := a.cfg.Follow.WatchFile
	if followWatchFile != "" {
		watchFile = followWatchFile
	}

	followOpts := []wintail.FollowOption{
		wintail.WithInterval(interval),
		wintail.WithFollowLogger(log),
	}

	var triggerErrs <-chan error
	if watchFile != "" {
		watchFile, err = logfinder.Find(watchFile)
		if err != nil {
			return err
		}
		trig, err := tailer.New(ctx, watchFile, tailer.DefaultConfig())
		if err != nil {
			return fmt.Errorf("watch %s: %w", watchFile, err)
		}
		defer trig.Stop()
		followOpts = append(followOpts, wintail.WithTrigger(trig.C()))
		triggerErrs = trig.Errors()
		log.Info("watching local logfile", slog.String("path", watchFile))
	}

	var pub *publish.Publisher
	if followPublish {
		if a.cfg.NATS.URL == "" {
			return fmt.Errorf("--publish requires nats.url in the config")
		}
		pub, err = publish.Connect(publish.Config{
			URL:           a.cfg.NATS.URL,
			SubjectPrefix: a.cfg.NATS.SubjectPrefix,
		}, log)
		if err != nil {
			return err
		}
		defer pub.Close()
	}

	follower, err := wintail.NewFollower(a.tailer, sourceID, followOpts...)
	if err != nil {
		return err
	}
	defer follower.Close()

	wins, errs := follower.Watch(ctx)

	// Output loop
	for {
		select {
		case w, ok := <-wins:
			if !ok {
				return nil // Channel closed
			}
			if err := OutputEvent(format, w, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			if pub != nil {
				if err := pub.Publish(ctx, sourceID, []wintail.Record{w}); err != nil {
					log.Warn("publish failed", logging.Err(err))
				}
			}

		case err, ok := <-errs:
			if !ok {
				return nil // Channel closed
			}
			// Always report poll failures to stderr
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)

		case err, ok := <-triggerErrs:
			if !ok {
				triggerErrs = nil
				continue
			}
			log.Warn("watch-file error", logging.Err(err))

		case <-ctx.Done():
			return nil
		}
	}
}
