package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/server"
	"github.com/webzook/wintail/internal/source"
)

var (
	// serve flags
	serveAddr    string
	serveMaxWins int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve new wins over HTTP",
	Long: `Run an HTTP server that polls on demand.

Every GET /wins polls the requested source (?source=ID, default "default")
and returns the new wins as a JSON array. Concurrent requests for the same
source are serialized so each win is returned once. A failed poll answers
500 "Failed to fetch logfiles, come back later." and loses nothing.

Only configured sources and WINTAIL_SOURCE_<ID> overrides can be polled;
URLs are not accepted as source IDs here. A source that does not resolve
answers 404 instead of 500, so a typo is distinguishable from an outage.

Endpoints:
  GET /wins[?source=ID][&limit=N]
  GET /healthz
  GET /metrics   (Prometheus)

Examples:
  wintail serve --addr :8080
  curl 'http://localhost:8080/wins?source=webzook'`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (default server.addr)")
	serveCmd.Flags().IntVar(&serveMaxWins, "max-wins", -1,
		"Cap wins per response, 0 = all (default server.max_wins)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote clients may only name configured or env-mapped sources.
	a, err := openApp(ctx, source.WithURLIDs(false))
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	maxWins := a.cfg.Server.MaxWins
	if serveMaxWins >= 0 {
		maxWins = serveMaxWins
	}

	srv := server.New(a.tailer, server.Options{
		DefaultSource: a.defaultSource(nil),
		MaxWins:       maxWins,
		Sources:       a.resolver,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	return server.ListenAndServe(ctx, addr, srv.Handler(), a.logger)
}
