package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/logfinder"
	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/internal/logserver"
	"github.com/webzook/wintail/internal/server"
)

var (
	// serve-log flags
	serveLogAddr string
	serveLogFile string
)

var serveLogCmd = &cobra.Command{
	Use:   "serve-log",
	Short: "Expose a local logfile as a byte-range HTTP resource",
	Long: `Serve a local logfile the way wintail expects its upstream to behave:
HEAD reports Content-Length and GET honors single byte ranges.

Run this next to the game server so remote wintail instances can poll it.

Examples:
  wintail serve-log --file /var/games/webzook-0.30.logfile --addr :8008`,
	Args: cobra.NoArgs,
	RunE: runServeLog,
}

func init() {
	serveLogCmd.Flags().StringVar(&serveLogAddr, "addr", "",
		"Listen address (default log_server.addr)")
	serveLogCmd.Flags().StringVar(&serveLogFile, "file", "",
		"Logfile to serve, or a directory to serve its newest logfile (default log_server.file)")
}

func runServeLog(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	addr := cfg.LogServer.Addr
	if serveLogAddr != "" {
		addr = serveLogAddr
	}
	file := cfg.LogServer.File
	if serveLogFile != "" {
		file = serveLogFile
	}
	file, err = logfinder.Find(file)
	if errors.Is(err, logfinder.ErrNoPath) {
		return fmt.Errorf("no logfile to serve: set --file or $%s", logfinder.EnvLogFile)
	}
	if err != nil {
		return err
	}
	if _, err := os.Stat(file); err != nil {
		// The file may appear later; requests answer 404 until then.
		logger.Warn("logfile not readable yet", slog.String("path", file), logging.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := logserver.New(file, logging.NewComponentLogger(logger, "logserver"))
	return server.ListenAndServe(ctx, addr, server.RequestID(h), logger)
}
