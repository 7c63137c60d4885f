package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/webzook/wintail/internal/config"
	"github.com/webzook/wintail/internal/fetcher"
	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/internal/metrics"
	"github.com/webzook/wintail/internal/position"
	"github.com/webzook/wintail/internal/source"
	"github.com/webzook/wintail/pkg/wintail"
)

// errLocked is returned when another process writes the same position store.
var errLocked = errors.New("position store is in use by another wintail process")

// app holds the collaborators shared by the commands that poll.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *source.Resolver
	store    position.Store
	lock     *flock.Flock
	metrics  *metrics.Recorder
	tailer   *wintail.Tailer
}

// loadConfig reads the config selected by --config and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	if exists {
		logger.Debug("loaded config", slog.String("path", path))
	} else {
		logger.Debug("no config file, using defaults", slog.String("path", path))
	}
	return cfg, logger, nil
}

// openApp loads config, takes the store writer lock, and opens the store.
// The tailer is built on top of them. opts tune source resolution.
func openApp(ctx context.Context, opts ...source.Option) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		resolver: source.New(cfg.Sources, opts...),
		metrics:  metrics.New(),
	}

	if lockPath := cfg.LockPath(); lockPath != "" {
		if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
			return nil, fmt.Errorf("ensure lock directory: %w", err)
		}
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w (lock %s)", errLocked, lockPath)
		}
		a.lock = lock
	}

	store, err := position.Open(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	f := fetcher.New(fetcher.Options{
		Timeout:   cfg.FetchTimeout(),
		UserAgent: cfg.Fetch.UserAgent,
	})
	a.tailer, err = wintail.New(store, f, a.resolver,
		wintail.WithWindowBytes(cfg.Fetch.WindowBytes),
		wintail.WithLogger(logging.NewComponentLogger(logger, "tailer")),
		wintail.WithRecorder(a.metrics),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// defaultSource returns the source polled when none is given.
func (a *app) defaultSource(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return config.DefaultSourceID
}

// Close releases the store and the writer lock.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close position store", logging.Err(err))
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("release lock", logging.Err(err))
		}
	}
}
