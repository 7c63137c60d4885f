package wintail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/webzook/wintail/internal/logging"
)

// Follower polls a single source repeatedly and streams its wins.
// It is the one polling task for its source, which keeps polls serialized.
type Follower struct {
	tailer   *Tailer
	sourceID string
	cfg      *followConfig

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc // cancel func to stop the goroutine
	doneCh   chan struct{}      // signals when goroutine has exited
	watching bool               // true if Watch() has been called
}

// NewFollower creates a follower. Does NOT start goroutines.
func NewFollower(t *Tailer, sourceID string, opts ...FollowOption) (*Follower, error) {
	if t == nil {
		return nil, errors.New("wintail: tailer required")
	}
	if sourceID == "" {
		return nil, errors.New("wintail: source ID required")
	}
	cfg := applyFollowOptions(opts)
	if cfg.interval < 0 {
		return nil, errors.New("wintail: follow interval must be non-negative")
	}
	if cfg.interval == 0 && cfg.trigger == nil {
		return nil, errors.New("wintail: follow needs an interval or a trigger")
	}
	return &Follower{tailer: t, sourceID: sourceID, cfg: cfg}, nil
}

// Watch starts polling and returns channels of wins and poll errors.
// The first poll runs immediately. Both channels close when ctx is done
// or Close is called. Watch can only be called once per Follower.
func (f *Follower) Watch(ctx context.Context) (<-chan Record, <-chan error) {
	f.mu.Lock()
	if f.closed || f.watching {
		f.mu.Unlock()
		winCh := make(chan Record)
		errCh := make(chan error)
		close(winCh)
		close(errCh)
		return winCh, errCh
	}
	f.watching = true

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.doneCh = make(chan struct{})
	f.mu.Unlock()

	winCh := make(chan Record)
	errCh := make(chan error, 1)

	go f.run(ctx, winCh, errCh)

	return winCh, errCh
}

// Close stops the follower and waits for the polling goroutine to exit.
// Safe to call multiple times.
func (f *Follower) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
	doneCh := f.doneCh
	f.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (f *Follower) run(ctx context.Context, winCh chan<- Record, errCh chan<- error) {
	defer close(f.doneCh)
	defer close(winCh)
	defer close(errCh)

	var tick <-chan time.Time
	if f.cfg.interval > 0 {
		ticker := time.NewTicker(f.cfg.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	log := f.cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With(logging.Source(f.sourceID))

	trigger := f.cfg.trigger
	for {
		if !f.pollOnce(ctx, winCh, errCh) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case _, ok := <-trigger:
			if !ok {
				log.Debug("trigger closed")
				trigger = nil
				if tick == nil {
					return
				}
			}
		}
	}
}

// pollOnce runs a poll and forwards its wins. Returns false once ctx is done.
func (f *Follower) pollOnce(ctx context.Context, winCh chan<- Record, errCh chan<- error) bool {
	wins, err := f.tailer.Poll(ctx, f.sourceID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		sendError(errCh, err)
		return true
	}
	for _, w := range wins {
		select {
		case winCh <- w:
		case <-ctx.Done():
			return false
		}
	}
	return ctx.Err() == nil
}

// sendError sends an error non-blocking.
func sendError(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Drop error if channel is full
	}
}
