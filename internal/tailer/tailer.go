// Package tailer turns appends to a local logfile into poll triggers.
//
// It is used when wintail runs next to the game server and can see the
// logfile that the upstream byte server exposes: instead of polling on a
// timer, follow polls whenever a new line lands in the file.
package tailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/nxadm/tail"
)

// errBuffer is the buffer size for the error channel.
const errBuffer = 16

// Trigger wraps nxadm/tail and signals on every append to a file.
// Signals coalesce: a burst of lines while the consumer is busy polling
// results in a single pending signal.
type Trigger struct {
	t      *tail.Tail
	ctx    context.Context
	cancel context.CancelFunc
	c      chan struct{}
	errors chan error
	doneCh chan struct{}

	mu      sync.Mutex
	stopped bool
}

// Config holds configuration for watching.
type Config struct {
	// ReOpen reopens the file when it's truncated or recreated (tail -F).
	ReOpen bool

	// Poll uses polling instead of inotify.
	Poll bool

	// MustExist requires the file to exist before starting.
	MustExist bool
}

// DefaultConfig returns the configuration used by follow --watch-file.
func DefaultConfig() Config {
	return Config{
		ReOpen:    true,
		Poll:      false,
		MustExist: true,
	}
}

// New starts watching path. Only lines appended after New returns
// produce signals. The provided context controls the trigger's lifecycle.
func New(ctx context.Context, path string, cfg Config) (*Trigger, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    cfg.ReOpen,
		Poll:      cfg.Poll,
		MustExist: cfg.MustExist,
		Location:  &tail.SeekInfo{Offset: 0, Whence: 2},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening tail: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	tr := &Trigger{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
		c:      make(chan struct{}, 1),
		errors: make(chan error, errBuffer),
		doneCh: make(chan struct{}),
	}

	go tr.run()

	return tr, nil
}

// C returns the channel that receives a value after the file grew.
// It is closed when the trigger stops.
func (tr *Trigger) C() <-chan struct{} {
	return tr.c
}

// Errors returns a channel that receives errors from tailing.
// Errors are dropped when the buffer is full.
func (tr *Trigger) Errors() <-chan error {
	return tr.errors
}

// Stop stops watching and closes all channels.
// Safe to call multiple times.
func (tr *Trigger) Stop() error {
	tr.mu.Lock()
	if tr.stopped {
		tr.mu.Unlock()
		return nil
	}
	tr.stopped = true
	tr.mu.Unlock()

	tr.cancel()
	<-tr.doneCh
	err := tr.t.Stop()
	tr.t.Cleanup()
	return err
}

func (tr *Trigger) run() {
	defer close(tr.doneCh)
	defer close(tr.c)
	defer close(tr.errors)

	for {
		select {
		case <-tr.ctx.Done():
			return
		case line, ok := <-tr.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				select {
				case tr.errors <- fmt.Errorf("tail: %w", line.Err):
				default:
				}
				continue
			}
			select {
			case tr.c <- struct{}{}:
			default:
				// a signal is already pending
			}
		}
	}
}
