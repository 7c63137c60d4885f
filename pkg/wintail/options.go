package wintail

import (
	"log/slog"
	"time"
)

// DefaultWindowBytes is how far back from the end of the log a cold start
// begins reading. Large enough for a handful of recent games.
const DefaultWindowBytes int64 = 8192

// DefaultFollowInterval is the default delay between follow-mode polls.
const DefaultFollowInterval = 5 * time.Second

// Option configures a Tailer using the functional options pattern.
type Option func(*tailerConfig)

// tailerConfig holds internal configuration for the tailer.
type tailerConfig struct {
	windowBytes int64
	logger      *slog.Logger
	recorder    Recorder
	filter      *compiledFilter
}

// defaultTailerConfig returns a tailerConfig with sensible defaults.
func defaultTailerConfig() *tailerConfig {
	return &tailerConfig{
		windowBytes: DefaultWindowBytes,
		filter:      newCompiledFilter(WinPrefix),
	}
}

// applyOptions applies functional options to a tailerConfig.
func applyOptions(opts []Option) *tailerConfig {
	cfg := defaultTailerConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithWindowBytes sets the cold-start window.
// Default: 8192. Non-positive values mean a cold start reads from byte 0.
func WithWindowBytes(n int64) Option {
	return func(c *tailerConfig) {
		c.windowBytes = n
	}
}

// WithLogger sets the slog logger for poll diagnostics.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *tailerConfig) {
		c.logger = logger
	}
}

// WithRecorder sets an observer for poll outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *tailerConfig) {
		c.recorder = r
	}
}

// WithWinPrefix overrides the tmsg prefix that marks a win.
// Empty keeps WinPrefix.
func WithWinPrefix(prefix string) Option {
	return func(c *tailerConfig) {
		c.filter = newCompiledFilter(prefix)
	}
}

// FollowOption configures a Follower.
type FollowOption func(*followConfig)

// followConfig holds internal configuration for the follower.
type followConfig struct {
	interval time.Duration
	trigger  <-chan struct{}
	logger   *slog.Logger
}

func defaultFollowConfig() *followConfig {
	return &followConfig{interval: DefaultFollowInterval}
}

func applyFollowOptions(opts []FollowOption) *followConfig {
	cfg := defaultFollowConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithInterval sets the delay between polls. Zero disables the ticker,
// leaving only the trigger channel (if any).
// Default: 5 seconds.
func WithInterval(d time.Duration) FollowOption {
	return func(c *followConfig) {
		c.interval = d
	}
}

// WithTrigger adds a channel whose receives cause an immediate poll.
func WithTrigger(ch <-chan struct{}) FollowOption {
	return func(c *followConfig) {
		c.trigger = ch
	}
}

// WithFollowLogger sets the slog logger for the follower loop.
func WithFollowLogger(logger *slog.Logger) FollowOption {
	return func(c *followConfig) {
		c.logger = logger
	}
}

// ParseOption configures ParseFile behavior.
type ParseOption func(*parseConfig)

// parseConfig holds internal configuration for parsing.
type parseConfig struct {
	filter     *compiledFilter
	allRecords bool
	limit      int
}

func defaultParseConfig() *parseConfig {
	return &parseConfig{filter: newCompiledFilter(WinPrefix)}
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseAllRecords yields every record instead of only wins.
func WithParseAllRecords(all bool) ParseOption {
	return func(c *parseConfig) {
		c.allRecords = all
	}
}

// WithParseWinPrefix overrides the tmsg prefix that marks a win.
func WithParseWinPrefix(prefix string) ParseOption {
	return func(c *parseConfig) {
		c.filter = newCompiledFilter(prefix)
	}
}

// WithParseLimit stops after n yielded records. 0 means no limit.
func WithParseLimit(n int) ParseOption {
	return func(c *parseConfig) {
		c.limit = n
	}
}
