package wintail

import (
	"context"
	"errors"
	"log/slog"

	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/internal/parser"
)

// Tailer consumes only the newly appended part of remote logfiles and
// extracts wins from it.
//
// Polls for the same source ID must be serialized by the caller. Two
// overlapping polls can both read the same offset and commit out of order,
// which re-delivers already returned wins on a later poll.
type Tailer struct {
	store    PositionStore
	fetcher  RangeFetcher
	resolver Resolver
	cfg      *tailerConfig
}

// Result describes one completed poll.
type Result struct {
	SourceID string
	// From and To delimit the consumed byte range [From, To).
	From int64
	To   int64
	// Bootstrapped is set when no offset was stored before this poll.
	Bootstrapped bool
	// Committed is set when the stored offset moved to To.
	Committed bool
	// Records is the number of parsed records in the range.
	Records int
	Wins    []Record
}

// New creates a Tailer from explicitly constructed collaborators.
func New(store PositionStore, fetcher RangeFetcher, resolver Resolver, opts ...Option) (*Tailer, error) {
	if store == nil {
		return nil, errors.New("wintail: position store required")
	}
	if fetcher == nil {
		return nil, errors.New("wintail: range fetcher required")
	}
	if resolver == nil {
		return nil, errors.New("wintail: resolver required")
	}
	return &Tailer{
		store:    store,
		fetcher:  fetcher,
		resolver: resolver,
		cfg:      applyOptions(opts),
	}, nil
}

// Poll fetches the bytes appended to the source since the last committed
// poll and returns the wins found in them, in log order.
//
// The stored offset only moves after the fetch succeeds, so a failed poll
// is retried from the same offset next time. Every error matches
// ErrPollFailed.
func (t *Tailer) Poll(ctx context.Context, sourceID string) ([]Record, error) {
	res, err := t.PollResult(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return res.Wins, nil
}

// PollResult is Poll with the consumed range and counters.
func (t *Tailer) PollResult(ctx context.Context, sourceID string) (Result, error) {
	res := Result{SourceID: sourceID}
	log := t.logger().With(logging.Source(sourceID))

	location, err := t.resolver.Resolve(sourceID)
	if err != nil {
		return res, t.fail(log, sourceID, "resolve", err)
	}

	offset, err := t.store.Get(ctx, sourceID)
	switch {
	case errors.Is(err, ErrOffsetNotFound):
		res.Bootstrapped = true
	case err != nil:
		return res, t.fail(log, sourceID, "load offset", err)
	}

	length, err := t.fetcher.Length(ctx, location)
	if err != nil {
		return res, t.fail(log, sourceID, "length", err)
	}

	if res.Bootstrapped {
		offset = bootstrapOffset(length, t.cfg.windowBytes)
		log.Debug("cold start", slog.Int64("length", length), logging.Offset(offset))
	}
	res.From, res.To = offset, length

	if offset > length {
		return res, t.fail(log, sourceID, "fetch", &RangeError{Source: location, From: offset, To: length})
	}
	if offset == length {
		log.Debug("no new data", logging.Offset(offset))
		if t.cfg.recorder != nil {
			t.cfg.recorder.PollSkipped(sourceID)
		}
		return res, nil
	}

	chunk, err := t.fetcher.FetchRange(ctx, location, offset, length)
	if err != nil {
		return res, t.fail(log, sourceID, "fetch", err)
	}

	if err := t.store.Set(ctx, sourceID, length); err != nil {
		return res, t.fail(log, sourceID, "commit offset", err)
	}
	res.Committed = true

	records := parser.Parse(chunk.Bytes(), offset == 0)
	res.Records = len(records)
	res.Wins = t.cfg.filter.apply(records)

	log.Info("poll committed",
		slog.Int64("from", offset),
		slog.Int64("to", length),
		slog.Int("records", res.Records),
		slog.Int("wins", len(res.Wins)))
	if t.cfg.recorder != nil {
		t.cfg.recorder.PollCompleted(sourceID, offset, length, res.Records, len(res.Wins))
	}
	return res, nil
}

func (t *Tailer) fail(log *slog.Logger, sourceID, op string, err error) error {
	log.Warn("poll failed", slog.String("op", op), logging.Err(err))
	if t.cfg.recorder != nil {
		t.cfg.recorder.PollFailed(sourceID, op)
	}
	return &PollError{SourceID: sourceID, Op: op, Err: err}
}

func (t *Tailer) logger() *slog.Logger {
	if t.cfg.logger != nil {
		return t.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}

// bootstrapOffset is where a cold start begins: window bytes before the end,
// never before byte 0.
func bootstrapOffset(length, window int64) int64 {
	if window <= 0 {
		return 0
	}
	return max(0, length-window)
}
