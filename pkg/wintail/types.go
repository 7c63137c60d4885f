package wintail

import (
	"context"

	"github.com/webzook/wintail/pkg/wintail/record"
)

// Record is one parsed logfile line.
type Record = record.Record

// Chunk is the result of a range fetch: either no new data or a byte slice.
// The zero value means no new data.
type Chunk struct {
	data  []byte
	valid bool
}

// NoNewData returns the empty chunk.
func NoNewData() Chunk {
	return Chunk{}
}

// Data wraps fetched bytes. An empty slice is still NoNewData.
func Data(b []byte) Chunk {
	if len(b) == 0 {
		return Chunk{}
	}
	return Chunk{data: b, valid: true}
}

// HasData reports whether the chunk carries bytes.
func (c Chunk) HasData() bool {
	return c.valid
}

// Bytes returns the fetched bytes, nil for NoNewData.
func (c Chunk) Bytes() []byte {
	return c.data
}

// Len returns the number of fetched bytes.
func (c Chunk) Len() int {
	return len(c.data)
}

// PositionStore persists the consumed byte offset per source.
// Get returns ErrOffsetNotFound for a source that was never committed.
type PositionStore interface {
	Get(ctx context.Context, sourceID string) (int64, error)
	Set(ctx context.Context, sourceID string, offset int64) error
}

// RangeFetcher reads length and byte ranges of a remote log.
type RangeFetcher interface {
	// Length returns the declared total byte size of the log.
	Length(ctx context.Context, location string) (int64, error)
	// FetchRange returns bytes [from, to). from == to yields NoNewData
	// without touching the network.
	FetchRange(ctx context.Context, location string, from, to int64) (Chunk, error)
}

// Resolver maps a source ID to a fetchable location.
type Resolver interface {
	Resolve(sourceID string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(sourceID string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(sourceID string) (string, error) {
	return f(sourceID)
}

// Recorder observes poll outcomes, e.g. for metrics.
type Recorder interface {
	PollCompleted(sourceID string, from, to int64, records, wins int)
	PollSkipped(sourceID string)
	PollFailed(sourceID, op string)
}
