// Package position persists how many bytes of each log source were consumed.
//
// Entries are keyed by the composite (namespace, source ID) with the
// namespace fixed to "logfile". A missing entry means the source was never
// polled and is reported as wintail.ErrOffsetNotFound.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/webzook/wintail/internal/config"
	"github.com/webzook/wintail/pkg/wintail"
)

// Namespace is the first half of every position key.
const Namespace = "logfile"

// Entry is one stored position.
type Entry struct {
	SourceID  string    `json:"source_id"`
	Offset    int64     `json:"offset"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a durable position store. Writes are idempotent.
type Store interface {
	wintail.PositionStore
	// Delete forgets a source so its next poll is a cold start.
	Delete(ctx context.Context, sourceID string) error
	// List returns all entries ordered by source ID.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func validOffset(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", offset)
	}
	return nil
}
