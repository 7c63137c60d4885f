package position

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/webzook/wintail/pkg/wintail"
)

// SQLiteStore keeps positions in a single-file SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `CREATE TABLE IF NOT EXISTS positions (
    namespace   TEXT    NOT NULL,
    source_id   TEXT    NOT NULL,
    byte_offset INTEGER NOT NULL CHECK (byte_offset >= 0),
    updated_at  TEXT    NOT NULL,
    PRIMARY KEY (namespace, source_id)
)`

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, sourceID string) (int64, error) {
	var offset int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT byte_offset FROM positions WHERE namespace = ? AND source_id = ?`,
			Namespace, sourceID,
		).Scan(&offset)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, wintail.ErrOffsetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load offset: %w", err)
	}
	return offset, nil
}

func (s *SQLiteStore) Set(ctx context.Context, sourceID string, offset int64) error {
	if err := validOffset(offset); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO positions (namespace, source_id, byte_offset, updated_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (namespace, source_id)
             DO UPDATE SET byte_offset = excluded.byte_offset, updated_at = excluded.updated_at`,
			Namespace, sourceID, offset, now,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store offset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sourceID string) error {
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM positions WHERE namespace = ? AND source_id = ?`,
			Namespace, sourceID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete offset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, byte_offset, updated_at FROM positions
         WHERE namespace = ? ORDER BY source_id`,
		Namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list offsets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			updated string
		)
		if err := rows.Scan(&e.SourceID, &e.Offset, &updated); err != nil {
			return nil, fmt.Errorf("scan offset: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
