package position

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webzook/wintail/pkg/wintail"
)

// DefaultRedisPrefix namespaces keys when no prefix is configured.
const DefaultRedisPrefix = "wintail"

const (
	fieldOffset    = "offset"
	fieldUpdatedAt = "updated_at"
)

// RedisStore keeps each position in a hash at <prefix>:logfile:<source>.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// OpenRedis connects to url and verifies the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (r *RedisStore) key(sourceID string) string {
	return r.prefix + ":" + Namespace + ":" + sourceID
}

func (r *RedisStore) Get(ctx context.Context, sourceID string) (int64, error) {
	v, err := r.redis.HGet(ctx, r.key(sourceID), fieldOffset).Result()
	if errors.Is(err, redis.Nil) {
		return 0, wintail.ErrOffsetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get offset: %w", err)
	}
	offset, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt offset %q: %w", v, err)
	}
	return offset, nil
}

func (r *RedisStore) Set(ctx context.Context, sourceID string, offset int64) error {
	if err := validOffset(offset); err != nil {
		return err
	}
	err := r.redis.HSet(ctx, r.key(sourceID),
		fieldOffset, strconv.FormatInt(offset, 10),
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set offset: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sourceID string) error {
	if err := r.redis.Del(ctx, r.key(sourceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete offset: %w", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]Entry, error) {
	prefix := r.key("")
	var entries []Entry
	iter := r.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		offset, err := strconv.ParseInt(fields[fieldOffset], 10, 64)
		if err != nil {
			continue
		}
		updated, _ := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
		entries = append(entries, Entry{
			SourceID:  strings.TrimPrefix(key, prefix),
			Offset:    offset,
			UpdatedAt: updated,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan offsets: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SourceID < entries[j].SourceID })
	return entries, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.redis.Close()
}
