// Package feedstore provides the hierarchical key-value store the feed is
// published into. Paths are slash-delimited and rooted at a fixed namespace,
// e.g. curatedContent/breakfast/items.
package feedstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the path-addressed contract the publication layer depends on.
// Set overwrites, Get reads (found=false on absent paths), Push appends a
// child record under path and returns its generated key.
type Store interface {
	Set(ctx context.Context, path string, value any) error
	Get(ctx context.Context, path string, out any) (bool, error)
	Push(ctx context.Context, path string, value any) (string, error)
}

// RedisStore keeps each path as one Redis key holding a JSON document.
type RedisStore struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedis connects to Redis and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int, log *slog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb, log: log}, nil
}

// Set overwrites the value at path.
func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", path, err)
	}
	if err := s.rdb.Set(ctx, path, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Get reads the value at path into out. Returns false with no error when the
// path holds nothing.
func (s *RedisStore) Get(ctx context.Context, path string, out any) (bool, error) {
	data, err := s.rdb.Get(ctx, path).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// Push stores value under a generated child key of path and returns the key.
func (s *RedisStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.NewString()
	if err := s.Set(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Health verifies the Redis connection is alive.
func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
