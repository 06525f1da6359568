package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements domain.SnapshotStore on a single Redis string key.
type RedisStore struct {
	client  *redis.Client
	slotKey string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, slotKey string) *RedisStore {
	return &RedisStore{client: client, slotKey: slotKey}
}

// NewRedisStoreFromURL connects to Redis and verifies the connection.
func NewRedisStoreFromURL(ctx context.Context, redisURL, slotKey string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, slotKey), nil
}

// Load returns the document stored under the slot key.
func (s *RedisStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.slotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot: %w", err)
	}
	return data, true, nil
}

// Save replaces the document stored under the slot key. The key never expires.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.slotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
