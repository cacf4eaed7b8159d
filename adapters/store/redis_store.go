package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/qrlink/core"
	"github.com/layer-3/qrlink/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "qrlink:",
	}
}

// Set writes a key with a value and expiration time
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to set key: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: failed to get key: %v", core.ErrStoreUnavailable, err)
	}
	return value, nil
}

// GetDel atomically retrieves a value and removes the key using GETDEL,
// so concurrent callers cannot both observe the same value.
func (s *RedisStore) GetDel(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: failed to take key: %v", core.ErrStoreUnavailable, err)
	}
	return value, nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete key: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}
