package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/saaga0h/floorplan-dashboard/pkg/redis"
)

// RedisStore persists preferences as plain Redis strings without expiry
type RedisStore struct {
	client redis.Client
}

// NewRedisStore wraps a connected Redis client
func NewRedisStore(client redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}
