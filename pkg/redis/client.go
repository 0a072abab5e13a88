package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saaga0h/floorplan-dashboard/pkg/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	poolSize    = 4
)

// prefsClient is a small go-redis pool sized for preference reads and writes
type prefsClient struct {
	client  *redis.Client
	address string
	logger  *slog.Logger
}

// NewClient creates a Redis client. Connections are opened lazily; call
// Ping to verify the server is reachable.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &prefsClient{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddress(),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  dialTimeout,
			ReadTimeout:  ioTimeout,
			WriteTimeout: ioTimeout,
			PoolSize:     poolSize,
		}),
		address: cfg.RedisAddress(),
		logger:  logger,
	}
}

// Set stores value under key; ttl 0 keeps it forever
func (r *prefsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Get returns the value of key, or ErrNotFound
func (r *prefsClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	case err != nil:
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Del removes keys
func (r *prefsClient) Del(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v: %w", keys, err)
	}
	return nil
}

// Ping checks the connection; health checks call it repeatedly
func (r *prefsClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s failed: %w", r.address, err)
	}
	r.logger.Debug("Redis reachable", "address", r.address)
	return nil
}

// Close closes the connection pool
func (r *prefsClient) Close() error {
	r.logger.Info("Closing Redis connection", "address", r.address)
	return r.client.Close()
}
