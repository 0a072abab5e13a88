package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/maypok86/otter/v2"
)

const defaultCacheTTL = 10 * time.Minute

// QueryCache holds encoded query responses. Keys embed the engine
// generation so an entry is only ever served for the view it was built from.
type QueryCache struct {
	cache  *otter.Cache[string, []byte]
	logger *slog.Logger
}

// NewQueryCache creates a cache holding at most size responses
func NewQueryCache(size int, ttl time.Duration, logger *slog.Logger) *QueryCache {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 10_000
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	cache := otter.Must(&otter.Options[string, []byte]{
		MaximumSize:      size,
		InitialCapacity:  min(size, 1024),
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](ttl),
	})

	return &QueryCache{cache: cache, logger: logger}
}

// Key builds the cache key for a request
func Key(generation uint64, locale, requestURI string) string {
	return fmt.Sprintf("%d|%s|%s", generation, locale, requestURI)
}

// Get returns a cached body
func (q *QueryCache) Get(key string) ([]byte, bool) {
	body, ok := q.cache.GetIfPresent(key)
	if ok {
		q.logger.Debug("Query cache hit", "key", key)
	}
	return body, ok
}

// Set stores a body
func (q *QueryCache) Set(key string, body []byte) {
	q.cache.Set(key, body)
}

// Len returns the approximate number of cached entries
func (q *QueryCache) Len() int {
	return q.cache.EstimatedSize()
}
