// Package cache provides the TTL cache gating all outbound weather and history calls.
package cache

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/avikko/wxpost/internal/logging"
	"github.com/avikko/wxpost/internal/observability/metrics"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelInfo)
	logger, _, err = logging.NewFileLogger("logs/cache.log", "cache", serviceLevelVar)
	if err != nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "cache")
	}
}

// Store wraps go-cache with per-call TTLs and single-writer fetch semantics.
// Expired entries are evaluated lazily on read and never served.
type Store struct {
	cache   *gocache.Cache
	mu      sync.Mutex
	metrics *metrics.PipelineMetrics
}

// New creates a Store. defaultTTL bounds the janitor interval; individual entries
// carry their own TTL via GetOrFetch.
func New(defaultTTL time.Duration, pipelineMetrics *metrics.PipelineMetrics) *Store {
	return &Store{
		cache:   gocache.New(defaultTTL, defaultTTL*2),
		metrics: pipelineMetrics,
	}
}

// Key builds a cache key scoped by provider and query parameters so distinct
// stations or locations never collide.
func Key(provider, class string, params ...string) string {
	parts := append([]string{provider, class}, params...)
	return strings.Join(parts, ":")
}

// GetOrFetch returns the cached value for key if a non-expired entry exists,
// otherwise invokes fetch. A successful fetch is stored with a fresh timestamp before
// returning; a failed fetch is never cached so the next call retries immediately.
// Calls for the same store run sequentially; the last successful write wins.
// A non-positive ttl bypasses the store entirely.
func GetOrFetch[T any](s *Store, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	// A non-positive TTL means caching is off for this call. go-cache would map a
	// zero duration to its store default, so never hand it one.
	if ttl <= 0 {
		s.metrics.RecordCacheMiss(key)
		return fetch()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, found := s.cache.Get(key); found {
		if value, ok := cached.(T); ok {
			s.metrics.RecordCacheHit(key)
			logger.Debug("cache hit", "key", key)
			return value, nil
		}
		// Type drift means the entry is unusable; drop it and refetch.
		s.cache.Delete(key)
	}

	s.metrics.RecordCacheMiss(key)
	logger.Debug("cache miss", "key", key)

	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	s.cache.Set(key, value, ttl)
	return value, nil
}

// Flush drops every entry. Used between preview runs and in tests.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flush()
	logger.Info("cache flushed")
}

// ItemCount reports the number of entries, expired ones included.
func (s *Store) ItemCount() int {
	return s.cache.ItemCount()
}

// String describes the store for debug logs.
func (s *Store) String() string {
	return fmt.Sprintf("cache.Store(items=%d)", s.cache.ItemCount())
}
