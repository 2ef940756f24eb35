// Package resultcache stores ranked result sets under a fingerprint of the
// query analysis. The cache is an optimization only: every backend failure
// degrades to a miss and the caller recomputes.
package resultcache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/models"
)

const (
	DefaultTTL     = time.Hour
	DefaultTimeout = 500 * time.Millisecond
)

// ErrMiss is returned by backends when a key is absent.
var ErrMiss = errors.New("CACHE_MISS")

// Backend is a key-value store with per-key TTL.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedResult identifies one ranked item. Items are resolved against the
// live catalog snapshot on replay.
type CachedResult struct {
	Kind        models.ItemKind    `json:"kind"`
	ID          int64              `json:"id"`
	Score       float64            `json:"score"`
	MatchReason models.MatchReason `json:"matchReason"`
}

// FromRanked converts ranked results into their cacheable form.
func FromRanked(results []models.RankedResult) []CachedResult {
	out := make([]CachedResult, 0, len(results))
	for _, r := range results {
		out = append(out, CachedResult{
			Kind:        r.Item.Kind(),
			ID:          r.Item.ID(),
			Score:       r.Score,
			MatchReason: r.MatchReason,
		})
	}
	return out
}

// entry carries its own timestamp so expiry holds even when a backend keeps
// keys longer than asked.
type entry struct {
	Results  []CachedResult `json:"results"`
	StoredAt time.Time      `json:"storedAt"`
	TTL      time.Duration  `json:"ttl"`
}

type Config struct {
	TTL       time.Duration
	Timeout   time.Duration
	KeyPrefix string
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

type Cache struct {
	backend Backend
	config  Config
	log     logger.Logger
	now     func() time.Time
	group   singleflight.Group
}

func New(backend Backend, config Config, log logger.Logger, opts ...Option) *Cache {
	if backend == nil {
		backend = NoopBackend{}
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	c := &Cache{
		backend: backend,
		config:  config,
		log:     log.With(map[string]interface{}{"component": "resultcache", "backend": backend.Name()}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespaced fingerprint for in.
func (c *Cache) Key(in KeyInput) string {
	return c.config.KeyPrefix + Digest(in)
}

// Get returns the cached results for key when present and younger than
// their TTL.
func (c *Cache) Get(ctx context.Context, key string) ([]CachedResult, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	data, err := c.backend.Get(opCtx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			c.count("miss")
		} else {
			c.count("error")
			c.log.Warn("Cache read failed, recomputing", map[string]interface{}{"key": key, "error": err})
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.count("error")
		c.log.Warn("Discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err})
		return nil, false
	}
	if !c.now().Before(e.StoredAt.Add(e.TTL)) {
		c.count("expired")
		return nil, false
	}

	c.count("hit")
	return e.Results, true
}

// Set stores results under key. A non-positive ttl uses the configured TTL.
// Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, results []CachedResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.TTL
	}
	if results == nil {
		results = []CachedResult{}
	}
	data, err := json.Marshal(entry{Results: results, StoredAt: c.now(), TTL: ttl})
	if err != nil {
		c.log.Warn("Failed to encode cache entry", map[string]interface{}{"key": key, "error": err})
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	if err := c.backend.Set(opCtx, key, data, ttl); err != nil {
		c.count("set_error")
		c.log.Warn("Cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

// Invalidate removes key, ignoring backend errors.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	if err := c.backend.Delete(opCtx, key); err != nil && !errors.Is(err, ErrMiss) {
		c.log.Warn("Cache delete failed", map[string]interface{}{"key": key, "error": err})
	}
}

// GetOrCompute serves key from the cache or runs compute once for all
// concurrent in-process callers missing the same key. The bool reports a
// cache hit. Compute errors are returned and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]CachedResult, error)) ([]CachedResult, bool, error) {
	if res, ok := c.Get(ctx, key); ok {
		return res, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, res, 0)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := v.([]CachedResult)
	return append([]CachedResult(nil), shared...), false, nil
}

func (c *Cache) count(outcome string) {
	metrics.ResultCacheRequests.WithLabelValues(c.backend.Name(), outcome).Inc()
}
