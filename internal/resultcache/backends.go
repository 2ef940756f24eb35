package resultcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"venue-recommender/internal/common/config"
)

// Open builds the backend named by cfg. rdb is only used for the redis
// backend and may be nil otherwise.
func Open(cfg config.CacheConfig, rdb *redis.Client) (Backend, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis cache backend needs a redis client")
		}
		return NewRedisBackend(rdb), nil
	case config.CacheBadger:
		return OpenBadger(cfg.BadgerPath)
	case config.CacheMemory, "":
		return NewMemoryBackend(), nil
	case config.CacheNone:
		return NoopBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Name() string { return config.CacheRedis }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Badger
// ---------------------------------------------------------------------------

// BadgerBackend is an embedded persistent store for single-node deployments.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens a badger database at path. An empty path keeps it in memory.
func OpenBadger(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func (b *BadgerBackend) Name() string { return config.CacheBadger }

func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

func (b *BadgerBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryBackend is a process-local map. Expired keys are dropped on read.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryItem), now: time.Now}
}

func (b *MemoryBackend) Name() string { return config.CacheMemory }

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !it.expires.IsZero() && !b.now().Before(it.expires) {
		delete(b.items, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), it.value...), nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expires = b.now().Add(ttl)
	}
	b.items[key] = it
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
	return nil
}

func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// ---------------------------------------------------------------------------
// Noop
// ---------------------------------------------------------------------------

// NoopBackend never stores anything; every lookup misses.
type NoopBackend struct{}

func (NoopBackend) Name() string                                             { return config.CacheNone }
func (NoopBackend) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (NoopBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopBackend) Delete(context.Context, string) error                     { return nil }
