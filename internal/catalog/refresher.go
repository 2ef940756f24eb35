package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/models"
)

var ErrRefreshFailed = errors.New("CATALOG_REFRESH_FAILED")

// RefreshReport describes one rebuild.
type RefreshReport struct {
	Generation uint64                     `json:"generation"`
	Swapped    bool                       `json:"swapped"`
	Counts     map[models.ItemKind]int    `json:"counts"`
	Failed     map[models.ItemKind]string `json:"failed,omitempty"`
	Duration   time.Duration              `json:"duration"`
}

type RefresherConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Kinds        []models.ItemKind
}

// Refresher rebuilds the snapshot off the request path and swaps it in. It
// is the only writer of the Store.
type Refresher struct {
	store   *Store
	source  Source
	pool    *ants.Pool
	config  RefresherConfig
	log     logger.Logger
	now     func() time.Time
	gen     atomic.Uint64
	group   singleflight.Group
	hooksMu sync.RWMutex
	onSwap  []func(*Snapshot)
}

func NewRefresher(store *Store, source Source, pool *ants.Pool, config RefresherConfig, log logger.Logger) *Refresher {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Minute
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 10 * time.Second
	}
	if len(config.Kinds) == 0 {
		config.Kinds = models.AllKinds
	}
	r := &Refresher{
		store:  store,
		source: source,
		pool:   pool,
		config: config,
		log:    log.With(map[string]interface{}{"component": "catalog", "source": source.Name()}),
		now:    time.Now,
	}
	r.gen.Store(store.Current().Generation())
	return r
}

// OnSwap registers a hook called after each new snapshot is published.
func (r *Refresher) OnSwap(fn func(*Snapshot)) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onSwap = append(r.onSwap, fn)
}

// Run refreshes once, then on every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	if _, err := r.RefreshNow(ctx); err != nil {
		r.log.Warn("Initial catalog refresh failed", map[string]interface{}{"error": err})
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RefreshNow(ctx); err != nil {
				r.log.Warn("Scheduled catalog refresh failed, serving previous snapshot", map[string]interface{}{"error": err})
			}
		}
	}
}

// RefreshNow rebuilds the snapshot. Concurrent callers share one rebuild,
// which runs detached from any single caller's ctx and is bounded by
// FetchTimeout. A caller whose ctx ends stops waiting; the rebuild goes on.
func (r *Refresher) RefreshNow(ctx context.Context) (RefreshReport, error) {
	ch := r.group.DoChan("refresh", func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.FetchTimeout)
		defer cancel()
		return r.refresh(shared)
	})

	select {
	case <-ctx.Done():
		return RefreshReport{}, ctx.Err()
	case res := <-ch:
		report, _ := res.Val.(RefreshReport)
		return report, res.Err
	}
}

type fetchResult struct {
	kind  models.ItemKind
	items []models.Item
	err   error
}

func (r *Refresher) refresh(ctx context.Context) (RefreshReport, error) {
	start := r.now()
	prev := r.store.Current()

	results := make(chan fetchResult, len(r.config.Kinds))
	var wg sync.WaitGroup
	for _, kind := range r.config.Kinds {
		kind := kind
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
			defer cancel()
			items, err := r.source.FetchItems(fetchCtx, kind)
			results <- fetchResult{kind: kind, items: items, err: err}
		}
		if err := r.submit(task); err != nil {
			wg.Done()
			results <- fetchResult{kind: kind, err: fmt.Errorf("submit fetch: %w", err)}
		}
	}
	wg.Wait()
	close(results)

	next := make(map[models.ItemKind][]models.Item, len(r.config.Kinds))
	failed := map[models.ItemKind]string{}
	var errs []error
	for res := range results {
		if res.err != nil {
			metrics.CatalogRefreshes.WithLabelValues(string(res.kind), "failed").Inc()
			failed[res.kind] = res.err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", res.kind, res.err))
			// keep the last good items for this kind
			next[res.kind] = prev.Items(res.kind)
			r.log.Warn("Catalog fetch failed, keeping previous items", map[string]interface{}{
				"kind":  string(res.kind),
				"kept":  len(prev.Items(res.kind)),
				"error": res.err,
			})
			continue
		}
		metrics.CatalogRefreshes.WithLabelValues(string(res.kind), "ok").Inc()
		next[res.kind] = res.items
	}

	report := RefreshReport{Failed: failed}
	if len(errs) == len(r.config.Kinds) {
		report.Generation = prev.Generation()
		report.Counts = prev.Counts()
		report.Duration = r.now().Sub(start)
		return report, fmt.Errorf("%w: %v", ErrRefreshFailed, errors.Join(errs...))
	}

	snap := NewSnapshot(r.gen.Add(1), r.now(), next)
	r.store.Swap(snap)
	for kind, n := range snap.Counts() {
		metrics.CatalogItems.WithLabelValues(string(kind)).Set(float64(n))
	}

	r.hooksMu.RLock()
	hooks := append([]func(*Snapshot){}, r.onSwap...)
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(snap)
	}

	report.Generation = snap.Generation()
	report.Swapped = true
	report.Counts = snap.Counts()
	report.Duration = r.now().Sub(start)
	r.log.Info("Catalog snapshot swapped", map[string]interface{}{
		"generation": report.Generation,
		"items":      snap.Len(),
		"failedKind": len(failed),
		"durationMs": report.Duration.Milliseconds(),
	})
	return report, nil
}

func (r *Refresher) submit(task func()) error {
	if r.pool == nil {
		go task()
		return nil
	}
	return r.pool.Submit(task)
}
