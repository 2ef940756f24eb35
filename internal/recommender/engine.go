// Package recommender glues query understanding, retrieval, caching and the
// conversation memory into one turn-processing engine. ProcessTurn is the
// only error boundary: nothing it calls can make it fail.
package recommender

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/observability"
	"venue-recommender/internal/conversation"
	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/entity"
	"venue-recommender/internal/nlp/intent"
	"venue-recommender/internal/nlp/normalize"
	"venue-recommender/internal/resultcache"
	"venue-recommender/internal/retrieval"
)

const DefaultMaxFollowUps = 3

var ErrNoRefresher = errors.New("CATALOG_REFRESH_UNAVAILABLE")

// Retriever ranks catalog items for an analyzed query.
type Retriever interface {
	Retrieve(ctx context.Context, analysis models.QueryAnalysis, prev *models.ConversationContext) ([]models.RankedResult, error)
}

// Refresher rebuilds the catalog snapshot on demand.
type Refresher interface {
	RefreshNow(ctx context.Context) (catalog.RefreshReport, error)
}

// Config tunes the engine. Result cache TTL belongs to resultcache.Config.
type Config struct {
	MaxFollowUps int
}

// Deps are the engine's collaborators. Store and Retriever are required;
// everything else has a usable default.
type Deps struct {
	Store         *catalog.Store
	Retriever     Retriever
	Classifier    *intent.Classifier
	Extractor     *entity.Extractor
	Memory        *conversation.Memory
	Cache         *resultcache.Cache
	Refresher     Refresher
	Observability *observability.Observability
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the turn id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

type Engine struct {
	store      *catalog.Store
	retriever  Retriever
	classifier *intent.Classifier
	extractor  *entity.Extractor
	memory     *conversation.Memory
	cache      *resultcache.Cache
	refresher  Refresher
	obs        *observability.Observability
	config     Config
	log        logger.Logger
	now        func() time.Time
	newID      func() string

	statsMu sync.Mutex
	stats   PerformanceMetrics
}

func New(deps Deps, config Config, log logger.Logger, opts ...Option) *Engine {
	if config.MaxFollowUps <= 0 {
		config.MaxFollowUps = DefaultMaxFollowUps
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.New()
	}
	if deps.Extractor == nil {
		deps.Extractor = entity.New()
	}
	if deps.Memory == nil {
		deps.Memory = conversation.NewMemory(conversation.Config{})
	}
	if deps.Cache == nil {
		deps.Cache = resultcache.New(nil, resultcache.Config{}, log)
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	if deps.Store == nil {
		deps.Store = catalog.NewStore()
	}

	e := &Engine{
		store:      deps.Store,
		retriever:  deps.Retriever,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		memory:     deps.Memory,
		cache:      deps.Cache,
		refresher:  deps.Refresher,
		obs:        deps.Observability,
		config:     config,
		log:        log.With(map[string]interface{}{"component": "recommender"}),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze classifies query and extracts its entities. prev is a read-only
// view of the session and may be nil.
func (e *Engine) Analyze(query string, prev *models.ConversationContext) models.QueryAnalysis {
	norm, toks := normalize.Analyze(query)
	cls := e.classifier.Classify(query, prev)
	return models.QueryAnalysis{
		Query:        query,
		Normalized:   norm,
		Tokens:       toks,
		Intent:       cls.Intent,
		Confidence:   cls.Confidence,
		Sticky:       cls.Sticky,
		Entities:     e.extractor.Extract(query, prev),
		Alternatives: cls.Alternatives,
	}
}

// Retrieve returns ranked results for analysis, served from the result cache
// when an entry for the same fingerprint is still fresh. The bool reports a
// cache hit.
func (e *Engine) Retrieve(ctx context.Context, analysis models.QueryAnalysis, prev *models.ConversationContext) ([]models.RankedResult, bool, error) {
	if len(retrieval.KindsFor(analysis.Intent)) == 0 {
		return []models.RankedResult{}, false, nil
	}
	if e.retriever == nil {
		return nil, false, errors.New("recommender: no retriever configured")
	}

	key := e.cache.Key(resultcache.KeyInput{
		Intent:      analysis.Intent,
		Entities:    analysis.Entities,
		Terms:       analysis.Tokens,
		Preferences: retrieval.EffectivePreferences(analysis.Entities, prev),
	})

	var fresh []models.RankedResult
	computed := false
	cached, hit, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]resultcache.CachedResult, error) {
		res, err := e.retriever.Retrieve(ctx, analysis, prev)
		if err != nil {
			return nil, err
		}
		fresh, computed = res, true
		return resultcache.FromRanked(res), nil
	})
	if err != nil {
		return nil, false, err
	}
	if computed {
		return fresh, false, nil
	}
	return e.resolve(cached), hit, nil
}

// resolve turns cached ids back into items from the current snapshot. Items
// gone since the entry was written are skipped.
func (e *Engine) resolve(cached []resultcache.CachedResult) []models.RankedResult {
	snap := e.store.Current()
	out := make([]models.RankedResult, 0, len(cached))
	for _, c := range cached {
		it, ok := snap.Lookup(models.ItemKey{Kind: c.Kind, ID: c.ID})
		if !ok {
			continue
		}
		out = append(out, models.RankedResult{Item: it, Score: c.Score, MatchReason: c.MatchReason})
	}
	return out
}

// Session returns a copy of a session's context, or nil when it does not
// exist. It never creates one.
func (e *Engine) Session(userID, sessionID string) *models.ConversationContext {
	c, err := e.memory.Snapshot(models.SessionKey{UserID: userID, SessionID: sessionID})
	if err != nil {
		return nil
	}
	return c
}

func (e *Engine) ContextSummary(userID, sessionID string) models.ContextSummary {
	return e.memory.Summarize(models.SessionKey{UserID: userID, SessionID: sessionID})
}

// ResetSession forgets a conversation. It reports whether one existed.
func (e *Engine) ResetSession(userID, sessionID string) bool {
	return e.memory.Reset(models.SessionKey{UserID: userID, SessionID: sessionID})
}

// RefreshCatalog forces an out-of-band snapshot rebuild.
func (e *Engine) RefreshCatalog(ctx context.Context) (catalog.RefreshReport, error) {
	if e.refresher == nil {
		return catalog.RefreshReport{}, ErrNoRefresher
	}
	return e.refresher.RefreshNow(ctx)
}

// Memory exposes the conversation store for the idle sweeper.
func (e *Engine) Memory() *conversation.Memory {
	return e.memory
}

// PerformanceMetrics are the engine's running totals.
type PerformanceMetrics struct {
	TotalQueries        int64         `json:"totalQueries"`
	CacheHits           int64         `json:"cacheHits"`
	CacheMisses         int64         `json:"cacheMisses"`
	Errors              int64         `json:"errors"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	totalTime           time.Duration
}

// CacheHitRate is hits over cache lookups, or 0 before the first lookup.
func (m PerformanceMetrics) CacheHitRate() float64 {
	n := m.CacheHits + m.CacheMisses
	if n == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(n)
}

func (e *Engine) Metrics() PerformanceMetrics {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

func (e *Engine) observe(res models.TurnResult, lookedUp bool) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.TotalQueries++
	switch {
	case res.Intent == models.IntentError:
		e.stats.Errors++
	case res.CacheHit:
		e.stats.CacheHits++
	case lookedUp:
		e.stats.CacheMisses++
	}
	e.stats.totalTime += res.ProcessingTime
	e.stats.AverageResponseTime = e.stats.totalTime / time.Duration(e.stats.TotalQueries)
}
