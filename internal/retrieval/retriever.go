// Package retrieval ranks catalog items for an analyzed query. Two paths run
// side by side: keyword overlap over normalized tokens, and cosine similarity
// over embeddings when a provider is available. Their results are merged and
// deduplicated by item.
package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/embedding"
	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/entity"
)

const (
	DefaultMaxResults        = 10
	DefaultKeywordThreshold  = 0.3
	DefaultSemanticThreshold = 0.3
	DefaultMinConfidence     = 0.3
	DefaultTimeout           = 3 * time.Second

	// PreferenceCuisine is the preference key the orchestrator learns and the
	// venue filter honours when the query names no cuisine.
	PreferenceCuisine = "cuisine"
)

type Config struct {
	MaxResults        int
	KeywordThreshold  float64
	SemanticThreshold float64
	MinConfidence     float64
	Timeout           time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.KeywordThreshold <= 0 {
		c.KeywordThreshold = DefaultKeywordThreshold
	}
	if c.SemanticThreshold <= 0 {
		c.SemanticThreshold = DefaultSemanticThreshold
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Retriever is safe for concurrent use. It reads whatever snapshot the store
// holds when Retrieve is called and never blocks a refresh.
type Retriever struct {
	store    *catalog.Store
	embedder embedding.Provider
	pool     *ants.Pool
	vocab    entity.Vocabulary
	config   Config
	log      logger.Logger

	mu    sync.Mutex
	index *itemIndex
}

// New builds a retriever. embedder and pool may be nil; without an embedder
// only the keyword path runs.
func New(store *catalog.Store, embedder embedding.Provider, pool *ants.Pool, vocab entity.Vocabulary, config Config, log logger.Logger) *Retriever {
	if embedder == nil {
		embedder = embedding.Noop{}
	}
	if vocab == nil {
		vocab = entity.DefaultVocabulary()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		pool:     pool,
		vocab:    vocab,
		config:   config.withDefaults(),
		log:      log.With(map[string]interface{}{"component": "retrieval", "embedder": embedder.Name()}),
	}
}

// OnSnapshot drops per-item caches built for an older generation. It is
// registered as a refresher swap hook.
func (r *Retriever) OnSnapshot(snap *catalog.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil && r.index.generation != snap.Generation() {
		r.index = nil
	}
}

// Retrieve returns at most MaxResults ranked items for analysis. prev is a
// read-only view of the session and may be nil. Only cancellation of ctx is
// reported as an error; a failing semantic path just leaves keyword results.
func (r *Retriever) Retrieve(ctx context.Context, analysis models.QueryAnalysis, prev *models.ConversationContext) ([]models.RankedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kinds := KindsFor(analysis.Intent)
	if len(kinds) == 0 {
		return []models.RankedResult{}, nil
	}

	snap := r.store.Current()
	candidates := r.filter(snap.ItemsOf(kinds...), analysis.Entities, prev)
	if len(candidates) == 0 {
		return []models.RankedResult{}, nil
	}
	idx := r.indexFor(snap)

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	semantic := r.startSemantic(ctx, idx, analysis, candidates)

	start := time.Now()
	keyword := keywordMatches(idx, analysis.Tokens, candidates, r.config.KeywordThreshold)
	metrics.RetrievalDuration.WithLabelValues("keyword").Observe(time.Since(start).Seconds())

	var semanticHits []models.RankedResult
	if semantic != nil {
		select {
		case res := <-semantic:
			if res.err != nil {
				r.log.Warn("Semantic retrieval failed, using keyword results", map[string]interface{}{"error": res.err})
			}
			semanticHits = res.hits
		case <-ctx.Done():
			r.log.Warn("Semantic retrieval timed out, using keyword results", map[string]interface{}{"error": ctx.Err()})
		}
	}

	merged := Merge(keyword, semanticHits)
	if len(merged) == 0 && r.weak(analysis) {
		merged = r.fallback(snap, kinds, analysis.Entities, prev)
	}
	if len(merged) > r.config.MaxResults {
		merged = merged[:r.config.MaxResults]
	}
	return merged, nil
}

// KindsFor maps an intent to the catalog kinds it searches. Greetings search
// nothing.
func KindsFor(in models.Intent) []models.ItemKind {
	switch in {
	case models.IntentGreeting, models.IntentError:
		return nil
	case models.IntentRestaurantSearch, models.IntentFoodSearch, models.IntentPriceQuery,
		models.IntentHoursQuery, models.IntentReservation:
		return []models.ItemKind{models.KindVenue}
	case models.IntentEventSearch:
		return []models.ItemKind{models.KindEvent}
	default:
		return models.AllKinds
	}
}

// weak reports whether the query gives nothing to go on, in which case an
// empty result is replaced with a top-rated sample.
func (r *Retriever) weak(analysis models.QueryAnalysis) bool {
	for kind, vals := range analysis.Entities {
		if kind != models.EntityRelatedSearches && len(vals) > 0 {
			return false
		}
	}
	return analysis.Intent == models.IntentGeneral || analysis.Confidence < r.config.MinConfidence
}

func (r *Retriever) fallback(snap *catalog.Snapshot, kinds []models.ItemKind, ents models.Entities, prev *models.ConversationContext) []models.RankedResult {
	top := r.filter(snap.TopRated(0, kinds...), ents, prev)
	if len(top) > r.config.MaxResults {
		top = top[:r.config.MaxResults]
	}
	out := make([]models.RankedResult, 0, len(top))
	for _, it := range top {
		out = append(out, models.RankedResult{Item: it, Score: 0, MatchReason: models.MatchKeyword})
	}
	return out
}

// Merge unions keyword and semantic hits. An item found by both keeps the
// higher score and is tagged both. The result is sorted by score, then
// rating, then kind and id so equal inputs always rank the same.
func Merge(keyword, semantic []models.RankedResult) []models.RankedResult {
	byKey := make(map[models.ItemKey]models.RankedResult, len(keyword)+len(semantic))
	order := make([]models.ItemKey, 0, len(keyword)+len(semantic))

	add := func(hits []models.RankedResult) {
		for _, h := range hits {
			if h.Item == nil {
				continue
			}
			key := models.KeyOf(h.Item)
			cur, ok := byKey[key]
			if !ok {
				byKey[key] = h
				order = append(order, key)
				continue
			}
			if cur.MatchReason != h.MatchReason {
				cur.MatchReason = models.MatchBoth
			}
			if h.Score > cur.Score {
				cur.Score = h.Score
			}
			byKey[key] = cur
		}
	}
	add(keyword)
	add(semantic)

	out := make([]models.RankedResult, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := a.Item.Rating(), b.Item.Rating(); ra != rb {
			return ra > rb
		}
		if a.Item.Kind() != b.Item.Kind() {
			return a.Item.Kind() > b.Item.Kind()
		}
		return a.Item.ID() < b.Item.ID()
	})
	return out
}
