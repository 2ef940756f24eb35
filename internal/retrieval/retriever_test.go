package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/embedding"
	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/entity"
	"venue-recommender/internal/nlp/normalize"
)

// ==========================
// Helpers
// ==========================

func storeWith(gen uint64, items ...models.Item) *catalog.Store {
	byKind := map[models.ItemKind][]models.Item{}
	for _, it := range items {
		byKind[it.Kind()] = append(byKind[it.Kind()], it)
	}
	store := catalog.NewStore()
	store.Swap(catalog.NewSnapshot(gen, time.Now(), byKind))
	return store
}

func analysisFor(query string, intent models.Intent, confidence float64, ents models.Entities) models.QueryAnalysis {
	norm, toks := normalize.Analyze(query)
	if ents == nil {
		ents = models.Entities{}
	}
	return models.QueryAnalysis{
		Query:      query,
		Normalized: norm,
		Tokens:     toks,
		Intent:     intent,
		Confidence: confidence,
		Entities:   ents,
	}
}

func newRetriever(t *testing.T, store *catalog.Store, emb embedding.Provider, cfg Config) *Retriever {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return New(store, emb, pool, entity.DefaultVocabulary(), cfg, logger.NewTestLogger(t))
}

func keys(results []models.RankedResult) []models.ItemKey {
	out := make([]models.ItemKey, 0, len(results))
	for _, r := range results {
		out = append(out, models.KeyOf(r.Item))
	}
	return out
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string    { return "failing" }
func (failingEmbedder) Available() bool { return true }
func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

type slowEmbedder struct{ delay time.Duration }

func (slowEmbedder) Name() string    { return "slow" }
func (slowEmbedder) Available() bool { return true }
func (s slowEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-time.After(s.delay):
		return embedding.NewHashing(32).Embed(ctx, texts)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type countingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	inner   *embedding.Hashing
}

func (c *countingEmbedder) Name() string    { return "counting" }
func (c *countingEmbedder) Available() bool { return true }
func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	c.mu.Unlock()
	return c.inner.Embed(ctx, texts)
}

var pizzaBella = &models.Venue{VenueID: 2, Name: "Pizza Bella", Cat: "Italian", Stars: 4.3}

// ==========================
// Keyword path
// ==========================

func TestKeyword_ScenarioPizzaItaliana(t *testing.T) {
	r := newRetriever(t, storeWith(1, pizzaBella), embedding.Noop{}, Config{})

	a := analysisFor("vreau pizza italiana", models.IntentRestaurantSearch, 0.5,
		models.Entities{models.EntityCuisine: {"italian"}})

	got, err := r.Retrieve(context.Background(), a, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pizza Bella", got[0].Item.Title())
	assert.Equal(t, models.MatchKeyword, got[0].MatchReason)
	assert.Greater(t, got[0].Score, 0.0)
}

func TestKeyword_DisjointTokensReturnNothing(t *testing.T) {
	store := storeWith(1, catalog.SampleItems()...)
	r := newRetriever(t, store, embedding.Noop{}, Config{})
	idx := r.indexFor(store.Current())
	candidates := store.Current().ItemsOf(models.AllKinds...)

	queries := []string{
		"xylophone quasar",
		"blockchain kubernetes",
		"zzzz qqqq wwww",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			got := keywordMatches(idx, normalize.Tokens(q), candidates, 0.01)
			assert.Empty(t, got)
		})
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query []string
		item  []string
		want  float64
	}{
		{name: "all", query: []string{"pizza"}, item: []string{"pizza", "bella"}, want: 1},
		{name: "half", query: []string{"pizza", "sushi"}, item: []string{"pizza"}, want: 0.5},
		{name: "prefix", query: []string{"italiana"}, item: []string{"italian"}, want: 1},
		{name: "short prefix ignored", query: []string{"art"}, item: []string{"arta"}, want: 0},
		{name: "none", query: []string{"rock"}, item: []string{"jazz"}, want: 0},
		{name: "empty query", query: nil, item: []string{"jazz"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Overlap(tt.query, tt.item), 1e-9)
		})
	}
}

// ==========================
// Merge
// ==========================

func TestMerge_DedupesKeepingMaxScore(t *testing.T) {
	a := &models.Venue{VenueID: 1, Name: "A", Stars: 3}
	b := &models.Venue{VenueID: 2, Name: "B", Stars: 4}
	e := &models.Event{EventID: 1, Name: "E"}

	keyword := []models.RankedResult{
		{Item: a, Score: 0.4, MatchReason: models.MatchKeyword},
		{Item: b, Score: 0.9, MatchReason: models.MatchKeyword},
	}
	semantic := []models.RankedResult{
		{Item: a, Score: 0.7, MatchReason: models.MatchSemantic},
		{Item: b, Score: 0.5, MatchReason: models.MatchSemantic},
		{Item: e, Score: 0.4, MatchReason: models.MatchSemantic},
	}

	got := Merge(keyword, semantic)
	require.Len(t, got, 3)

	seen := map[models.ItemKey]int{}
	for _, r := range got {
		seen[models.KeyOf(r.Item)]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "duplicate entry for %v", k)
	}

	assert.Equal(t, "B", got[0].Item.Title())
	assert.Equal(t, 0.9, got[0].Score)
	assert.Equal(t, models.MatchBoth, got[0].MatchReason)

	assert.Equal(t, "A", got[1].Item.Title())
	assert.Equal(t, 0.7, got[1].Score)
	assert.Equal(t, models.MatchBoth, got[1].MatchReason)

	// venue 1 and event 1 share an id but are different items
	assert.Equal(t, models.MatchSemantic, got[2].MatchReason)
	assert.Equal(t, models.KindEvent, got[2].Item.Kind())
}

func TestMerge_TieBreaks(t *testing.T) {
	low := &models.Venue{VenueID: 5, Stars: 3}
	high := &models.Venue{VenueID: 9, Stars: 4.5}
	sameA := &models.Venue{VenueID: 1, Stars: 3}

	got := Merge([]models.RankedResult{
		{Item: low, Score: 0.5, MatchReason: models.MatchKeyword},
		{Item: high, Score: 0.5, MatchReason: models.MatchKeyword},
		{Item: sameA, Score: 0.5, MatchReason: models.MatchKeyword},
	}, nil)

	assert.Equal(t, []models.ItemKey{
		{Kind: models.KindVenue, ID: 9},
		{Kind: models.KindVenue, ID: 1},
		{Kind: models.KindVenue, ID: 5},
	}, keys(got))
}

// ==========================
// Retrieve
// ==========================

func TestRetrieve(t *testing.T) {
	store := storeWith(1, catalog.SampleItems()...)

	tests := []struct {
		name     string
		analysis models.QueryAnalysis
		prev     *models.ConversationContext
		want     []models.ItemKey
	}{
		{
			name:     "greeting retrieves nothing",
			analysis: analysisFor("Salut!", models.IntentGreeting, 0.5, nil),
			want:     []models.ItemKey{},
		},
		{
			name: "cuisine filter keeps only japanese venues",
			analysis: analysisFor("restaurant japonez cu sushi", models.IntentRestaurantSearch, 0.5,
				models.Entities{models.EntityCuisine: {"japanese"}}),
			want: []models.ItemKey{{Kind: models.KindVenue, ID: 3}},
		},
		{
			name:     "stored cuisine preference filters venues",
			analysis: analysisFor("restaurant proaspat", models.IntentRestaurantSearch, 0.5, nil),
			prev:     &models.ConversationContext{Preferences: map[string]string{PreferenceCuisine: "italian"}},
			want:     []models.ItemKey{{Kind: models.KindVenue, ID: 2}},
		},
		{
			name: "event intent only searches events",
			analysis: analysisFor("concert rock", models.IntentEventSearch, 0.5,
				models.Entities{models.EntityEventType: {"concert"}}),
			want: []models.ItemKey{{Kind: models.KindEvent, ID: 1}},
		},
		{
			name:     "weak query falls back to top rated",
			analysis: analysisFor("ceva frumos", models.IntentGeneral, 0, nil),
			want: []models.ItemKey{
				{Kind: models.KindVenue, ID: 3},
				{Kind: models.KindVenue, ID: 1},
				{Kind: models.KindVenue, ID: 2},
				{Kind: models.KindEvent, ID: 3},
				{Kind: models.KindEvent, ID: 1},
				{Kind: models.KindEvent, ID: 2},
			},
		},
		{
			name: "entities suppress the fallback",
			analysis: analysisFor("ceva mexican", models.IntentGeneral, 0,
				models.Entities{models.EntityCuisine: {"mexican"}}),
			want: []models.ItemKey{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRetriever(t, store, embedding.Noop{}, Config{})
			got, err := r.Retrieve(context.Background(), tt.analysis, tt.prev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestRetrieve_FallbackScoresAreZero(t *testing.T) {
	r := newRetriever(t, storeWith(1, catalog.SampleItems()...), embedding.Noop{}, Config{MaxResults: 2})

	got, err := r.Retrieve(context.Background(), analysisFor("hmm", models.IntentGeneral, 0, nil), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, res := range got {
		assert.Zero(t, res.Score)
		assert.Equal(t, models.MatchKeyword, res.MatchReason)
	}
}

func TestRetrieve_EmptyCatalog(t *testing.T) {
	r := newRetriever(t, catalog.NewStore(), embedding.NewHashing(64), Config{})

	for _, in := range []models.Intent{models.IntentRestaurantSearch, models.IntentGeneral} {
		got, err := r.Retrieve(context.Background(), analysisFor("pizza", in, 0, nil), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestRetrieve_SemanticUnavailableKeepsKeywordResults(t *testing.T) {
	store := storeWith(1, catalog.SampleItems()...)
	a := analysisFor("vreau pizza italiana", models.IntentRestaurantSearch, 0.5,
		models.Entities{models.EntityCuisine: {"italian"}})

	tests := []struct {
		name string
		emb  embedding.Provider
		cfg  Config
	}{
		{name: "noop provider", emb: embedding.Noop{}},
		{name: "nil provider", emb: nil},
		{name: "provider errors", emb: failingEmbedder{}},
		{name: "provider times out", emb: slowEmbedder{delay: time.Second}, cfg: Config{Timeout: 30 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRetriever(t, store, tt.emb, tt.cfg)

			start := time.Now()
			got, err := r.Retrieve(context.Background(), a, nil)
			require.NoError(t, err)
			assert.Less(t, time.Since(start), 500*time.Millisecond)

			require.Len(t, got, 1)
			assert.Equal(t, "Pizza Bella", got[0].Item.Title())
			assert.Equal(t, models.MatchKeyword, got[0].MatchReason)
		})
	}
}

func TestRetrieve_SaturatedPoolDoesNotDelayKeywordResults(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	require.NoError(t, pool.Submit(func() {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))

	r := New(storeWith(1, pizzaBella), embedding.NewHashing(32), pool, entity.DefaultVocabulary(),
		Config{Timeout: 100 * time.Millisecond}, logger.NewTestLogger(t))
	a := analysisFor("pizza italiana", models.IntentRestaurantSearch, 0.5, nil)

	start := time.Now()
	got, err := r.Retrieve(context.Background(), a, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pizza Bella", got[0].Item.Title())
	assert.Equal(t, models.MatchKeyword, got[0].MatchReason)
	assert.Less(t, elapsed, time.Second, "retrieval waited %s for a busy pool", elapsed)
}

func TestRetrieve_NonblockingPoolOverloadKeepsKeywordResults(t *testing.T) {
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	require.NoError(t, pool.Submit(func() { <-release }))

	r := New(storeWith(1, pizzaBella), embedding.NewHashing(32), pool, entity.DefaultVocabulary(),
		Config{Timeout: 2 * time.Second}, logger.NewTestLogger(t))
	a := analysisFor("pizza italiana", models.IntentRestaurantSearch, 0.5, nil)

	start := time.Now()
	got, err := r.Retrieve(context.Background(), a, nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.MatchKeyword, got[0].MatchReason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetrieve_BothPathsAgree(t *testing.T) {
	r := newRetriever(t, storeWith(1, catalog.SampleItems()...), embedding.NewHashing(256), Config{})

	a := analysisFor("sushi japonez", models.IntentRestaurantSearch, 0.5, nil)
	got, err := r.Retrieve(context.Background(), a, nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Sushi Zen", got[0].Item.Title())
	assert.Equal(t, models.MatchBoth, got[0].MatchReason)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9, "keyword overlap wins over cosine")
}

func TestRetrieve_ItemVectorsCachedPerGeneration(t *testing.T) {
	store := storeWith(1, catalog.SampleItems()...)
	emb := &countingEmbedder{inner: embedding.NewHashing(64)}
	r := newRetriever(t, store, emb, Config{})
	a := analysisFor("restaurant traditional", models.IntentRestaurantSearch, 0.5, nil)

	_, err := r.Retrieve(context.Background(), a, nil)
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), a, nil)
	require.NoError(t, err)

	emb.mu.Lock()
	require.Len(t, emb.batches, 2)
	assert.Len(t, emb.batches[0], 4, "three venues plus the query")
	assert.Len(t, emb.batches[1], 1, "only the query")
	emb.mu.Unlock()

	next := catalog.NewSnapshot(2, time.Now(), map[models.ItemKind][]models.Item{
		models.KindVenue: {pizzaBella},
	})
	store.Swap(next)
	r.OnSnapshot(next)

	_, err = r.Retrieve(context.Background(), a, nil)
	require.NoError(t, err)

	emb.mu.Lock()
	defer emb.mu.Unlock()
	require.Len(t, emb.batches, 3)
	assert.Len(t, emb.batches[2], 2, "new generation re-embeds its items")
}

func TestRetrieve_CancelledContext(t *testing.T) {
	r := newRetriever(t, storeWith(1, catalog.SampleItems()...), embedding.Noop{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, analysisFor("pizza", models.IntentGeneral, 0, nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindsFor(t *testing.T) {
	tests := []struct {
		intent models.Intent
		want   []models.ItemKind
	}{
		{models.IntentGreeting, nil},
		{models.IntentRestaurantSearch, []models.ItemKind{models.KindVenue}},
		{models.IntentReservation, []models.ItemKind{models.KindVenue}},
		{models.IntentEventSearch, []models.ItemKind{models.KindEvent}},
		{models.IntentGeneral, models.AllKinds},
		{models.IntentComparison, models.AllKinds},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			assert.Equal(t, tt.want, KindsFor(tt.intent))
		})
	}
}
