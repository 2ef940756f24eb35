package retrieval

import (
	"strings"
	"sync"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/normalize"
)

// minPrefixLen matches the entity vocabulary: a token of at least this many
// characters also matches longer words it prefixes ("italian" / "italiana").
const minPrefixLen = 5

// itemIndex caches per-item derived data for one snapshot generation.
type itemIndex struct {
	generation uint64
	tokens     map[models.ItemKey][]string

	mu      sync.Mutex
	vectors map[models.ItemKey][]float32
}

func newItemIndex(snap *catalog.Snapshot) *itemIndex {
	items := snap.ItemsOf(models.AllKinds...)
	idx := &itemIndex{
		generation: snap.Generation(),
		tokens:     make(map[models.ItemKey][]string, len(items)),
		vectors:    make(map[models.ItemKey][]float32),
	}
	for _, it := range items {
		idx.tokens[models.KeyOf(it)] = distinct(normalize.Tokens(it.SearchText()))
	}
	return idx
}

func (r *Retriever) indexFor(snap *catalog.Snapshot) *itemIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil || r.index.generation != snap.Generation() {
		r.index = newItemIndex(snap)
	}
	return r.index
}

// tokensOf returns the cached tokens, computing them for items the index has
// not seen.
func (idx *itemIndex) tokensOf(it models.Item) []string {
	if toks, ok := idx.tokens[models.KeyOf(it)]; ok {
		return toks
	}
	return distinct(normalize.Tokens(it.SearchText()))
}

// keywordMatches scores each candidate by the share of distinct query tokens
// it contains and keeps those at or above threshold.
func keywordMatches(idx *itemIndex, queryTokens []string, candidates []models.Item, threshold float64) []models.RankedResult {
	query := distinct(queryTokens)
	if len(query) == 0 {
		return nil
	}

	var out []models.RankedResult
	for _, it := range candidates {
		score := Overlap(query, idx.tokensOf(it))
		if score > 0 && score >= threshold {
			out = append(out, models.RankedResult{Item: it, Score: score, MatchReason: models.MatchKeyword})
		}
	}
	return out
}

// Overlap is |query ∩ item| / |query| over distinct tokens.
func Overlap(query, item []string) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for _, q := range query {
		for _, t := range item {
			if tokenMatch(q, t) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(query))
}

func tokenMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return len(a) >= minPrefixLen && strings.HasPrefix(b, a)
}

func distinct(toks []string) []string {
	seen := make(map[string]struct{}, len(toks))
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
