package retrieval

import (
	"context"
	"fmt"
	"time"

	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/embedding"
	"venue-recommender/internal/models"
)

type semanticResult struct {
	hits []models.RankedResult
	err  error
}

// startSemantic launches the embedding path on the worker pool and returns
// at once. It returns nil when the path cannot run at all.
func (r *Retriever) startSemantic(ctx context.Context, idx *itemIndex, analysis models.QueryAnalysis, candidates []models.Item) <-chan semanticResult {
	if !r.embedder.Available() {
		return nil
	}
	text := analysis.Normalized
	if text == "" {
		text = analysis.Query
	}
	if text == "" {
		return nil
	}

	out := make(chan semanticResult, 1)
	task := func() {
		defer func() {
			if p := recover(); p != nil {
				out <- semanticResult{err: fmt.Errorf("semantic path panicked: %v", p)}
			}
		}()
		if err := ctx.Err(); err != nil {
			out <- semanticResult{err: err}
			return
		}
		start := time.Now()
		hits, err := r.semanticMatches(ctx, idx, text, candidates)
		metrics.RetrievalDuration.WithLabelValues("semantic").Observe(time.Since(start).Seconds())
		out <- semanticResult{hits: hits, err: err}
	}
	// A blocking pool waits for a free worker inside Submit; that wait must
	// not hold back the keyword path or outlive the retrieval timeout.
	go func() {
		if err := r.submit(task); err != nil {
			out <- semanticResult{err: fmt.Errorf("worker pool rejected semantic retrieval: %w", err)}
		}
	}()
	return out
}

func (r *Retriever) semanticMatches(ctx context.Context, idx *itemIndex, text string, candidates []models.Item) ([]models.RankedResult, error) {
	missing := idx.missing(candidates)

	texts := make([]string, 0, len(missing)+1)
	for _, it := range missing {
		texts = append(texts, it.SearchText())
	}
	texts = append(texts, text)

	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", embedding.ErrDimensionMismatch, len(vecs), len(texts))
	}
	idx.store(missing, vecs[:len(missing)])
	query := vecs[len(missing)]

	var out []models.RankedResult
	for _, it := range candidates {
		v, ok := idx.vector(it)
		if !ok {
			continue
		}
		sim := embedding.Cosine(query, v)
		if sim > 0 && sim >= r.config.SemanticThreshold {
			out = append(out, models.RankedResult{Item: it, Score: sim, MatchReason: models.MatchSemantic})
		}
	}
	return out, nil
}

func (r *Retriever) submit(task func()) error {
	if r.pool == nil {
		go task()
		return nil
	}
	return r.pool.Submit(task)
}

func (idx *itemIndex) missing(items []models.Item) []models.Item {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var out []models.Item
	for _, it := range items {
		if _, ok := idx.vectors[models.KeyOf(it)]; !ok {
			out = append(out, it)
		}
	}
	return out
}

func (idx *itemIndex) store(items []models.Item, vecs [][]float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, it := range items {
		idx.vectors[models.KeyOf(it)] = vecs[i]
	}
}

func (idx *itemIndex) vector(it models.Item) ([]float32, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.vectors[models.KeyOf(it)]
	return v, ok
}
