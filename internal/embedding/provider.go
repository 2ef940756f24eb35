// Package embedding turns text into fixed-size vectors for the semantic
// retrieval path. Every provider is optional; callers fall back to keyword
// retrieval when Embed fails.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"venue-recommender/internal/common/config"
	"venue-recommender/internal/nlp/normalize"
)

var (
	ErrUnavailable       = errors.New("EMBEDDING_UNAVAILABLE")
	ErrDimensionMismatch = errors.New("EMBEDDING_DIMENSION_MISMATCH")
)

// Provider embeds a batch of texts. The result has one vector per input, in
// order.
type Provider interface {
	Name() string
	Available() bool
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Open builds the configured provider.
func Open(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.EmbeddingNone, "":
		return Noop{}, nil
	case config.EmbeddingHashing:
		return NewHashing(cfg.Dimensions), nil
	case config.EmbeddingOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// ---------------------------------------------------------------------------

// Noop stands in when no provider is configured.
type Noop struct{}

func (Noop) Name() string    { return config.EmbeddingNone }
func (Noop) Available() bool { return false }
func (Noop) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

// ---------------------------------------------------------------------------

// Hashing is a deterministic bag-of-words embedder: every normalized token is
// hashed into one of dim buckets and the vector is L2-normalized. Texts that
// share tokens get a positive cosine similarity, which is enough for offline
// mode and tests.
type Hashing struct {
	dim int
}

func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Name() string    { return config.EmbeddingHashing }
func (h *Hashing) Available() bool { return true }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range normalize.Tokens(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		v[f.Sum32()%uint32(h.dim)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}

// ---------------------------------------------------------------------------

// OpenAI calls an OpenAI-compatible embeddings endpoint through langchaingo.
type OpenAI struct {
	embedder embeddings.Embedder
	model    string
	timeout  time.Duration
}

func NewOpenAI(cfg config.EmbeddingConfig) (*OpenAI, error) {
	token := cfg.APIKey
	if token == "" {
		// local OpenAI-compatible servers accept any token
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &OpenAI{
		embedder: emb,
		model:    cfg.Model,
		timeout:  time.Duration(cfg.Timeout) * time.Millisecond,
	}, nil
}

func (o *OpenAI) Name() string    { return config.EmbeddingOpenAI }
func (o *OpenAI) Available() bool { return true }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	vecs, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, o.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrDimensionMismatch, len(vecs), len(texts))
	}
	return vecs, nil
}

// ---------------------------------------------------------------------------

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
