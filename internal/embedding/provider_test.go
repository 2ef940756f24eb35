package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/common/config"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EmbeddingConfig
		wantName string
		wantErr  bool
	}{
		{name: "empty is noop", cfg: config.EmbeddingConfig{}, wantName: config.EmbeddingNone},
		{name: "none", cfg: config.EmbeddingConfig{Provider: config.EmbeddingNone}, wantName: config.EmbeddingNone},
		{name: "hashing", cfg: config.EmbeddingConfig{Provider: config.EmbeddingHashing, Dimensions: 64}, wantName: config.EmbeddingHashing},
		{
			name:     "openai",
			cfg:      config.EmbeddingConfig{Provider: config.EmbeddingOpenAI, BaseURL: "http://127.0.0.1:1/v1", Model: "nomic-embed-text"},
			wantName: config.EmbeddingOpenAI,
		},
		{name: "unknown", cfg: config.EmbeddingConfig{Provider: "word2vec"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Open(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNoop(t *testing.T) {
	var p Provider = Noop{}
	assert.False(t, p.Available())

	_, err := p.Embed(context.Background(), []string{"pizza"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHashing_Embed(t *testing.T) {
	h := NewHashing(128)
	vecs, err := h.Embed(context.Background(), []string{
		"Pizza Bella Italian pizza",
		"pizza italiana",
		"Concert Rock în Centrul Vechi",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, v := range vecs {
		assert.Len(t, v, 128)
	}

	t.Run("deterministic", func(t *testing.T) {
		again, err := h.Embed(context.Background(), []string{"Pizza Bella Italian pizza"})
		require.NoError(t, err)
		assert.Equal(t, vecs[0], again[0])
	})

	t.Run("unit length", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine(vecs[0], vecs[0]), 1e-6)
	})

	t.Run("shared tokens score higher", func(t *testing.T) {
		related := Cosine(vecs[0], vecs[1])
		unrelated := Cosine(vecs[0], vecs[2])
		assert.Greater(t, related, 0.3)
		assert.Greater(t, related, unrelated)
	})

	t.Run("empty text is a zero vector", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(vecs[3], vecs[0]))
	})

	t.Run("diacritics converge", func(t *testing.T) {
		a, _ := h.Embed(context.Background(), []string{"mâncare românească"})
		b, _ := h.Embed(context.Background(), []string{"mancare romaneasca"})
		assert.Equal(t, a[0], b[0])
	})
}

func TestHashing_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashing(0).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}
