package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, SourceStatic, cfg.Catalog.Source)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, EmbeddingHashing, cfg.Embedding.Provider)
	assert.Equal(t, 3600, cfg.Cache.TTL)
	assert.Equal(t, "recs:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 10, cfg.Engine.MaxResults)
	assert.Equal(t, 3, cfg.Engine.WorkerPoolSize)
	assert.InDelta(t, 0.3, cfg.Engine.KeywordThreshold, 1e-9)
	assert.Equal(t, 50, cfg.Conversation.MaxHistory)
	assert.Equal(t, "/companies", cfg.Catalog.VenuesPath)
	assert.Equal(t, "venue-recommender", cfg.Observability.ServiceName)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "catalog:\n  source: static\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "http source without base url",
			body:    "camunda:\n  broker_address: x:1\ncatalog:\n  source: http\n",
			wantErr: "catalog.base_url",
		},
		{
			name:    "unknown cache backend",
			body:    "camunda:\n  broker_address: x:1\ncache:\n  backend: memcached\n",
			wantErr: "cache.backend",
		},
		{
			name:    "redis backend needs address",
			body:    "camunda:\n  broker_address: x:1\ncache:\n  backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "openai needs model",
			body:    "camunda:\n  broker_address: x:1\nembedding:\n  provider: openai\n",
			wantErr: "embedding.model",
		},
		{
			name:    "threshold out of range",
			body:    "camunda:\n  broker_address: x:1\nengine:\n  keyword_threshold: 1.5\n",
			wantErr: "engine.keyword_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CATALOG_URL", "http://catalog.local")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
catalog:
  source: http
  base_url: ${TEST_CATALOG_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.local", cfg.Catalog.BaseURL)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"process-chat-turn": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	wc := GetWorkerConfig(cfg, "process-chat-turn")
	assert.Equal(t, 2, wc.MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "process-chat-turn"))

	def := GetWorkerConfig(cfg, "refresh-catalog")
	assert.True(t, def.Enabled)
	assert.Equal(t, 5, def.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "refresh-catalog"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
