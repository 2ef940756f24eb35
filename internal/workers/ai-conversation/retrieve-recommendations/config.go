package retrieverecommendations

import (
	"time"

	"venue-recommender/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	MaxResults int
}

func LoadConfig(wcfg config.WorkerConfig, maxResults int) *Config {
	cfg := &Config{Timeout: 5 * time.Second, MaxResults: 10}
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	if maxResults > 0 {
		cfg.MaxResults = maxResults
	}
	return cfg
}
