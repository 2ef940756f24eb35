package analyzequery

import (
	"time"

	"venue-recommender/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MinConfidence below which the analysis is flagged as ambiguous.
	MinConfidence float64
}

func LoadConfig(wcfg config.WorkerConfig, minConfidence float64) *Config {
	cfg := &Config{Timeout: 2 * time.Second, MinConfidence: 0.3}
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	if minConfidence > 0 {
		cfg.MinConfidence = minConfidence
	}
	return cfg
}
