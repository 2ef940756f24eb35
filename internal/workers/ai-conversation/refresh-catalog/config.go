package refreshcatalog

import (
	"time"

	"venue-recommender/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig gives the rebuild at least the catalog fetch timeout plus headroom.
func LoadConfig(wcfg config.WorkerConfig, fetchTimeout time.Duration) *Config {
	cfg := &Config{Timeout: 30 * time.Second}
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	if min := fetchTimeout + 5*time.Second; fetchTimeout > 0 && cfg.Timeout < min {
		cfg.Timeout = min
	}
	return cfg
}
