package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/recommender"
)

// healthCheck is a dependency probed by /ready.
type healthCheck interface {
	Name() string
	Ping(ctx context.Context) error
}

func newRouter(engine *recommender.Engine, store *catalog.Store, checks []healthCheck, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				log.Warn("readiness check failed", zap.String("dependency", c.Name()), zap.Error(err))
				deps[c.Name()] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[c.Name()] = "ok"
		}
		snap := store.Current()
		if snap.Len() == 0 {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]interface{}{
			"status":       http.StatusText(status),
			"dependencies": deps,
			"catalog": map[string]interface{}{
				"generation": snap.Generation(),
				"items":      snap.Counts(),
			},
			"time": time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		m := engine.Metrics()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"performance":    m,
			"cacheHitRate":   m.CacheHitRate(),
			"activeSessions": engine.Memory().Len(),
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
