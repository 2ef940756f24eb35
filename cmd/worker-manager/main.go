// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/camunda"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/database"
	httpclient "venue-recommender/internal/common/http"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/observability"
	"venue-recommender/internal/conversation"
	"venue-recommender/internal/embedding"
	"venue-recommender/internal/recommender"
	"venue-recommender/internal/resultcache"
	"venue-recommender/internal/retrieval"

	aq "venue-recommender/internal/workers/ai-conversation/analyze-query"
	gcs "venue-recommender/internal/workers/ai-conversation/get-context-summary"
	pct "venue-recommender/internal/workers/ai-conversation/process-chat-turn"
	rc "venue-recommender/internal/workers/ai-conversation/refresh-catalog"
	rs "venue-recommender/internal/workers/ai-conversation/reset-session"
	rr "venue-recommender/internal/workers/ai-conversation/retrieve-recommendations"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")
	bootLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog fetches and query embeddings get separate pools so a slow
	// refresh never starves retrieval. The search pool rejects instead of
	// queueing; a rejected semantic path leaves keyword results.
	fetchPool, err := ants.NewPool(cfg.Engine.WorkerPoolSize)
	if err != nil {
		zapLog.Fatal("fetch pool init failed", zap.Error(err))
	}
	defer fetchPool.Release()

	searchPool, err := ants.NewPool(cfg.Engine.WorkerPoolSize, ants.WithNonblocking(true))
	if err != nil {
		zapLog.Fatal("search pool init failed", zap.Error(err))
	}
	defer searchPool.Release()

	var checks []healthCheck

	// --- Catalog source clients, only the configured one is dialed ---
	deps := catalog.Deps{HTTP: httpclient.NewClient(config.GetDuration(cfg.Catalog.FetchTimeout))}
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		deps.DB = pg.DB
		checks = append(checks, pg)
		zapLog.Info("PostgreSQL connected successfully")

	case config.SourceElasticsearch:
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deps.ES = esClient.Client
		checks = append(checks, esClient)
		zapLog.Info("Elasticsearch connected successfully")
	}

	source, err := catalog.OpenSource(cfg.Catalog, deps, log)
	if err != nil {
		zapLog.Fatal("catalog source init failed", zap.Error(err))
	}

	// --- Result cache ---
	var rdb *database.RedisClient
	if cfg.Cache.Backend == config.CacheRedis {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks = append(checks, rdb)
		zapLog.Info("Redis connected successfully")
	}

	var redisClient *redis.Client
	if rdb != nil {
		redisClient = rdb.Client
	}
	backend, err := resultcache.Open(cfg.Cache, redisClient)
	if err != nil {
		zapLog.Fatal("result cache init failed", zap.Error(err))
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				zapLog.Error("Error closing result cache", zap.Error(err))
			}
		}()
	}
	cache := resultcache.New(backend, resultcache.Config{
		TTL:       time.Duration(cfg.Cache.TTL) * time.Second,
		Timeout:   config.GetDuration(cfg.Cache.Timeout),
		KeyPrefix: cfg.Cache.KeyPrefix,
	}, log)

	// --- Engine ---
	embedder, err := embedding.Open(cfg.Embedding)
	if err != nil {
		zapLog.Fatal("embedding provider init failed", zap.Error(err))
	}

	store := catalog.NewStore()
	retriever := retrieval.New(store, embedder, searchPool, nil, retrieval.Config{
		MaxResults:        cfg.Engine.MaxResults,
		KeywordThreshold:  cfg.Engine.KeywordThreshold,
		SemanticThreshold: cfg.Engine.SemanticThreshold,
		MinConfidence:     cfg.Engine.MinConfidence,
		Timeout:           config.GetDuration(cfg.Engine.RetrievalTimeout),
	}, log)

	refresher := catalog.NewRefresher(store, source, fetchPool, catalog.RefresherConfig{
		Interval:     config.GetDuration(cfg.Catalog.RefreshInterval),
		FetchTimeout: config.GetDuration(cfg.Catalog.FetchTimeout),
	}, log)
	refresher.OnSwap(retriever.OnSnapshot)

	memory := conversation.NewMemory(conversation.Config{
		MaxHistory:       cfg.Conversation.MaxHistory,
		MaxSearchHistory: cfg.Conversation.MaxSearchHistory,
	})

	engine := recommender.New(recommender.Deps{
		Store:         store,
		Retriever:     retriever,
		Memory:        memory,
		Cache:         cache,
		Refresher:     refresher,
		Observability: obs,
	}, recommender.Config{
		MaxFollowUps: cfg.Engine.MaxFollowUps,
	}, log)

	go refresher.Run(ctx)
	if cfg.Conversation.IdleTimeout > 0 {
		go sweepIdleSessions(ctx, memory, config.GetDuration(cfg.Conversation.IdleTimeout),
			config.GetDuration(cfg.Conversation.SweepInterval), log)
	}

	// --- Init Zeebe Client ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks = append(checks, zeebe)
	zapLog.Info("Zeebe client connected successfully")

	// --- Register workers ---
	workers := registerWorkers(zeebe, cfg, engine, log, zapLog)
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           newRouter(engine, store, checks, zapLog),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping health server", zap.Error(err))
		}
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	m := engine.Metrics()
	zapLog.Info("Worker manager stopped gracefully",
		zap.Int64("totalQueries", m.TotalQueries),
		zap.Float64("cacheHitRate", m.CacheHitRate()),
	)
}

// registerWorkers opens a subscription for every enabled task type.
func registerWorkers(zeebe *camunda.Client, cfg *config.Config, engine *recommender.Engine, log logger.Logger, zapLog *zap.Logger) []*camunda.CamundaWorker {
	handlers := map[string]camunda.JobHandler{}

	if wcfg := config.GetWorkerConfig(cfg, pct.TaskType); wcfg.Enabled {
		handlers[pct.TaskType] = pct.NewHandler(pct.LoadConfig(wcfg), engine, log)
	}
	if wcfg := config.GetWorkerConfig(cfg, aq.TaskType); wcfg.Enabled {
		handlers[aq.TaskType] = aq.NewHandler(aq.LoadConfig(wcfg, cfg.Engine.MinConfidence), engine, log)
	}
	if wcfg := config.GetWorkerConfig(cfg, rr.TaskType); wcfg.Enabled {
		handlers[rr.TaskType] = rr.NewHandler(rr.LoadConfig(wcfg, cfg.Engine.MaxResults), engine, log)
	}
	if wcfg := config.GetWorkerConfig(cfg, gcs.TaskType); wcfg.Enabled {
		handlers[gcs.TaskType] = gcs.NewHandler(gcs.LoadConfig(wcfg), engine, log)
	}
	if wcfg := config.GetWorkerConfig(cfg, rs.TaskType); wcfg.Enabled {
		handlers[rs.TaskType] = rs.NewHandler(rs.LoadConfig(wcfg), engine, log)
	}
	if wcfg := config.GetWorkerConfig(cfg, rc.TaskType); wcfg.Enabled {
		handlers[rc.TaskType] = rc.NewHandler(rc.LoadConfig(wcfg, config.GetDuration(cfg.Catalog.FetchTimeout)), engine, log)
	}

	workers := make([]*camunda.CamundaWorker, 0, len(handlers))
	for taskType, h := range handlers {
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), h, zapLog))
	}
	return workers
}

// sweepIdleSessions drops conversations untouched for longer than maxIdle.
func sweepIdleSessions(ctx context.Context, memory *conversation.Memory, maxIdle, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := memory.EvictIdle(maxIdle); len(evicted) > 0 {
				log.Info("Evicted idle sessions", map[string]interface{}{
					"count":     len(evicted),
					"remaining": memory.Len(),
				})
			}
		}
	}
}
