package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/cache"
	"github.com/tanmvo/skate-ai-2-sub002/internal/chat"
	"github.com/tanmvo/skate-ai-2-sub002/internal/circuitbreaker"
	cfg "github.com/tanmvo/skate-ai-2-sub002/internal/config"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
	"github.com/tanmvo/skate-ai-2-sub002/internal/health"
	"github.com/tanmvo/skate-ai-2-sub002/internal/httpapi"
	_ "github.com/tanmvo/skate-ai-2-sub002/internal/metrics" // Import for side effects
	"github.com/tanmvo/skate-ai-2-sub002/internal/replay"
	"github.com/tanmvo/skate-ai-2-sub002/internal/search"
	"github.com/tanmvo/skate-ai-2-sub002/internal/streaming"
	"github.com/tanmvo/skate-ai-2-sub002/internal/tracing"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	conf, err := cfg.Load()
	if err != nil {
		logger.Warn("Config file unavailable, using env/defaults", zap.Error(err))
		conf = cfg.Default()
	}

	// Hot reload for runtime-tunable settings. Structural settings (ports,
	// database) keep their boot-time values until restart.
	cfgPath := cfg.Path()
	cfgManager, err := cfg.NewManager(filepath.Dir(cfgPath), logger)
	if err != nil {
		logger.Warn("Config watcher unavailable", zap.Error(err))
	} else {
		cfgManager.RegisterHandler(filepath.Base(cfgPath), func(event cfg.ChangeEvent) error {
			if event.Action == "delete" || event.Action == "initial_load" {
				return nil
			}
			updated, err := cfg.LoadFile(cfgPath)
			if err != nil {
				return err
			}
			streaming.Configure(updated.Streaming.RingCapacity)
			logger.Info("Runtime configuration reloaded",
				zap.String("file", event.File),
				zap.Int("stream_ring_capacity", updated.Streaming.RingCapacity))
			return nil
		})
		if err := cfgManager.Start(); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer cfgManager.Stop()
		}
	}

	// Start circuit breaker metrics collection
	circuitbreaker.StartMetricsCollection()

	// Tracing
	if err := tracing.Initialize(tracing.Config{
		Enabled:      conf.Tracing.Enabled,
		OTLPEndpoint: conf.Tracing.Endpoint,
	}, logger); err != nil {
		logger.Warn("Tracing initialization failed", zap.Error(err))
	}

	// Database client with async write workers
	dbClient, err := db.NewClient(conf.Database.ToDB(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database client", zap.Error(err))
	}
	defer dbClient.Close()

	hm := health.NewManager(logger)
	_ = hm.Register(health.NewPostgresChecker(dbClient.DB()))

	// Optional Redis-backed document cache; falls back to in-process LRU
	var docCache cache.Store = cache.NewLocalLRU(1024)
	if conf.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr()})
		wrapper := circuitbreaker.NewRedisWrapper(rc, "documents", logger)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := wrapper.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis unavailable, using in-process cache", zap.Error(err))
		} else {
			docCache = cache.NewRedisStoreFromWrapper(wrapper)
			_ = hm.Register(health.NewRedisChecker(wrapper))
			defer wrapper.Close()
		}
	}

	// Similarity search client
	search.Initialize(conf.Search, logger)
	if conf.Search.Enabled {
		base := fmt.Sprintf("http://%s:%d", conf.Search.Host, conf.Search.Port)
		_ = hm.Register(health.NewSearchChecker(base))
	}

	// Pipeline stages
	source := documents.NewSource(dbClient, docCache, conf.Documents, logger)
	replayer := replay.NewReplayer(search.Get(), conf.Replay, logger)
	streaming.Configure(conf.Streaming.RingCapacity)
	chatSvc := chat.NewService(dbClient, replayer, source, streaming.Get(), logger)

	// API server
	mux := http.NewServeMux()
	health.NewHandler(hm).RegisterRoutes(mux)
	httpapi.NewStreamingHandler(streaming.Get(), logger).RegisterRoutes(mux)
	httpapi.NewChatHandler(chatSvc, logger).RegisterRoutes(mux)
	httpapi.NewDocumentsHandler(dbClient, source, logger).RegisterRoutes(mux)

	apiServer := &http.Server{
		Addr:        ":" + strconv.Itoa(conf.Server.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info("API server listening", zap.Int("port", conf.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + strconv.Itoa(conf.Server.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("Metrics server listening", zap.Int("port", conf.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}
}
