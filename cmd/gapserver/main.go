// Command gapserver serves content-gap analysis over HTTP.
//
// It wires the analysis service to its optional backends (Redis result
// cache, PostgreSQL or SQLite run store, Kafka analysis events) according
// to the config file, and exposes the API under /api/v1 with health probes
// and a separate Prometheus metrics port.
//
// Usage:
//
//	go run ./cmd/gapserver [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis/cache"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis/handler"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/matcher"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting gap server",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"workers", cfg.Matcher.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()
	checker.Register("matcher", health.Static(health.StatusUp, "ready"))

	opts := analysis.Options{
		Matcher: matcher.Options{Workers: cfg.Matcher.Workers, CapRelevance: cfg.Matcher.CapRelevance},
		Metrics: m,
		SaveRetry: resilience.Policy{
			MaxAttempts: cfg.Store.SaveAttempts,
		},
	}

	runStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open run store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	if runStore != nil {
		opts.Store = runStore
		checker.Register("store", health.PingCheck(runStore.Ping, true))
		slog.Info("run store ready", "driver", cfg.Store.Driver)
	}

	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts.Cache = cache.New(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents, analytics.HandleEvent(aggregator))
		go func() {
			if err := aggregator.Start(ctx, consumer); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		slog.Info("analysis events streaming to kafka", "topic", cfg.Kafka.Topics.AnalysisEvents)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()
	opts.Tracker = collector

	svc := analysis.NewService(opts)
	h := handler.New(svc, cfg.Server.MaxUploadBytes)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		limiter := middleware.NewLimiter(rl.RequestsPerSecond, rl.Burst, rl.IdleTTL)
		go limiter.Run(ctx)
		chain = middleware.RateLimit(limiter)(chain)
		slog.Info("rate limiting enabled", "rps", rl.RequestsPerSecond, "burst", rl.Burst)
	}
	if len(cfg.Server.AllowOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("gap server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gap server stopped")
}
