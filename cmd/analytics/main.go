// Command analytics runs the standalone analysis-event aggregator.
//
// It consumes analysis events from Kafka, aggregates them in memory (runs,
// query coverage, quality mix, cache hit rate, latency percentiles),
// snapshots the totals into the configured run store database, and serves
// them at GET /api/v1/analytics and GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "listen port; the gap server owns server.port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.AnalysisEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := aggregator.Start(ctx, consumer); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		stats := consumer.Stats()
		msg := fmt.Sprintf("processed=%d failed=%d lag=%d", stats.Processed, stats.Failed, consumer.Lag())
		if stats.Failed > 0 && stats.Processed == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: msg}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: msg}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)

	runStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open snapshot database", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	if runStore != nil {
		snapshots := snapshot.NewStore(runStore.DB(), runStore.Dialect())
		if err := snapshots.Migrate(ctx); err != nil {
			slog.Error("failed to migrate snapshots", "error", err)
			os.Exit(1)
		}
		snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		checker.Register("store", health.PingCheck(runStore.Ping, true))
		mux.HandleFunc("GET /api/v1/analytics/history", historyHandler(snapshots))
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
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
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

func historyHandler(snapshots *snapshot.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 24
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		w.Header().Set("Content-Type", "application/json")
		snaps, err := snapshots.List(r.Context(), limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("listing snapshots failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"snapshots": snaps})
	}
}
