package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalRuns      int64            `json:"total_runs"`
	TotalQueries   int64            `json:"total_queries"`
	TotalPages     int64            `json:"total_pages"`
	MatchedQueries int64            `json:"matched_queries"`
	CoverageRate   float64          `json:"coverage_rate"`
	ByQuality      map[string]int64 `json:"by_quality"`
	CacheHits      int64            `json:"cache_hits"`
	CacheMisses    int64            `json:"cache_misses"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	P50LatencyMs   int64            `json:"p50_latency_ms"`
	P95LatencyMs   int64            `json:"p95_latency_ms"`
	P99LatencyMs   int64            `json:"p99_latency_ms"`
	LargestRuns    []RunSize        `json:"largest_runs"`
	RunsPerMinute  float64          `json:"runs_per_minute"`
	LastRunAt      *time.Time       `json:"last_run_at,omitempty"`
}

type RunSize struct {
	RunID   string `json:"run_id"`
	Queries int    `json:"queries"`
}

// Aggregator folds AnalysisEvents into running totals. It is safe for
// concurrent use.
type Aggregator struct {
	mu        sync.RWMutex
	stats     AggregatedStats
	latencies []int64
	runs      []RunSize
	startTime time.Time
	logger    *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		stats:     AggregatedStats{ByQuality: make(map[string]int64)},
		latencies: make([]int64, 0, 1024),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start consumes events from consumer until ctx is cancelled. The consumer
// must have been built with HandleEvent(a).
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// HandleEvent adapts agg to a Kafka message handler. Undecodable messages
// are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[AnalysisEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		if event.Type != EventAnalysis {
			agg.logger.Debug("ignoring analytics event", "type", event.Type)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Publish records an in-process event, letting the aggregator stand in for
// the Kafka producer when no broker is configured.
func (a *Aggregator) Publish(_ context.Context, event kafka.Event) error {
	ev, ok := event.Value.(AnalysisEvent)
	if !ok {
		return fmt.Errorf("unexpected analytics payload %T", event.Value)
	}
	a.Record(ev)
	return nil
}

// Record adds one run to the totals.
func (a *Aggregator) Record(event AnalysisEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalRuns++
	a.stats.TotalQueries += int64(event.Queries)
	a.stats.TotalPages += int64(event.Pages)
	a.stats.MatchedQueries += int64(event.Matched)
	for q, n := range event.ByQuality {
		a.stats.ByQuality[q] += int64(n)
	}
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if !event.Timestamp.IsZero() {
		if a.stats.LastRunAt == nil || event.Timestamp.After(*a.stats.LastRunAt) {
			ts := event.Timestamp
			a.stats.LastRunAt = &ts
		}
	}

	a.latencies = append(a.latencies, event.LatencyMs)
	if len(a.latencies) > maxLatencySamples {
		a.latencies = a.latencies[len(a.latencies)-maxLatencySamples:]
	}
	a.runs = append(a.runs, RunSize{RunID: event.RunID, Queries: event.Queries})
	sort.SliceStable(a.runs, func(i, j int) bool { return a.runs[i].Queries > a.runs[j].Queries })
	if len(a.runs) > 10 {
		a.runs = a.runs[:10]
	}
}

// Stats returns a snapshot of the aggregated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ByQuality = make(map[string]int64, len(a.stats.ByQuality))
	for q, n := range a.stats.ByQuality {
		stats.ByQuality[q] = n
	}
	stats.LargestRuns = append([]RunSize{}, a.runs...)
	if stats.TotalQueries > 0 {
		stats.CoverageRate = float64(stats.MatchedQueries) / float64(stats.TotalQueries)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.RunsPerMinute = float64(stats.TotalRuns) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
