// Package analysis runs one content-gap analysis end to end: validation,
// result caching, matching, run persistence, event tracking and metrics.
// Every collaborator except the matcher is optional.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis/cache"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/filter"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/matcher"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/validator"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/tracing"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// Tracker receives one event per completed run. analytics.Collector
// implements it.
type Tracker interface {
	Track(event analytics.AnalysisEvent)
}

// Request is the input of one analysis.
type Request struct {
	Pages   []gap.PageRecord  `json:"pages"`
	Queries []gap.QueryRecord `json:"queries"`
	Filter  filter.Params     `json:"filter"`
}

// Result is the output of one analysis. Recommendations are filtered;
// Summary and the stored run always cover every query.
type Result struct {
	RunID           string               `json:"run_id"`
	Recommendations []gap.Recommendation `json:"recommendations"`
	Summary         report.Summary       `json:"summary"`
	Total           int                  `json:"total"`
	CacheHit        bool                 `json:"cache_hit"`
	Saved           bool                 `json:"saved"`
}

// Options wires a Service. Nil Cache, Store, Tracker and Metrics disable
// those steps.
type Options struct {
	Matcher matcher.Options
	Cache   *cache.ResultCache
	Store   store.RunStore
	Tracker Tracker
	Metrics *metrics.Metrics
	// SaveRetry governs run persistence. Zero fields take resilience
	// defaults.
	SaveRetry resilience.Policy
}

type Service struct {
	matcher   *matcher.Matcher
	opts      matcher.Options
	cache     *cache.ResultCache
	store     store.RunStore
	tracker   Tracker
	metrics   *metrics.Metrics
	saveRetry resilience.Policy
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	return &Service{
		matcher:   matcher.New(opts.Matcher),
		opts:      opts.Matcher,
		cache:     opts.Cache,
		store:     opts.Store,
		tracker:   opts.Tracker,
		metrics:   opts.Metrics,
		saveRetry: opts.SaveRetry,
		logger:    slog.Default().With("component", "analysis-service"),
		now:       time.Now,
	}
}

// Analyze validates req, matches every query and records the run.
// Validation errors are returned as *validator.ValidationError before
// anything is cached, stored or published. A failure to persist the run is
// logged and reported through Result.Saved, not returned.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	log := logger.FromContext(ctx).With("component", "analysis-service")
	ctx, span := tracing.Start(ctx, "analyze", logger.RequestID(ctx))
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	_, validateSpan := tracing.Start(ctx, "validate", "")
	pages, queries, err := validator.Records(req.Pages, req.Queries)
	validateSpan.End()
	if err != nil {
		span.SetAttr("error", "invalid input")
		s.countRun("invalid")
		return nil, fmt.Errorf("validating input: %w", err)
	}

	matchCtx, matchSpan := tracing.Start(ctx, "match", "")
	recs, cacheStatus, err := s.match(matchCtx, pages, queries)
	matchSpan.SetAttr("cache", cacheStatus)
	matchSpan.End()
	if err != nil {
		span.SetAttr("error", err.Error())
		s.countRun("error")
		return nil, err
	}

	runID := uuid.NewString()
	span.SetAttr("run_id", runID)
	summary := report.Summarize(recs)
	result := &Result{
		RunID:           runID,
		Recommendations: filter.Apply(recs, req.Filter),
		Summary:         summary,
		Total:           len(recs),
		CacheHit:        cacheStatus == "hit",
	}

	if s.store != nil {
		result.Saved = s.save(ctx, &store.Run{
			ID:              runID,
			CreatedAt:       start.UTC(),
			PageCount:       len(pages),
			QueryCount:      len(queries),
			MatchedCount:    summary.ByAction[gap.ActionAddToURL],
			Recommendations: recs,
		})
	}

	elapsed := s.now().Sub(start)
	if s.tracker != nil {
		byQuality := make(map[string]int, len(summary.ByQuality))
		for q, n := range summary.ByQuality {
			byQuality[string(q)] = n
		}
		s.tracker.Track(analytics.AnalysisEvent{
			Type:      analytics.EventAnalysis,
			RunID:     runID,
			Pages:     len(pages),
			Queries:   len(queries),
			Matched:   summary.ByAction[gap.ActionAddToURL],
			ByQuality: byQuality,
			CacheHit:  result.CacheHit,
			LatencyMs: elapsed.Milliseconds(),
			Timestamp: start.UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	s.observe(cacheStatus, elapsed, len(pages), len(queries), summary)
	log.Info("analysis completed",
		"run_id", runID,
		"pages", len(pages),
		"queries", len(queries),
		"matched", summary.ByAction[gap.ActionAddToURL],
		"returned", len(result.Recommendations),
		"cache", cacheStatus,
		"duration", elapsed,
	)
	return result, nil
}

func (s *Service) match(ctx context.Context, pages []gap.ContentPage, queries []gap.Query) ([]gap.Recommendation, string, error) {
	if s.cache == nil {
		recs, err := s.matcher.Match(ctx, pages, queries)
		return recs, "disabled", err
	}
	key, err := cache.Key(pages, queries, s.opts)
	if err != nil {
		return nil, "", err
	}
	recs, hit, err := s.cache.GetOrCompute(ctx, key, func() ([]gap.Recommendation, error) {
		return s.matcher.Match(ctx, pages, queries)
	})
	if err != nil {
		return nil, "", err
	}
	if s.metrics != nil {
		if hit {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	if hit {
		return recs, "hit", nil
	}
	return recs, "miss", nil
}

func (s *Service) save(ctx context.Context, run *store.Run) bool {
	ctx, span := tracing.Start(ctx, "save", "")
	defer span.End()
	err := resilience.Do(ctx, "save-run", s.saveRetry, func(ctx context.Context) error {
		return s.store.SaveRun(ctx, run)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunStoreFailuresTotal.Inc()
		}
		span.SetAttr("error", err.Error())
		logger.FromContext(ctx).Error("analysis run not persisted", "run_id", run.ID, "error", err)
		return false
	}
	return true
}

func (s *Service) countRun(status string) {
	if s.metrics != nil {
		s.metrics.AnalysisRunsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) observe(cacheStatus string, elapsed time.Duration, pages, queries int, summary report.Summary) {
	if s.metrics == nil {
		return
	}
	s.metrics.AnalysisRunsTotal.WithLabelValues("ok").Inc()
	s.metrics.AnalysisDuration.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	s.metrics.AnalysisPages.Observe(float64(pages))
	s.metrics.AnalysisQueries.Observe(float64(queries))
	for q, n := range summary.ByQuality {
		s.metrics.RecommendationsTotal.WithLabelValues(string(q)).Add(float64(n))
	}
}

// Run loads a stored run.
func (s *Service) Run(ctx context.Context, id string) (*store.Run, error) {
	if s.store == nil {
		return nil, apperrors.ErrStoreDisabled
	}
	return s.store.GetRun(ctx, id)
}

// Runs lists stored runs, newest first. limit is clamped to [1, 100];
// zero selects the default of 20.
func (s *Service) Runs(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if s.store == nil {
		return nil, apperrors.ErrStoreDisabled
	}
	switch {
	case limit <= 0:
		limit = defaultRunsLimit
	case limit > maxRunsLimit:
		limit = maxRunsLimit
	}
	return s.store.ListRuns(ctx, limit)
}

// CacheStats reports result cache counters.
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	if s.cache == nil {
		return cache.Stats{}, apperrors.ErrCacheDisabled
	}
	return s.cache.Stats(ctx), nil
}

// InvalidateCache drops every cached result and returns the number of keys
// removed.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, apperrors.ErrCacheDisabled
	}
	return s.cache.Invalidate(ctx)
}

// AsValidationError extracts the validation failure wrapped in err.
func AsValidationError(err error) (*validator.ValidationError, bool) {
	var verr *validator.ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
