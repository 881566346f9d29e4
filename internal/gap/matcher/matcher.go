// Package matcher decides, for every search query, whether an existing page
// already covers it. Each page is scored by the share of query tokens found
// in its body text and in its URL, URL evidence weighted higher, with a
// flat bonus when the whole query phrase appears in the URL. The best page
// per query becomes an "add to URL" recommendation; a query no page matches
// becomes "create new content".
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/validator"
)

// Options tunes a Matcher. The zero value matches sequentially and reports
// uncapped relevance scores.
type Options struct {
	// Workers is the number of queries scored concurrently. Values below 2
	// score sequentially.
	Workers int
	// CapRelevance clamps relevance scores to 100. The phrase bonus can
	// otherwise push them up to 130.
	CapRelevance bool
}

// Matcher runs matching over validated or raw inputs.
type Matcher struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	return &Matcher{
		opts:   opts,
		logger: slog.Default().With("component", "matcher"),
	}
}

// Match scores every page for every query and returns one Recommendation
// per query in input order. It is pure and deterministic.
func Match(pages []gap.ContentPage, queries []gap.Query) []gap.Recommendation {
	indexed := indexPages(pages)
	recs := make([]gap.Recommendation, len(queries))
	for i, q := range queries {
		recs[i] = recommend(q, indexed, false)
	}
	return recs
}

// MatchRecords validates raw records and matches them. Structural errors
// fail the whole run before any scoring.
func (m *Matcher) MatchRecords(ctx context.Context, pageRecords []gap.PageRecord, queryRecords []gap.QueryRecord) ([]gap.Recommendation, error) {
	pages, queries, err := validator.Records(pageRecords, queryRecords)
	if err != nil {
		return nil, fmt.Errorf("validating input: %w", err)
	}
	return m.Match(ctx, pages, queries)
}

// Match is the configurable form of the package-level Match. With more
// than one worker, queries are scored concurrently; each query still scans
// pages in input order and results are placed by query index, so the
// output is identical to the sequential run.
func (m *Matcher) Match(ctx context.Context, pages []gap.ContentPage, queries []gap.Query) ([]gap.Recommendation, error) {
	start := time.Now()
	indexed := indexPages(pages)
	recs := make([]gap.Recommendation, len(queries))

	if m.opts.Workers < 2 || len(queries) < 2 {
		for i, q := range queries {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("matching cancelled: %w", err)
			}
			recs[i] = recommend(q, indexed, m.opts.CapRelevance)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.opts.Workers)
		for i, q := range queries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				recs[i] = recommend(q, indexed, m.opts.CapRelevance)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("matching cancelled: %w", err)
		}
	}

	m.logger.Debug("matching complete",
		"pages", len(pages),
		"queries", len(queries),
		"workers", m.opts.Workers,
		"duration", time.Since(start),
	)
	return recs, nil
}

// Best returns the index and score of the best page for a query, or -1 when
// no page scores above zero.
func Best(queryText string, pages []gap.ContentPage) (int, CandidateScore) {
	return best(prepareQuery(queryText), indexPages(pages))
}

func best(q preparedQuery, pages []indexedPage) (int, CandidateScore) {
	bestIdx := -1
	var bestScore CandidateScore
	for i, p := range pages {
		s := score(q, p)
		if s.beats(bestScore) {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx, bestScore
}

func recommend(q gap.Query, pages []indexedPage, capRelevance bool) gap.Recommendation {
	rec := gap.Recommendation{
		QueryText:    q.Text,
		AvgPosition:  q.AvgPosition,
		Action:       gap.CreateNewContent(),
		MatchQuality: gap.QualityNone,
	}
	idx, s := best(prepareQuery(q.Text), pages)
	if idx < 0 {
		return rec
	}
	rec.Action = gap.AddToURL(pages[idx].page.URL)
	rec.RelevanceScore = Relevance(s.CombinedScore)
	if capRelevance && rec.RelevanceScore > 100 {
		rec.RelevanceScore = 100
	}
	rec.MatchQuality = Quality(s.CombinedScore)
	return rec
}
