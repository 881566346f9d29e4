package report

import (
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
)

// Bucket labels of the relevance score histogram.
const (
	BucketZero       = "0"
	BucketLow        = "(0, 40]"
	BucketMedium     = "(40, 70]"
	BucketHigh       = "(70, 100]"
	BucketPhraseOver = "> 100"
)

var bucketOrder = []string{BucketZero, BucketLow, BucketMedium, BucketHigh, BucketPhraseOver}

// Summary describes the distribution of a run's recommendations.
type Summary struct {
	Total          int                      `json:"total"`
	ByQuality      map[gap.MatchQuality]int `json:"by_quality"`
	ByAction       map[gap.ActionKind]int   `json:"by_action"`
	ScoreBuckets   map[string]int           `json:"score_buckets"`
	MeanRelevance  float64                  `json:"mean_relevance"`
	TopTargetPages []PageCount              `json:"top_target_pages,omitempty"`
}

// PageCount is the number of queries routed to one existing page.
type PageCount struct {
	URL     string `json:"url"`
	Queries int    `json:"queries"`
}

const maxTopPages = 10

// Summarize counts recommendations per quality, action and score bucket.
// MeanRelevance averages matched queries only.
func Summarize(recs []gap.Recommendation) Summary {
	s := Summary{
		Total:        len(recs),
		ByQuality:    make(map[gap.MatchQuality]int, len(gap.Qualities)),
		ByAction:     make(map[gap.ActionKind]int, 2),
		ScoreBuckets: make(map[string]int, len(bucketOrder)),
	}
	for _, q := range gap.Qualities {
		s.ByQuality[q] = 0
	}
	s.ByAction[gap.ActionAddToURL] = 0
	s.ByAction[gap.ActionCreateNewContent] = 0
	for _, b := range bucketOrder {
		s.ScoreBuckets[b] = 0
	}

	var sum float64
	var matched int
	pageCounts := make(map[string]int)
	var pageOrder []string
	for _, rec := range recs {
		s.ByQuality[rec.MatchQuality]++
		s.ByAction[rec.Action.Kind]++
		s.ScoreBuckets[bucketFor(rec.RelevanceScore)]++
		if rec.Action.Kind == gap.ActionAddToURL {
			sum += rec.RelevanceScore
			matched++
			if _, seen := pageCounts[rec.Action.URL]; !seen {
				pageOrder = append(pageOrder, rec.Action.URL)
			}
			pageCounts[rec.Action.URL]++
		}
	}
	if matched > 0 {
		s.MeanRelevance = round2(sum / float64(matched))
	}
	s.TopTargetPages = topPages(pageCounts, pageOrder)
	return s
}

func bucketFor(score float64) string {
	switch {
	case score <= 0:
		return BucketZero
	case score <= 40:
		return BucketLow
	case score <= 70:
		return BucketMedium
	case score <= 100:
		return BucketHigh
	default:
		return BucketPhraseOver
	}
}

// topPages orders pages by query count, first appearance breaking ties.
func topPages(counts map[string]int, order []string) []PageCount {
	out := make([]PageCount, 0, len(order))
	for _, url := range order {
		out = append(out, PageCount{URL: url, Queries: counts[url]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Queries > out[j].Queries
	})
	if len(out) > maxTopPages {
		out = out[:maxTopPages]
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// RenderSummary writes s as a set of small tables, or as JSON.
func RenderSummary(w io.Writer, s Summary, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	quality := newSheet([]string{"match_quality", "queries"})
	quality.alignRight = []int{2}
	for _, q := range gap.Qualities {
		quality.append(string(q), strconv.Itoa(s.ByQuality[q]))
	}
	quality.footer = []string{"total", strconv.Itoa(s.Total)}
	if err := quality.write(w, format); err != nil {
		return err
	}

	buckets := newSheet([]string{"relevance_score", "queries"})
	buckets.alignRight = []int{2}
	for _, b := range bucketOrder {
		buckets.append(b, strconv.Itoa(s.ScoreBuckets[b]))
	}
	buckets.footer = []string{"mean (matched)", FormatNumber(s.MeanRelevance)}
	if err := buckets.write(w, format); err != nil {
		return err
	}

	if len(s.TopTargetPages) == 0 {
		return nil
	}
	pages := newSheet([]string{"url", "queries"})
	pages.alignRight = []int{2}
	for _, p := range s.TopTargetPages {
		pages.append(p.URL, strconv.Itoa(p.Queries))
	}
	return pages.write(w, format)
}
