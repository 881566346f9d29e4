// Package filter narrows a recommendation list by explicit parameters. The
// zero Params keeps everything; filtering never reorders.
package filter

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
)

// ActionFilter selects recommendations by action kind.
type ActionFilter string

const (
	ActionAny    ActionFilter = ""
	ActionAdd    ActionFilter = "add"
	ActionCreate ActionFilter = "create"
)

// ParseAction maps "add", "create" or "" (any) to an ActionFilter.
func ParseAction(s string) (ActionFilter, error) {
	switch f := ActionFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case ActionAny, ActionAdd, ActionCreate:
		return f, nil
	default:
		return "", fmt.Errorf("unknown action filter %q (want add or create)", s)
	}
}

// Params are the filter criteria. Empty Qualities means every quality;
// MinScore and MaxPosition are ignored when zero.
type Params struct {
	Qualities   []gap.MatchQuality `json:"qualities,omitempty"`
	Action      ActionFilter       `json:"action,omitempty"`
	MinScore    float64            `json:"min_score,omitempty"`
	MaxPosition float64            `json:"max_position,omitempty"`
}

// IsZero reports whether p keeps every recommendation.
func (p Params) IsZero() bool {
	return len(p.Qualities) == 0 && p.Action == ActionAny && p.MinScore == 0 && p.MaxPosition == 0
}

// ParseQualities parses a comma-separated list such as "High,Medium".
func ParseQualities(s string) ([]gap.MatchQuality, error) {
	var out []gap.MatchQuality
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		q, err := gap.ParseQuality(part)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Keep reports whether rec satisfies p.
func (p Params) Keep(rec gap.Recommendation) bool {
	if len(p.Qualities) > 0 && !containsQuality(p.Qualities, rec.MatchQuality) {
		return false
	}
	switch p.Action {
	case ActionAdd:
		if rec.Action.Kind != gap.ActionAddToURL {
			return false
		}
	case ActionCreate:
		if rec.Action.Kind != gap.ActionCreateNewContent {
			return false
		}
	}
	if p.MinScore > 0 && rec.RelevanceScore < p.MinScore {
		return false
	}
	if p.MaxPosition > 0 && rec.AvgPosition > p.MaxPosition {
		return false
	}
	return true
}

// Apply returns the recommendations that satisfy p, in their original order.
func Apply(recs []gap.Recommendation, p Params) []gap.Recommendation {
	if p.IsZero() {
		return recs
	}
	out := make([]gap.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if p.Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func containsQuality(qs []gap.MatchQuality, q gap.MatchQuality) bool {
	for _, candidate := range qs {
		if candidate == q {
			return true
		}
	}
	return false
}
