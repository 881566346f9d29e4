// Package gap defines the data model of the content-gap analysis: the input
// records read from tabular sources, the validated pages and queries fed to
// the matcher, and the per-query Recommendation it produces.
package gap

import (
	"encoding/json"
	"fmt"
)

// PageRecord is a raw content row as read from a CSV or JSON source. A nil
// field means the column or key was absent.
type PageRecord struct {
	Content *string `json:"Content"`
	URL     *string `json:"URL"`
}

// QueryRecord is a raw query row as read from a CSV or JSON source.
type QueryRecord struct {
	Queries *string  `json:"queries"`
	AvgPos  *float64 `json:"avgpos"`
}

// ContentPage is an existing page that may already cover a query.
type ContentPage struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Query is a search phrase with its average search-result position.
type Query struct {
	Text        string  `json:"text"`
	AvgPosition float64 `json:"avg_position"`
}

// ActionKind tags the variant held by an Action.
type ActionKind string

const (
	ActionAddToURL         ActionKind = "add_to_url"
	ActionCreateNewContent ActionKind = "create_new_content"
)

// Action is what the analysis recommends doing for a query. URL is only set
// for ActionAddToURL.
type Action struct {
	Kind ActionKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
}

// AddToURL returns the action recommending an update to the page at url.
func AddToURL(url string) Action {
	return Action{Kind: ActionAddToURL, URL: url}
}

// CreateNewContent returns the action recommending a new page.
func CreateNewContent() Action {
	return Action{Kind: ActionCreateNewContent}
}

func (a Action) String() string {
	if a.Kind == ActionAddToURL {
		return fmt.Sprintf("Add to %s", a.URL)
	}
	return "Create new content"
}

// MatchQuality buckets a relevance score.
type MatchQuality string

const (
	QualityHigh   MatchQuality = "High"
	QualityMedium MatchQuality = "Medium"
	QualityLow    MatchQuality = "Low"
	QualityNone   MatchQuality = "None"
)

// Qualities lists every MatchQuality from strongest to weakest.
var Qualities = []MatchQuality{QualityHigh, QualityMedium, QualityLow, QualityNone}

// ParseQuality maps a case-sensitive quality name to its MatchQuality.
func ParseQuality(s string) (MatchQuality, error) {
	for _, q := range Qualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown match quality %q", s)
}

// Recommendation is the per-query output of a matching run.
type Recommendation struct {
	QueryText      string       `json:"query_text"`
	AvgPosition    float64      `json:"avg_position"`
	Action         Action       `json:"action"`
	RelevanceScore float64      `json:"relevance_score"`
	MatchQuality   MatchQuality `json:"match_quality"`
}

// MarshalJSON adds the human-readable recommendation text next to the
// structured action.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type plain Recommendation
	return json.Marshal(struct {
		plain
		Recommendation string `json:"recommendation"`
	}{plain(r), r.Action.String()})
}
