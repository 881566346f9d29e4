package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
)

var recs = []gap.Recommendation{
	{QueryText: "running shoes", AvgPosition: 5, Action: gap.AddToURL("/running-shoes"), RelevanceScore: 130, MatchQuality: gap.QualityHigh},
	{QueryText: "vegan recipes", AvgPosition: 12, Action: gap.CreateNewContent(), MatchQuality: gap.QualityNone},
	{QueryText: "trail shoes", AvgPosition: 25, Action: gap.AddToURL("/running-shoes"), RelevanceScore: 50, MatchQuality: gap.QualityMedium},
	{QueryText: "marathon diet", AvgPosition: 3, Action: gap.AddToURL("/marathon"), RelevanceScore: 20, MatchQuality: gap.QualityLow},
}

func queriesOf(rs []gap.Recommendation) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.QueryText)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   []string
	}{
		{"zero keeps all", Params{}, []string{"running shoes", "vegan recipes", "trail shoes", "marathon diet"}},
		{"qualities", Params{Qualities: []gap.MatchQuality{gap.QualityLow, gap.QualityHigh}}, []string{"running shoes", "marathon diet"}},
		{"create only", Params{Action: ActionCreate}, []string{"vegan recipes"}},
		{"add only", Params{Action: ActionAdd}, []string{"running shoes", "trail shoes", "marathon diet"}},
		{"min score", Params{MinScore: 50}, []string{"running shoes", "trail shoes"}},
		{"max position", Params{MaxPosition: 10}, []string{"running shoes", "marathon diet"}},
		{"combined", Params{Action: ActionAdd, MaxPosition: 20, MinScore: 25}, []string{"running shoes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queriesOf(Apply(recs, tt.params)))
		})
	}
}

func TestParseQualities(t *testing.T) {
	qs, err := ParseQualities("High, Medium,,")
	require.NoError(t, err)
	assert.Equal(t, []gap.MatchQuality{gap.QualityHigh, gap.QualityMedium}, qs)

	qs, err = ParseQualities("")
	require.NoError(t, err)
	assert.Empty(t, qs)

	_, err = ParseQualities("high")
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Create ")
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, a)

	a, err = ParseAction("")
	require.NoError(t, err)
	assert.Equal(t, ActionAny, a)

	_, err = ParseAction("delete")
	assert.Error(t, err)
}
