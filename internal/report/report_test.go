package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
)

var sample = []gap.Recommendation{
	{QueryText: "running shoes", AvgPosition: 5, Action: gap.AddToURL("/blog/running-shoes"), RelevanceScore: 130, MatchQuality: gap.QualityHigh},
	{QueryText: "vegan recipes", AvgPosition: 12, Action: gap.CreateNewContent(), RelevanceScore: 0, MatchQuality: gap.QualityNone},
	{QueryText: "shoes, cheap", AvgPosition: 3.25, Action: gap.AddToURL("/blog/running-shoes"), RelevanceScore: 30, MatchQuality: gap.QualityLow},
	{QueryText: "marathon plan", AvgPosition: 8, Action: gap.AddToURL("/marathon"), RelevanceScore: 50, MatchQuality: gap.QualityMedium},
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"table": FormatTable, "CSV": FormatCSV, "md": FormatMarkdown, " json ": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, FormatCSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "queries,avgpos,recommendation,relevance_score,match_quality", lines[0])
	assert.Equal(t, "running shoes,5,Add to /blog/running-shoes,130,High", lines[1])
	assert.Equal(t, "vegan recipes,12,Create new content,0,None", lines[2])
	assert.Equal(t, `"shoes, cheap",3.25,Add to /blog/running-shoes,30,Low`, lines[3])
}

func TestRenderCSVRoundTrip(t *testing.T) {
	recs := []gap.Recommendation{
		{QueryText: `shoes, "trail" running`, AvgPosition: 5, Action: gap.AddToURL(`/shoes,"trail"`), RelevanceScore: 70, MatchQuality: gap.QualityMedium},
		{QueryText: "plain", AvgPosition: 2, Action: gap.CreateNewContent(), MatchQuality: gap.QualityNone},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, recs, FormatCSV))
	assert.Contains(t, buf.String(), `"shoes, ""trail"" running"`)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{`shoes, "trail" running`, "5", `Add to /shoes,"trail"`, "70", "Medium"}, rows[1])
	assert.Equal(t, []string{"plain", "2", "Create new content", "0", "None"}, rows[2])
}

func TestRenderSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, Summarize(sample), FormatCSV))
	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"match_quality", "queries"}, rows[0])
	assert.Equal(t, []string{"High", "1"}, rows[1])
	assert.Contains(t, rows, []string{"total", "4"})
	assert.Contains(t, rows, []string{"mean (matched)", "70"})
}

func TestRenderTableAndMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, FormatTable))
	out := buf.String()
	assert.Contains(t, out, "running shoes")
	assert.Contains(t, out, "Create new content")
	assert.Contains(t, out, "match_quality")

	buf.Reset()
	require.NoError(t, Render(&buf, sample, FormatMarkdown))
	assert.Contains(t, buf.String(), "| running shoes |")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample[:2], FormatJSON))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Add to /blog/running-shoes", decoded[0]["recommendation"])
	assert.Equal(t, 130.0, decoded[0]["relevance_score"])
	assert.Equal(t, "create_new_content", decoded[1]["action"].(map[string]any)["kind"])

	buf.Reset()
	require.NoError(t, Render(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ByQuality[gap.QualityHigh])
	assert.Equal(t, 1, s.ByQuality[gap.QualityNone])
	assert.Equal(t, 3, s.ByAction[gap.ActionAddToURL])
	assert.Equal(t, 1, s.ByAction[gap.ActionCreateNewContent])
	assert.Equal(t, map[string]int{
		BucketZero:       1,
		BucketLow:        1,
		BucketMedium:     1,
		BucketHigh:       0,
		BucketPhraseOver: 1,
	}, s.ScoreBuckets)
	assert.Equal(t, 70.0, s.MeanRelevance)
	assert.Equal(t, []PageCount{
		{URL: "/blog/running-shoes", Queries: 2},
		{URL: "/marathon", Queries: 1},
	}, s.TopTargetPages)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.MeanRelevance)
	assert.Empty(t, s.TopTargetPages)
	assert.Equal(t, 0, s.ByQuality[gap.QualityLow])
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, Summarize(sample), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "match_quality")
	assert.Contains(t, out, "> 100")
	assert.Contains(t, out, "/marathon")

	buf.Reset()
	require.NoError(t, RenderSummary(&buf, Summarize(sample), FormatJSON))
	assert.Contains(t, buf.String(), `"mean_relevance": 70`)
}
