package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
)

const testPages = `Content,URL
Best running shoes reviewed,/blog/running-shoes
Healthy breakfast ideas,/recipes/breakfast
`

const testQueries = `queries,avgpos
running shoes,5.2
vegan dessert,18
breakfast,7
`

type cliEnv struct {
	dir     string
	pages   string
	queries string
	db      string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:     dir,
		pages:   filepath.Join(dir, "pages.csv"),
		queries: filepath.Join(dir, "queries.csv"),
		db:      filepath.Join(dir, "history.db"),
	}
	require.NoError(t, os.WriteFile(env.pages, []byte(testPages), 0o600))
	require.NoError(t, os.WriteFile(env.queries, []byte(testQueries), 0o600))
	return env
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", env.db}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAnalyzeCSVToBuffer(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "analyze", "--content", env.pages, "--queries", env.queries)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "queries,avgpos,recommendation,relevance_score,match_quality", lines[0])
	assert.Equal(t, "running shoes,5.2,Add to /blog/running-shoes,130,High", lines[1])
	assert.Equal(t, "vegan dessert,18,Create new content,0,None", lines[2])
	assert.Equal(t, "breakfast,7,Add to /recipes/breakfast,130,High", lines[3])
}

func TestAnalyzeFilteredJSON(t *testing.T) {
	env := setupCLIEnv(t)
	out, stderr, err := runCLI(t, env, "analyze",
		"--content", env.pages, "--queries", env.queries,
		"--format", "json", "--action", "create")
	require.NoError(t, err)

	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "vegan dessert", recs[0]["query_text"])
	assert.Contains(t, stderr, "1 of 3 recommendations shown")
}

func TestAnalyzeCapRelevanceAndSummary(t *testing.T) {
	env := setupCLIEnv(t)
	out, stderr, err := runCLI(t, env, "analyze",
		"--content", env.pages, "--queries", env.queries,
		"--format", "markdown", "--cap-relevance", "--summary", "--workers", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "| running shoes |")
	assert.Contains(t, out, "| 100 |")
	assert.NotContains(t, out, "130")
	assert.Contains(t, out, "match_quality")
	assert.Empty(t, stderr)
}

func TestAnalyzeOutputFile(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.dir, "recommendations_output.csv")
	out, _, err := runCLI(t, env, "analyze", "--content", env.pages, "--queries", env.queries, "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "queries,avgpos,recommendation"))
}

func TestAnalyzeBadFormatHasNoSideEffects(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.dir, "out.xml")
	_, _, err := runCLI(t, env, "analyze",
		"--content", env.pages, "--queries", env.queries,
		"--format", "xml", "-o", target, "--save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "output file must not be created")

	out, _, err := runCLI(t, env, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")
}

func TestAnalyzeMissingField(t *testing.T) {
	env := setupCLIEnv(t)
	bad := filepath.Join(env.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("queries,avgpos\nrunning shoes,\n"), 0o600))

	_, _, err := runCLI(t, env, "analyze", "--content", env.pages, "--queries", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queries[0].avgpos")
}

func TestAnalyzeMissingColumn(t *testing.T) {
	env := setupCLIEnv(t)
	bad := filepath.Join(env.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Content\nsome text\n"), 0o600))

	_, _, err := runCLI(t, env, "analyze", "--content", bad, "--queries", env.queries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL")
}

func TestAnalyzeRequiresInputs(t *testing.T) {
	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env, "analyze", "--content", env.pages)
	assert.Error(t, err)
}

func TestAnalyzeBadFlags(t *testing.T) {
	env := setupCLIEnv(t)
	for _, extra := range [][]string{
		{"--quality", "Great"},
		{"--action", "remove"},
		{"--format", "xml"},
	} {
		args := append([]string{"analyze", "--content", env.pages, "--queries", env.queries}, extra...)
		_, _, err := runCLI(t, env, args...)
		assert.Error(t, err, extra)
	}
}

func TestSaveListShow(t *testing.T) {
	env := setupCLIEnv(t)
	_, stderr, err := runCLI(t, env, "analyze", "--content", env.pages, "--queries", env.queries, "--save")
	require.NoError(t, err)
	require.Contains(t, stderr, "saved run ")
	runID := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(stderr), "saved run "))

	out, _, err := runCLI(t, env, "runs", "list", "--json")
	require.NoError(t, err)
	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 3, runs[0].QueryCount)
	assert.Equal(t, 2, runs[0].MatchedCount)

	out, _, err = runCLI(t, env, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, runID)

	out, _, err = runCLI(t, env, "runs", "show", runID, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "vegan dessert,18,Create new content,0,None")

	_, _, err = runCLI(t, env, "runs", "show", "missing")
	assert.Error(t, err)
}

func TestRunsListEmpty(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		name, format, output string
		want                 string
	}{
		{"auto non-terminal", "auto", "", "csv"},
		{"auto json file", "auto", "out.json", "json"},
		{"auto md file", "auto", "out.md", "markdown"},
		{"auto csv file", "auto", "out.csv", "csv"},
		{"explicit", "table", "out.csv", "table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFormat(tt.format, tt.output, &buf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
