package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/sqlite"
)

const pagesCSV = `Content,URL
Best running shoes reviewed,/blog/running-shoes
Healthy breakfast ideas,/recipes/breakfast
`

const queriesCSV = `queries,avgpos
running shoes,5.2
vegan dessert,18
`

func setupMux(t *testing.T, withStore bool) *http.ServeMux {
	t.Helper()
	opts := analysis.Options{}
	if withStore {
		client, err := sqlite.New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "runs.db")})
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		st := store.NewSQLStore(client.DB, store.SQLite)
		require.NoError(t, st.Migrate(context.Background()))
		opts.Store = st
	}
	mux := http.NewServeMux()
	New(analysis.NewService(opts), 1<<20).Register(mux)
	return mux
}

func do(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile(name, name+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type analyzeResponse struct {
	RunID           string `json:"run_id"`
	Total           int    `json:"total"`
	Saved           bool   `json:"saved"`
	Recommendations []struct {
		QueryText      string  `json:"query_text"`
		Recommendation string  `json:"recommendation"`
		RelevanceScore float64 `json:"relevance_score"`
		MatchQuality   string  `json:"match_quality"`
	} `json:"recommendations"`
}

func TestAnalyzeJSON(t *testing.T) {
	mux := setupMux(t, false)
	body := `{
		"pages": [{"Content": "Best running shoes reviewed", "URL": "/blog/running-shoes"}],
		"queries": [{"queries": "running shoes", "avgpos": 5.2}, {"queries": "vegan dessert", "avgpos": 18}]
	}`
	rec := do(mux, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "Add to /blog/running-shoes", resp.Recommendations[0].Recommendation)
	assert.Equal(t, 130.0, resp.Recommendations[0].RelevanceScore)
	assert.Equal(t, "Create new content", resp.Recommendations[1].Recommendation)
	assert.Equal(t, "None", resp.Recommendations[1].MatchQuality)
}

func TestAnalyzeJSONValidationError(t *testing.T) {
	mux := setupMux(t, false)
	body := `{"pages": [{"Content": "no url"}], "queries": [{"queries": "x"}]}`
	rec := do(mux, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Fields, "pages[0].URL")
	assert.Contains(t, resp.Fields, "queries[0].avgpos")
}

func TestAnalyzeJSONMalformed(t *testing.T) {
	mux := setupMux(t, false)
	rec := do(mux, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadJSONWithFilter(t *testing.T) {
	mux := setupMux(t, false)
	req := uploadRequest(t,
		map[string]string{"content": pagesCSV, "queries": queriesCSV},
		map[string]string{"quality": "High"},
	)
	rec := do(mux, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "running shoes", resp.Recommendations[0].QueryText)
}

func TestUploadCSVDownload(t *testing.T) {
	mux := setupMux(t, false)
	req := uploadRequest(t,
		map[string]string{"content": pagesCSV, "queries": queriesCSV},
		map[string]string{"format": "csv"},
	)
	rec := do(mux, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ExportFilename)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "queries,avgpos,recommendation,relevance_score,match_quality", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "running shoes,5.2,Add to /blog/running-shoes,130,High"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "vegan dessert,18,Create new content,0,None"), lines[2])
}

func TestUploadMissingFile(t *testing.T) {
	mux := setupMux(t, false)
	rec := do(mux, uploadRequest(t, map[string]string{"content": pagesCSV}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "queries")
}

func TestUploadMissingColumn(t *testing.T) {
	mux := setupMux(t, false)
	rec := do(mux, uploadRequest(t,
		map[string]string{"content": "Content\nonly text\n", "queries": queriesCSV}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "URL")
}

func TestUploadBadFilter(t *testing.T) {
	mux := setupMux(t, false)
	for _, fields := range []map[string]string{
		{"quality": "Great"},
		{"action": "delete"},
		{"min_score": "abc"},
		{"format": "markdown"},
	} {
		rec := do(mux, uploadRequest(t, map[string]string{"content": pagesCSV, "queries": queriesCSV}, fields))
		assert.Equal(t, http.StatusBadRequest, rec.Code, fields)
	}
}

func TestRunsRoundTrip(t *testing.T) {
	mux := setupMux(t, true)
	rec := do(mux, uploadRequest(t, map[string]string{"content": pagesCSV, "queries": queriesCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp analyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Saved)

	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []store.RunSummary `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, resp.RunID, list.Runs[0].ID)
	assert.Equal(t, 1, list.Runs[0].MatchedCount)

	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Len(t, run.Recommendations, 2)

	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID+"?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vegan dessert")
}

func TestRunsErrors(t *testing.T) {
	mux := setupMux(t, true)
	rec := do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/runs/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	disabled := setupMux(t, false)
	rec = do(disabled, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheDisabled(t *testing.T) {
	mux := setupMux(t, false)
	rec := do(mux, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = do(mux, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
