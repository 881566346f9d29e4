// Package handler exposes the analysis service over HTTP: JSON and CSV
// upload analysis, run history, and cache administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis/cache"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/filter"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/logger"
)

// ExportFilename is the attachment name of CSV downloads.
const ExportFilename = "recommendations_output.csv"

// Analyzer is the part of analysis.Service the handler needs.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	Run(ctx context.Context, id string) (*store.Run, error)
	Runs(ctx context.Context, limit int) ([]store.RunSummary, error)
	CacheStats(ctx context.Context) (cache.Stats, error)
	InvalidateCache(ctx context.Context) (int64, error)
}

type Handler struct {
	analyzer       Analyzer
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(analyzer Analyzer, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "analysis-handler"),
	}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
	mux.HandleFunc("POST /api/v1/analyze/upload", h.Upload)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Analyze serves POST /api/v1/analyze with a JSON analysis.Request body.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var req analysis.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	h.analyze(w, r, req, report.FormatJSON)
}

// Upload serves POST /api/v1/analyze/upload: a multipart form with
// "content" and "queries" CSV files plus optional filter fields (quality,
// action, min_score, max_position) and format (json or csv).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	format, err := responseFormat(r.FormValue("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := filterParams(r.FormValue)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pages, err := readUpload(r, "content", loader.ReadPages)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	queries, err := readUpload(r, "queries", loader.ReadQueries)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.analyze(w, r, analysis.Request{Pages: pages, Queries: queries, Filter: params}, format)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, req analysis.Request, format report.Format) {
	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if format == report.FormatCSV {
		h.writeCSV(w, result.Recommendations)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ListRuns serves GET /api/v1/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := h.analyzer.Runs(r.Context(), limit)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun serves GET /api/v1/runs/{id}. format=csv downloads the run's
// recommendations.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	format, err := responseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := h.analyzer.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if format == report.FormatCSV {
		h.writeCSV(w, run.Recommendations)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyzer.CacheStats(r.Context())
	if errors.Is(err, apperrors.ErrCacheDisabled) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"entries":  stats.Entries,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.analyzer.InvalidateCache(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func responseFormat(s string) (report.Format, error) {
	if s == "" {
		return report.FormatJSON, nil
	}
	f, err := report.ParseFormat(s)
	if err != nil {
		return "", err
	}
	if f != report.FormatJSON && f != report.FormatCSV {
		return "", fmt.Errorf("format must be json or csv, got %q", s)
	}
	return f, nil
}

func filterParams(get func(string) string) (filter.Params, error) {
	var p filter.Params
	var err error
	if p.Qualities, err = filter.ParseQualities(get("quality")); err != nil {
		return p, err
	}
	if p.Action, err = filter.ParseAction(get("action")); err != nil {
		return p, err
	}
	if p.MinScore, err = parseFloat(get("min_score"), "min_score"); err != nil {
		return p, err
	}
	if p.MaxPosition, err = parseFloat(get("max_position"), "max_position"); err != nil {
		return p, err
	}
	return p, nil
}

func parseFloat(s, name string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	return f, nil
}

func readUpload[T any](r *http.Request, field string, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "missing %q file", field)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s upload: %w", field, err)
	}
	defer file.Close()

	records, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s upload: %w", field, err)
	}
	return records, nil
}

func (h *Handler) writeCSV(w http.ResponseWriter, recs []gap.Recommendation) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.WriteHeader(http.StatusOK)
	if err := report.Render(w, recs, report.FormatCSV); err != nil {
		h.logger.Error("failed to write csv response", "error", err)
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if verr, ok := analysis.AsValidationError(err); ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("analysis request failed", "error", err)
		if status == http.StatusInternalServerError {
			h.writeError(w, status, "internal error")
			return
		}
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
