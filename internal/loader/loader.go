// Package loader reads content pages and search queries from the tabular
// exports the analysis consumes: a pages table with Content and URL columns
// and a queries table with queries and avgpos columns, as CSV or JSON.
//
// The loader only checks the shape of the tables. Missing cells become nil
// fields on the returned records and are rejected later by the validator,
// so every structural problem is reported in one place.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
)

const (
	ColumnContent = "Content"
	ColumnURL     = "URL"
	ColumnQueries = "queries"
	ColumnAvgPos  = "avgpos"
)

const utf8BOM = "\ufeff"

// ReadPages reads a pages CSV. The URL column is required; a table without
// a Content column yields records with nil content.
func ReadPages(r io.Reader) ([]gap.PageRecord, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	urlCol, err := requireColumn(header, ColumnURL)
	if err != nil {
		return nil, err
	}
	contentCol := findColumn(header, ColumnContent)

	records := make([]gap.PageRecord, 0, len(rows))
	for _, row := range rows {
		var rec gap.PageRecord
		if contentCol >= 0 {
			if v, ok := cell(row, contentCol); ok {
				rec.Content = &v
			}
		}
		if v, ok := cell(row, urlCol); ok && strings.TrimSpace(v) != "" {
			rec.URL = &v
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadQueries reads a queries CSV. Both the queries and avgpos columns are
// required. An empty avgpos cell is left nil; a non-numeric or non-finite
// one (NaN, Inf) is an error.
func ReadQueries(r io.Reader) ([]gap.QueryRecord, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	queryCol, err := requireColumn(header, ColumnQueries)
	if err != nil {
		return nil, err
	}
	posCol, err := requireColumn(header, ColumnAvgPos)
	if err != nil {
		return nil, err
	}

	records := make([]gap.QueryRecord, 0, len(rows))
	for i, row := range rows {
		var rec gap.QueryRecord
		if v, ok := cell(row, queryCol); ok {
			rec.Queries = &v
		}
		if v, ok := cell(row, posCol); ok && strings.TrimSpace(v) != "" {
			pos, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(pos) || math.IsInf(pos, 0) {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
					"row %d: avgpos %q is not a finite number", i+2, v)
			}
			rec.AvgPos = &pos
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadPagesJSON decodes a JSON array of page records.
func ReadPagesJSON(r io.Reader) ([]gap.PageRecord, error) {
	var records []gap.PageRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding pages JSON: %v", err)
	}
	return records, nil
}

// ReadQueriesJSON decodes a JSON array of query records.
func ReadQueriesJSON(r io.Reader) ([]gap.QueryRecord, error) {
	var records []gap.QueryRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding queries JSON: %v", err)
	}
	return records, nil
}

// ReadPagesFile reads pages from a .csv or .json file.
func ReadPagesFile(path string) ([]gap.PageRecord, error) {
	return readFile(path, ReadPages, ReadPagesJSON)
}

// ReadQueriesFile reads queries from a .csv or .json file.
func ReadQueriesFile(path string) ([]gap.QueryRecord, error) {
	return readFile(path, ReadQueries, ReadQueriesJSON)
}

func readFile[T any](path string, fromCSV, fromJSON func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []T
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", "":
		records, err = fromCSV(f)
	case ".json":
		records, err = fromJSON(f)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "CSV has no header row")
	}
	if err != nil {
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "reading CSV header: %v", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "reading CSV rows: %v", err)
	}
	return header, rows, nil
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func requireColumn(header []string, name string) (int, error) {
	idx := findColumn(header, name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", apperrors.ErrMissingColumn, name)
	}
	return idx, nil
}

func cell(row []string, idx int) (string, bool) {
	if idx >= len(row) {
		return "", false
	}
	return row[idx], true
}
