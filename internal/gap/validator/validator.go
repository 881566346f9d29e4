// Package validator turns raw page and query records into validated gap
// values. A record missing a structural field (URL, query text, average
// position) fails the whole batch; absent page content is treated as empty.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
)

// ValidationError holds per-field validation failure messages, keyed by
// "collection[index].field".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrMissingField
}

// Merge combines validation errors into one. Nil errors are skipped.
func Merge(errs ...error) error {
	merged := &ValidationError{Fields: make(map[string]string)}
	for _, err := range errs {
		if err == nil {
			continue
		}
		ve, ok := err.(*ValidationError)
		if !ok {
			return err
		}
		for k, v := range ve.Fields {
			merged.Fields[k] = v
		}
	}
	if len(merged.Fields) == 0 {
		return nil
	}
	return merged
}

// Pages validates page records. Every record needs a URL; a nil Content
// becomes empty text.
func Pages(records []gap.PageRecord) ([]gap.ContentPage, error) {
	errs := make(map[string]string)
	pages := make([]gap.ContentPage, 0, len(records))
	for i, rec := range records {
		if rec.URL == nil {
			errs[fmt.Sprintf("pages[%d].URL", i)] = "URL is required"
			continue
		}
		var text string
		if rec.Content != nil {
			text = *rec.Content
		}
		pages = append(pages, gap.ContentPage{Text: text, URL: *rec.URL})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return pages, nil
}

// Queries validates query records. Both the query text and the average
// position are required; the text may be empty.
func Queries(records []gap.QueryRecord) ([]gap.Query, error) {
	errs := make(map[string]string)
	queries := make([]gap.Query, 0, len(records))
	for i, rec := range records {
		if rec.Queries == nil {
			errs[fmt.Sprintf("queries[%d].queries", i)] = "queries is required"
		}
		if rec.AvgPos == nil {
			errs[fmt.Sprintf("queries[%d].avgpos", i)] = "avgpos is required"
		}
		if rec.Queries == nil || rec.AvgPos == nil {
			continue
		}
		queries = append(queries, gap.Query{Text: *rec.Queries, AvgPosition: *rec.AvgPos})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return queries, nil
}

// Records validates both collections and reports every missing field from
// either side in one error.
func Records(pageRecords []gap.PageRecord, queryRecords []gap.QueryRecord) ([]gap.ContentPage, []gap.Query, error) {
	pages, pageErr := Pages(pageRecords)
	queries, queryErr := Queries(queryRecords)
	if err := Merge(pageErr, queryErr); err != nil {
		return nil, nil, err
	}
	return pages, queries, nil
}
