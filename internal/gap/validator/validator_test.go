package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
)

func str(s string) *string { return &s }

func num(f float64) *float64 { return &f }

func TestPages(t *testing.T) {
	pages, err := Pages([]gap.PageRecord{
		{Content: str("best running shoes"), URL: str("/blog/running-shoes")},
		{Content: nil, URL: str("/about")},
		{Content: str(""), URL: str("")},
	})
	require.NoError(t, err)
	assert.Equal(t, []gap.ContentPage{
		{Text: "best running shoes", URL: "/blog/running-shoes"},
		{Text: "", URL: "/about"},
		{Text: "", URL: ""},
	}, pages)
}

func TestPagesMissingURL(t *testing.T) {
	pages, err := Pages([]gap.PageRecord{
		{Content: str("ok"), URL: str("/ok")},
		{Content: str("no url")},
	})
	assert.Nil(t, pages)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingField)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "pages[1].URL")
	assert.Equal(t, "pages[1].URL:URL is required", err.Error())
}

func TestQueries(t *testing.T) {
	queries, err := Queries([]gap.QueryRecord{
		{Queries: str("running shoes"), AvgPos: num(5)},
		{Queries: str(""), AvgPos: num(1.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, []gap.Query{
		{Text: "running shoes", AvgPosition: 5},
		{Text: "", AvgPosition: 1.5},
	}, queries)
}

func TestQueriesMissingFields(t *testing.T) {
	_, err := Queries([]gap.QueryRecord{
		{AvgPos: num(3)},
		{Queries: str("vegan recipes")},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"queries[0].queries": "queries is required",
		"queries[1].avgpos":  "avgpos is required",
	}, ve.Fields)
}

func TestRecordsReportsBothSides(t *testing.T) {
	pages, queries, err := Records(
		[]gap.PageRecord{{Content: str("x")}},
		[]gap.QueryRecord{{Queries: str("x")}},
	)
	assert.Nil(t, pages)
	assert.Nil(t, queries)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)
}

func TestRecordsEmptyCollections(t *testing.T) {
	pages, queries, err := Records(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, pages)
	assert.Empty(t, queries)
}
