// Package report renders recommendation lists for people and spreadsheets:
// a boxed text table for terminals, CSV for download, Markdown for pasting
// into documents, and JSON for other tools. It also summarises the score
// and quality distribution of a run.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts table, csv, markdown (or md) and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Columns are the headers of the tabular formats. They match the input
// column names so an exported sheet can be joined back to its source.
var Columns = []string{"queries", "avgpos", "recommendation", "relevance_score", "match_quality"}

// Render writes recs to w in the given format.
func Render(w io.Writer, recs []gap.Recommendation, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []gap.Recommendation{}
		}
		return enc.Encode(recs)
	}

	sh := newSheet(Columns)
	sh.alignRight = []int{2, 4}
	for _, rec := range recs {
		sh.append(
			rec.QueryText,
			FormatNumber(rec.AvgPosition),
			rec.Action.String(),
			FormatNumber(rec.RelevanceScore),
			string(rec.MatchQuality),
		)
	}
	return sh.write(w, format)
}

// FormatNumber prints a float without trailing zeros: 5, 3.25, 130.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sheet holds string cells for the tabular formats. Tables and Markdown
// are drawn by go-pretty; CSV goes through encoding/csv so quotes are
// doubled as RFC 4180 requires.
type sheet struct {
	header     []string
	rows       [][]string
	footer     []string
	alignRight []int // 1-based column numbers
}

func newSheet(header []string) *sheet {
	return &sheet{header: header}
}

func (s *sheet) append(cells ...string) {
	s.rows = append(s.rows, cells)
}

func (s *sheet) write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		cw.Write(s.header)
		cw.WriteAll(s.rows)
		if s.footer != nil {
			cw.Write(s.footer)
		}
		cw.Flush()
		return cw.Error()
	case FormatTable, FormatMarkdown:
	default:
		return fmt.Errorf("unsupported table format %q", format)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(toRow(s.header))
	for _, r := range s.rows {
		tw.AppendRow(toRow(r))
	}
	if s.footer != nil {
		tw.AppendFooter(toRow(s.footer))
	}
	configs := make([]table.ColumnConfig, 0, len(s.alignRight))
	for _, n := range s.alignRight {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	out := tw.Render()
	if format == FormatMarkdown {
		out = tw.RenderMarkdown()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
