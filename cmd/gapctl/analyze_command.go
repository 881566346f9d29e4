package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/filter"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/matcher"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/resilience"
)

const formatAuto = "auto"

type analyzeOptions struct {
	content      string
	queries      string
	format       string
	output       string
	quality      string
	action       string
	minScore     float64
	maxPosition  float64
	summary      bool
	save         bool
	workers      int
	capRelevance bool
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recommend, for every query, an existing page to extend or new content to write",
		Long: `Reads a pages table (Content, URL) and a queries table (queries, avgpos),
as CSV or JSON, and prints one recommendation per query.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.content, "content", "", "Pages file with Content and URL columns (.csv or .json)")
	flags.StringVar(&opts.queries, "queries", "", "Queries file with queries and avgpos columns (.csv or .json)")
	flags.StringVarP(&opts.format, "format", "f", formatAuto, "Output format: auto, table, csv, markdown or json")
	flags.StringVarP(&opts.output, "output", "o", "", "Write recommendations to this file instead of stdout")
	flags.StringVar(&opts.quality, "quality", "", "Keep only these match qualities, e.g. High,Medium")
	flags.StringVar(&opts.action, "action", "", "Keep only add (existing page) or create (new content) recommendations")
	flags.Float64Var(&opts.minScore, "min-score", 0, "Keep recommendations with at least this relevance score")
	flags.Float64Var(&opts.maxPosition, "max-position", 0, "Keep queries whose average position is at most this")
	flags.BoolVar(&opts.summary, "summary", false, "Print the quality and score distribution after the table")
	flags.BoolVar(&opts.save, "save", false, "Save the run to the local history database")
	flags.IntVar(&opts.workers, "workers", 0, "Queries scored in parallel (default from config)")
	flags.BoolVar(&opts.capRelevance, "cap-relevance", false, "Clamp relevance scores to 100")
	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("queries")

	return cmd
}

func runAnalyze(cmd *cobra.Command, ctx *commandContext, opts analyzeOptions) (err error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	params, err := opts.filterParams()
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts.format, opts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	pages, err := loader.ReadPagesFile(opts.content)
	if err != nil {
		return err
	}
	queries, err := loader.ReadQueriesFile(opts.queries)
	if err != nil {
		return err
	}

	svcOpts := analysis.Options{
		Matcher: matcher.Options{
			Workers:      cfg.Matcher.Workers,
			CapRelevance: cfg.Matcher.CapRelevance || opts.capRelevance,
		},
		SaveRetry: resilience.Policy{MaxAttempts: cfg.Store.SaveAttempts},
	}
	if cmd.Flags().Changed("workers") {
		svcOpts.Matcher.Workers = opts.workers
	}

	runCtx, cancel := signalContext(cmd.Context())
	defer cancel()

	if opts.save {
		runStore, closeStore, err := ctx.openStore(runCtx)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer closeStore()
		svcOpts.Store = runStore
	}

	result, err := analysis.NewService(svcOpts).Analyze(runCtx, analysis.Request{
		Pages:   pages,
		Queries: queries,
		Filter:  params,
	})
	if err != nil {
		if verr, ok := analysis.AsValidationError(err); ok {
			return fmt.Errorf("input is missing required fields: %s", verr.Error())
		}
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, createErr := os.Create(opts.output)
		if createErr != nil {
			return fmt.Errorf("creating output file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output file: %w", cerr)
			}
		}()
		out = f
	}

	if err := report.Render(out, result.Recommendations, format); err != nil {
		return fmt.Errorf("rendering recommendations: %w", err)
	}
	if opts.summary {
		// Keep a CSV or JSON export parseable: the summary goes to stderr.
		summaryOut := out
		if format == report.FormatCSV || format == report.FormatJSON {
			summaryOut = cmd.ErrOrStderr()
		}
		if err := report.RenderSummary(summaryOut, result.Summary, format); err != nil {
			return fmt.Errorf("rendering summary: %w", err)
		}
	}

	errOut := cmd.ErrOrStderr()
	if len(result.Recommendations) != result.Total {
		fmt.Fprintf(errOut, "%d of %d recommendations shown after filtering\n", len(result.Recommendations), result.Total)
	}
	if opts.save {
		if !result.Saved {
			return fmt.Errorf("run %s could not be saved", result.RunID)
		}
		fmt.Fprintf(errOut, "saved run %s\n", result.RunID)
	}
	return nil
}

func (o analyzeOptions) filterParams() (filter.Params, error) {
	qualities, err := filter.ParseQualities(o.quality)
	if err != nil {
		return filter.Params{}, err
	}
	action, err := filter.ParseAction(o.action)
	if err != nil {
		return filter.Params{}, err
	}
	return filter.Params{
		Qualities:   qualities,
		Action:      action,
		MinScore:    o.minScore,
		MaxPosition: o.maxPosition,
	}, nil
}

// resolveFormat turns "auto" into a concrete format: the output file's
// extension when writing to a file, a table on a terminal, CSV otherwise.
func resolveFormat(name, outputPath string, out io.Writer) (report.Format, error) {
	if !strings.EqualFold(strings.TrimSpace(name), formatAuto) {
		return report.ParseFormat(name)
	}
	if outputPath != "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			return report.FormatJSON, nil
		case ".md":
			return report.FormatMarkdown, nil
		default:
			return report.FormatCSV, nil
		}
	}
	if isTerminal(out) {
		return report.FormatTable, nil
	}
	return report.FormatCSV, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
