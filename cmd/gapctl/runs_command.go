package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/report"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved analysis runs",
	}
	cmd.AddCommand(newRunsListCommand(ctx))
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			runStore, closeStore, err := ctx.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}
			defer closeStore()

			runs, err := runStore.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No saved runs.")
				return nil
			}
			renderRuns(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	var summary bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the recommendations of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runStore, closeStore, err := ctx.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}
			defer closeStore()

			run, err := runStore.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			f, err := resolveFormat(format, "", out)
			if err != nil {
				return err
			}
			if err := report.Render(out, run.Recommendations, f); err != nil {
				return err
			}
			if summary {
				return report.RenderSummary(cmd.ErrOrStderr(), report.Summarize(run.Recommendations), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Output format: auto, table, csv, markdown or json")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the quality and score distribution to stderr")
	return cmd
}

func renderRuns(w io.Writer, runs []store.RunSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Created", "Pages", "Queries", "Matched"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.PageCount,
			r.QueryCount,
			r.MatchedCount,
		})
	}
	tw.Render()
}
