package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved analysis runs",
	Long:  "Commands for listing, viewing, deleting and summarizing runs recorded by analyze --save.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		campaign, _ := cmd.Flags().GetString("campaign")
		bottleneck, _ := cmd.Flags().GetString("bottleneck")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.RunFilter{
			Campaign:   campaign,
			Bottleneck: model.Metric(strings.ToUpper(bottleneck)),
			Status:     analysis.Status(status),
			Limit:      limit,
			Offset:     offset,
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if outputJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if outputJSON || run.Result == nil {
			return printJSON(cmd.OutOrStdout(), run)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Run %s saved %s\n\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04"))
		formatResult(cmd.OutOrStdout(), *run.Result, "")
		return nil
	},
}

// -- runs delete --

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its metric history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "runs delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted run %s.\n", args[0])
		return nil
	},
}

// -- runs history --

var runsHistoryCmd = &cobra.Command{
	Use:   "history <campaign>",
	Short: "Show how one metric was judged across saved runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("metric")
		metric, err := parseMetric(name)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		points, err := st.MetricHistory(ctx, args[0], metric, limit)
		if err != nil {
			return eris.Wrap(err, "runs history")
		}

		if outputJSON {
			return printJSON(cmd.OutOrStdout(), points)
		}
		if len(points) == 0 {
			fmt.Fprintln(os.Stderr, "No history found.")
			return nil
		}
		formatMetricHistory(cmd.OutOrStdout(), points)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		campaign, _ := cmd.Flags().GetString("campaign")
		filter := store.RunFilter{Campaign: campaign}
		filter.Limit = 10000 // high limit for stats

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("campaign", "", "filter by campaign name")
	runsListCmd.Flags().String("bottleneck", "", "filter by bottleneck metric (CPM, CTR, CPC, MCVR, CVR, CPA)")
	runsListCmd.Flags().String("status", "", "filter by status (ok, no_baseline)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsHistoryCmd.Flags().String("metric", "CPA", "metric to trace")
	runsHistoryCmd.Flags().Int("limit", 30, "max number of points")

	runsStatsCmd.Flags().String("campaign", "", "restrict stats to one campaign")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	runsCmd.AddCommand(runsHistoryCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total        int
	NoBaseline   int
	WithinBand   int
	ByBottleneck map[model.Metric]int
	ByConfidence map[analysis.Confidence]int
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []store.Run) runStats {
	s := runStats{
		Total:        len(runs),
		ByBottleneck: make(map[model.Metric]int),
		ByConfidence: make(map[analysis.Confidence]int),
	}

	for _, r := range runs {
		if r.Status == analysis.StatusNoBaseline {
			s.NoBaseline++
			continue
		}
		s.ByConfidence[r.Confidence]++
		if r.Bottleneck == "" {
			s.WithinBand++
			continue
		}
		s.ByBottleneck[r.Bottleneck]++
	}
	return s
}

func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "No baseline:\t%d\n", s.NoBaseline)
	_, _ = fmt.Fprintf(w, "Within band:\t%d\n", s.WithinBand)
	for _, m := range model.JudgedMetrics {
		if n := s.ByBottleneck[m]; n > 0 {
			_, _ = fmt.Fprintf(w, "  Bottleneck %s:\t%d\n", m, n)
		}
	}
	for _, c := range []analysis.Confidence{analysis.ConfidenceHigh, analysis.ConfidenceMedium, analysis.ConfidenceLow} {
		_, _ = fmt.Fprintf(w, "Confidence %s:\t%d\n", c, s.ByConfidence[c])
	}
	_ = w.Flush()
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCAMPAIGN\tPERIOD\tSTATUS\tBOTTLENECK\tCONFIDENCE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t------\t----------\t----------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Campaign,
			r.Period,
			r.Status,
			orDash(string(r.Bottleneck)),
			r.Confidence,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func formatMetricHistory(out io.Writer, points []store.MetricPoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tCREATED\tCURRENT\tLOWER\tUPPER\tSTATE\tDEVIATION")
	_, _ = fmt.Fprintln(w, "---\t-------\t-------\t-----\t-----\t-----\t---------")
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0f%%\n",
			truncateID(p.RunID),
			p.CreatedAt.Format("2006-01-02 15:04"),
			fmtRate(p.Current),
			fmtRate(p.Lower),
			fmtRate(p.Upper),
			p.State,
			p.Deviation*100,
		)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID to its first 8 characters for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
