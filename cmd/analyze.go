package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/store"
)

var (
	analyzeCampaigns []string
	analyzeWindow    int
	analyzeSave      bool
	analyzeNarrate   bool
)

type analyzeOutput struct {
	analysis.Result
	SummaryText string     `json:"summary_text"`
	Narrative   string     `json:"narrative,omitempty"`
	Run         *store.Run `json:"run,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Judge campaign KPIs against their baseline bands",
	Long:  "Analyzes each --campaign over a trailing --window of days. With no --campaign every campaign that has baseline bands is analyzed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}

		campaigns := analyzeCampaigns
		if len(campaigns) == 0 {
			campaigns = slices.Sorted(maps.Keys(ds.Baselines))
		}
		if len(campaigns) == 0 {
			return fmt.Errorf("no campaigns to analyze: baseline sheet is empty")
		}

		var st store.Store
		if analyzeSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		narrator := initNarrator()
		if analyzeNarrate && narrator == nil {
			zap.L().Warn("anthropic.key is not set, skipping narratives")
		}

		engine := analysis.NewEngine(ds.Baselines)
		outputs := make([]analyzeOutput, 0, len(campaigns))
		for _, name := range campaigns {
			res, err := engine.Run(ds.Records, name, analyzeWindow, ds.Today)
			if err != nil && !errors.Is(err, analysis.ErrNoBaseline) {
				return err
			}
			out := analyzeOutput{Result: res, SummaryText: res.Summary.Text()}

			if analyzeNarrate && narrator != nil && res.Status == analysis.StatusOK {
				text, err := narrator.Narrate(ctx, res)
				if err != nil {
					zap.L().Warn("narrate failed", zap.String("campaign", name), zap.Error(err))
				}
				out.Narrative = text
			}

			if st != nil {
				run, err := st.SaveRun(ctx, res, analyzeWindow)
				if err != nil {
					return err
				}
				out.Run = run
				zap.L().Info("run saved", zap.String("run_id", run.ID), zap.String("campaign", name))
			}
			outputs = append(outputs, out)
		}

		w := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(w, outputs)
		}
		for i, out := range outputs {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			formatResult(w, out.Result, out.Narrative)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeCampaigns, "campaign", nil, "campaign names (default: every campaign with a baseline)")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", 7, "trailing window in days (0 for all time)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "record each result in the run store")
	analyzeCmd.Flags().BoolVar(&analyzeNarrate, "narrate", false, "add a model-written narrative (requires anthropic.key)")
	rootCmd.AddCommand(analyzeCmd)
}
