package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/kpi"
)

var (
	breakdownFlags selectionFlags
	breakdownBy    string
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Show the full KPI set per version or per creative",
	RunE: func(cmd *cobra.Command, args []string) error {
		dim, err := kpi.ParseDimension(breakdownBy)
		if err != nil {
			return err
		}
		rows, kctx, err := breakdownFlags.filtered(cmd.Context())
		if err != nil {
			return err
		}

		out := kpi.Breakdown(rows, kctx, dim)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		formatBreakdown(cmd.OutOrStdout(), dim, out)
		return nil
	},
}

func init() {
	breakdownFlags.register(breakdownCmd)
	breakdownCmd.Flags().StringVar(&breakdownBy, "by", "version", "group by version or creative")
	rootCmd.AddCommand(breakdownCmd)
}
