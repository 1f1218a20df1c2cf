package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/kpi"
)

var kpiFlags selectionFlags

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Aggregate KPIs over the selected rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, kctx, err := kpiFlags.filtered(cmd.Context())
		if err != nil {
			return err
		}

		bundle := kpi.Aggregate(rows, kctx)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), bundle)
		}
		formatBundle(cmd.OutOrStdout(), bundle)
		return nil
	},
}

func init() {
	kpiFlags.register(kpiCmd)
	rootCmd.AddCommand(kpiCmd)
}
