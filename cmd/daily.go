package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/kpi"
)

var (
	dailyFlags      selectionFlags
	dailyByCampaign bool
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show KPIs per day",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, kctx, err := dailyFlags.filtered(cmd.Context())
		if err != nil {
			return err
		}

		out := kpi.Daily(rows, kctx, dailyByCampaign)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		formatDaily(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	dailyFlags.register(dailyCmd)
	dailyCmd.Flags().BoolVar(&dailyByCampaign, "by-campaign", false, "split each day by campaign")
	rootCmd.AddCommand(dailyCmd)
}
