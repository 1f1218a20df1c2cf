package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/kpi"
)

var (
	rankFlags selectionFlags
	rankOrder string
	rankLimit int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank converting creatives by CPA or conversions",
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := kpi.ParseRankOrder(rankOrder)
		if err != nil {
			return err
		}
		rows, _, err := rankFlags.filtered(cmd.Context())
		if err != nil {
			return err
		}

		entries := kpi.Rank(rows, order, rankLimit)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		formatRank(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rankFlags.register(rankCmd)
	rankCmd.Flags().StringVar(&rankOrder, "order", "cpa", "sort order: cpa or cv")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 10, "max entries (0 for all)")
	rootCmd.AddCommand(rankCmd)
}
