package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/cascade"
	"github.com/sells-group/adperf/internal/kpi"
)

var (
	compareFlags selectionFlags
	compareFrom  string
	compareTo    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare KPIs of two periods under the same filters",
	Long:  "Period A is --from/--to and period B is --compare-from/--compare-to. Label filters apply to both.",
	RunE: func(cmd *cobra.Command, args []string) error {
		selA, err := compareFlags.selection()
		if err != nil {
			return err
		}
		selB, err := compareFlags.selectionFrom(compareFrom, compareTo)
		if err != nil {
			return err
		}
		kctx, err := compareFlags.context(selA)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}

		c := cascade.New(ds.Records)
		a := kpi.Aggregate(c.Apply(selA), kctx)
		b := kpi.Aggregate(c.Apply(selB), kctx)

		deltas := kpi.Compare(a, b)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), deltas)
		}
		formatDeltas(cmd.OutOrStdout(), deltas)
		return nil
	},
}

func init() {
	compareFlags.register(compareCmd)
	compareCmd.Flags().StringVar(&compareFrom, "compare-from", "", "first day of period B (YYYY-MM-DD)")
	compareCmd.Flags().StringVar(&compareTo, "compare-to", "", "last day of period B (YYYY-MM-DD)")
	_ = compareCmd.MarkFlagRequired("compare-from")
	_ = compareCmd.MarkFlagRequired("compare-to")
	rootCmd.AddCommand(compareCmd)
}
