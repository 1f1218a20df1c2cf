package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/cascade"
)

var optionsFlags selectionFlags

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the filter values available for the current selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := optionsFlags.selection()
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}

		opts := cascade.New(ds.Records).Options(sel)
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), opts)
		}
		formatOptions(cmd.OutOrStdout(), opts)
		return nil
	},
}

func init() {
	optionsFlags.register(optionsCmd)
	rootCmd.AddCommand(optionsCmd)
}
