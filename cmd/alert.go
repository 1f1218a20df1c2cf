package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/dataset"
	"github.com/sells-group/adperf/internal/monitoring"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Check every campaign against its baseline and post alerts",
	Long:  "Runs one monitoring check over the trailing monitoring.window_days and posts each alert to monitoring.webhook_url when set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mon := cfg.Monitoring
		if window, _ := cmd.Flags().GetInt("window"); window > 0 {
			mon.WindowDays = window
		}

		provider := dataset.NewCache(loadDataset, 0)
		checker := monitoring.NewChecker(
			monitoring.NewCollector(provider),
			monitoring.NewAlerter(mon),
			mon,
		)

		alerts, sent, err := checker.Check(ctx)
		if err != nil {
			return err
		}

		if outputJSON {
			return printJSON(cmd.OutOrStdout(), alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(os.Stderr, "No alerts.")
			return nil
		}
		formatAlerts(cmd.OutOrStdout(), alerts)
		if mon.WebhookURL != "" {
			fmt.Fprintf(os.Stderr, "Sent %d of %d alerts.\n", sent, len(alerts))
		}
		return nil
	},
}

func formatAlerts(out io.Writer, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEVERITY\tTYPE\tCAMPAIGN\tMESSAGE")
	_, _ = fmt.Fprintln(w, "--------\t----\t--------\t-------")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Severity, a.Type, a.Campaign, a.Message)
	}
	_ = w.Flush()
}

func init() {
	alertCmd.Flags().Int("window", 0, "trailing window in days (default from config)")
	rootCmd.AddCommand(alertCmd)
}
