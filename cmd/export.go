package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/export"
	"github.com/sells-group/adperf/internal/kpi"
)

var (
	exportFlags      selectionFlags
	exportOut        string
	exportFormat     string
	exportByCampaign bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export daily KPIs as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveExportFormat(exportFormat, exportOut)
		if err != nil {
			return err
		}
		rows, kctx, err := exportFlags.filtered(cmd.Context())
		if err != nil {
			return err
		}
		daily := kpi.Daily(rows, kctx, exportByCampaign)

		if exportOut == "" {
			return export.Write(cmd.OutOrStdout(), format, daily)
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrap(err, "export: create file")
		}
		if err := writeAndClose(f, format, daily); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.String("format", string(format)),
			zap.Int("rows", len(daily)),
		)
		return nil
	},
}

// resolveExportFormat prefers an explicit --format over the file extension.
func resolveExportFormat(flag, path string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	return export.FormatForPath(path), nil
}

func writeAndClose(f io.WriteCloser, format export.Format, daily []kpi.DailyRow) error {
	if err := export.Write(f, format, daily); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (default from --out extension)")
	exportCmd.Flags().BoolVar(&exportByCampaign, "by-campaign", false, "split each day by campaign")
	rootCmd.AddCommand(exportCmd)
}
