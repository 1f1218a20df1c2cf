package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/cascade"
	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
)

const dateLayout = "2006-01-02"

var outputJSON bool

var numbers = message.NewPrinter(language.English)

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print JSON instead of tables")
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fmtAmount renders yen amounts and counts with digit grouping.
func fmtAmount(v float64) string { return numbers.Sprintf("%.0f", v) }

func fmtCount(v int64) string { return numbers.Sprintf("%d", v) }

func fmtRate(v float64) string { return numbers.Sprintf("%.2f", v) }

// fmtValue renders "-" for metrics that are not defined in this context.
func fmtValue(v kpi.Value, render func(float64) string) string {
	amount, ok := v.Get()
	if !ok {
		return "-"
	}
	return render(amount)
}

func fmtDay(d time.Time) string { return d.Format(dateLayout) }

func formatBundle(out io.Writer, b kpi.Bundle) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "View:\t%s\n", b.Context.View)
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", b.Totals.Rows)
	_, _ = fmt.Fprintf(w, "Cost:\t%s\n", fmtAmount(b.Cost))
	_, _ = fmt.Fprintf(w, "Revenue:\t%s\n", fmtAmount(b.Revenue))
	_, _ = fmt.Fprintf(w, "Profit:\t%s\n", fmtAmount(b.Profit))
	_, _ = fmt.Fprintf(w, "Impressions:\t%s\n", fmtValue(b.Impressions, fmtAmount))
	_, _ = fmt.Fprintf(w, "Clicks:\t%s\n", fmtCount(b.Clicks))
	_, _ = fmt.Fprintf(w, "Conversions:\t%s\n", fmtCount(b.Conversions))
	_, _ = fmt.Fprintf(w, "CTR %%:\t%s\n", fmtValue(b.CTR, fmtRate))
	_, _ = fmt.Fprintf(w, "CPM:\t%s\n", fmtValue(b.CPM, fmtAmount))
	_, _ = fmt.Fprintf(w, "CPC:\t%s\n", fmtAmount(b.CPC))
	_, _ = fmt.Fprintf(w, "MCVR %%:\t%s\n", fmtRate(b.MCVR))
	_, _ = fmt.Fprintf(w, "CVR %%:\t%s\n", fmtRate(b.CVR))
	_, _ = fmt.Fprintf(w, "CPA:\t%s\n", fmtAmount(b.CPA))
	_, _ = fmt.Fprintf(w, "MCPA:\t%s\n", fmtAmount(b.MCPA))
	_, _ = fmt.Fprintf(w, "ROAS %%:\t%s\n", fmtAmount(b.ROAS))
	_, _ = fmt.Fprintf(w, "Profit margin %%:\t%s\n", fmtRate(b.ProfitMargin))
	_, _ = fmt.Fprintf(w, "FV exit %%:\t%s\n", fmtRate(b.FirstViewExitRate))
	_, _ = fmt.Fprintf(w, "SV exit %%:\t%s\n", fmtRate(b.SecondViewExitRate))
	_, _ = fmt.Fprintf(w, "Total exit %%:\t%s\n", fmtRate(b.TotalExitRate))
	_, _ = fmt.Fprintf(w, "3s video views:\t%s\n", fmtValue(b.VideoViews3s, fmtAmount))
	_, _ = fmt.Fprintf(w, "Cost per 3s view:\t%s\n", fmtValue(b.CostPerVideoView3s, fmtRate))
	_ = w.Flush()
}

func formatOptions(out io.Writer, o cascade.Options) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(o.Dates.Days) > 0 {
		_, _ = fmt.Fprintf(w, "Dates:\t%s .. %s (%d days)\n", fmtDay(o.Dates.First), fmtDay(o.Dates.Last), len(o.Dates.Days))
	} else {
		_, _ = fmt.Fprintln(w, "Dates:\t-")
	}
	_, _ = fmt.Fprintf(w, "Campaigns:\t%s\n", joinOrDash(o.Campaigns))
	_, _ = fmt.Fprintf(w, "Pages:\t%s\n", joinOrDash(o.Pages))
	_, _ = fmt.Fprintf(w, "Versions:\t%s\n", joinOrDash(o.Versions))
	_, _ = fmt.Fprintf(w, "Creatives:\t%s\n", joinOrDash(o.Creatives))
	_ = w.Flush()
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func formatDaily(out io.Writer, rows []kpi.DailyRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tCAMPAIGN\tCOST\tCLICKS\tCV\tCTR%\tCPC\tCVR%\tCPA\tROAS%")
	_, _ = fmt.Fprintln(w, "----\t--------\t----\t------\t--\t----\t---\t----\t---\t-----")
	for _, r := range rows {
		b := r.Bundle
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			fmtDay(r.Date),
			orDash(r.Campaign),
			fmtAmount(b.Cost),
			fmtCount(b.Clicks),
			fmtCount(b.Conversions),
			fmtValue(b.CTR, fmtRate),
			fmtAmount(b.CPC),
			fmtRate(b.CVR),
			fmtAmount(b.CPA),
			fmtAmount(b.ROAS),
		)
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatRank(out io.Writer, entries []kpi.RankEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCAMPAIGN\tVERSION\tCREATIVE\tCOST\tCV\tCVR%\tCPA")
	_, _ = fmt.Fprintln(w, "-\t--------\t-------\t--------\t----\t--\t----\t---")
	for i, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			e.Campaign,
			orDash(e.Version),
			orDash(e.Creative),
			fmtAmount(e.Cost),
			fmtCount(e.Conversions),
			fmtRate(e.CVR),
			fmtAmount(e.CPA),
		)
	}
	_ = w.Flush()
}

func formatBreakdown(out io.Writer, dim kpi.Dimension, rows []kpi.BreakdownRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "CAMPAIGN\t%s\tCOST\tCLICKS\tCV\tCTR%%\tCPC\tCVR%%\tCPA\tROAS%%\t3S VIEWS\t3S COST\n", strings.ToUpper(string(dim)))
	_, _ = fmt.Fprintln(w, "--------\t-----\t----\t------\t--\t----\t---\t----\t---\t-----\t--------\t-------")
	for _, r := range rows {
		b := r.Bundle
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Campaign,
			r.Label,
			fmtAmount(b.Cost),
			fmtCount(b.Clicks),
			fmtCount(b.Conversions),
			fmtValue(b.CTR, fmtRate),
			fmtAmount(b.CPC),
			fmtRate(b.CVR),
			fmtAmount(b.CPA),
			fmtAmount(b.ROAS),
			fmtValue(b.VideoViews3s, fmtAmount),
			fmtValue(b.CostPerVideoView3s, fmtRate),
		)
	}
	_ = w.Flush()
}

func formatDeltas(out io.Writer, deltas []kpi.Delta) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tA\tB\tCHANGE\tRATE%\tVERDICT")
	_, _ = fmt.Fprintln(w, "------\t-\t-\t------\t-----\t-------")
	for _, d := range deltas {
		change, rate := "-", "-"
		if d.Verdict != kpi.VerdictUnavailable {
			change = fmtRate(d.Change)
			rate = fmtRate(d.ChangeRate * 100)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Metric,
			fmtValue(d.A, fmtRate),
			fmtValue(d.B, fmtRate),
			change,
			rate,
			d.Verdict,
		)
	}
	_ = w.Flush()
}

func formatResult(out io.Writer, res analysis.Result, narrative string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Campaign:\t%s\n", res.Campaign)
	_, _ = fmt.Fprintf(w, "Period:\t%s\n", res.Period)
	_, _ = fmt.Fprintf(w, "Summary:\t%s\n", res.Summary.Text())
	_, _ = fmt.Fprintf(w, "Confidence:\t%s (%s)\n", res.Confidence, res.ConfidenceReason)
	if res.Bottleneck != nil {
		_, _ = fmt.Fprintf(w, "Bottleneck:\t%s (%+.0f%%)\n", res.Bottleneck.Metric, res.Bottleneck.Deviation*100)
	} else {
		_, _ = fmt.Fprintln(w, "Bottleneck:\t-")
	}
	_ = w.Flush()

	if len(res.Judgments) > 0 {
		_, _ = fmt.Fprintln(out)
		formatJudgments(out, res.Judgments)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Proposals:")
	for i, p := range res.Proposals {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, p)
	}

	if narrative != "" {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, narrative)
	}
}

func formatJudgments(out io.Writer, judgments []analysis.Judgment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tCURRENT\tLOWER\tUPPER\tSTATE\tDEVIATION")
	_, _ = fmt.Fprintln(w, "------\t-------\t-----\t-----\t-----\t---------")
	for _, j := range judgments {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\n",
			j.Metric,
			fmtRate(j.Current),
			fmtRate(j.Band.Lower),
			fmtRate(j.Band.Upper),
			j.State,
			j.Deviation*100,
		)
	}
	_ = w.Flush()
}

func parseMetric(s string) (model.Metric, error) {
	m := model.Metric(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range model.JudgedMetrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}
