package catalog

import (
	"strings"

	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/normalize"
)

// ParseBaselines reads baseline rows with columns campaign, metric, lower,
// upper, median and direction. Japanese and English headers are accepted.
// Rows without a campaign or metric are skipped; a later row for the same
// campaign and metric replaces an earlier one.
func ParseBaselines(rows []model.RawRow) model.Baselines {
	out := model.Baselines{}
	for _, row := range rows {
		campaign := strings.TrimSpace(normalize.Lookup(row, "商材", "campaign"))
		metric := strings.TrimSpace(normalize.Lookup(row, "指標", "metric"))
		if campaign == "" || metric == "" {
			continue
		}
		bands, ok := out[campaign]
		if !ok {
			bands = map[model.Metric]model.Band{}
			out[campaign] = bands
		}
		bands[canonicalMetric(metric)] = model.Band{
			Lower:     normalize.ParseNumber(normalize.Lookup(row, "下限", "lower")),
			Upper:     normalize.ParseNumber(normalize.Lookup(row, "上限", "upper")),
			Median:    normalize.ParseNumber(normalize.Lookup(row, "中央値", "median")),
			Direction: model.ParseDirection(normalize.Lookup(row, "良い方向", "direction")),
		}
	}
	return out
}

// canonicalMetric maps case variants such as "ctr" onto the judged metric names.
func canonicalMetric(name string) model.Metric {
	for _, m := range model.JudgedMetrics {
		if strings.EqualFold(string(m), name) {
			return m
		}
	}
	return model.Metric(name)
}
