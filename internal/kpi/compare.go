package kpi

import (
	"github.com/sells-group/adperf/internal/model"
)

// Verdict says whether a metric moved in its better direction.
type Verdict string

const (
	VerdictBetter      Verdict = "better"
	VerdictWorse       Verdict = "worse"
	VerdictUnchanged   Verdict = "unchanged"
	VerdictUnavailable Verdict = "unavailable"
)

// Delta is the change of one metric from period A to period B.
type Delta struct {
	Metric     model.Metric `json:"metric"`
	A          Value        `json:"a"`
	B          Value        `json:"b"`
	Change     float64      `json:"change"`
	ChangeRate float64      `json:"change_rate"`
	Verdict    Verdict      `json:"verdict"`
}

// ComparedMetrics are the metrics reported by Compare, in display order.
var ComparedMetrics = []model.Metric{
	model.MetricCost, model.MetricRevenue, model.MetricProfit,
	model.MetricImpressions, model.MetricClicks, model.MetricConversions,
	model.MetricCTR, model.MetricCPM, model.MetricCPC,
	model.MetricMCVR, model.MetricCVR, model.MetricCPA, model.MetricROAS,
}

// Compare reports per-metric change from bundle a to bundle b. ChangeRate
// is relative to a and is 0 when a is 0.
func Compare(a, b Bundle) []Delta {
	out := make([]Delta, 0, len(ComparedMetrics))
	for _, m := range ComparedMetrics {
		va, _ := a.Metric(m)
		vb, _ := b.Metric(m)
		d := Delta{Metric: m, A: va, B: vb}
		if !va.Available || !vb.Available {
			d.Verdict = VerdictUnavailable
			out = append(out, d)
			continue
		}
		d.Change = vb.Amount - va.Amount
		d.ChangeRate = SafeDivide(d.Change, va.Amount)
		d.Verdict = verdict(d.Change, model.DefaultDirection(m))
		out = append(out, d)
	}
	return out
}

func verdict(change float64, dir model.Direction) Verdict {
	switch {
	case change == 0:
		return VerdictUnchanged
	case (change > 0) == (dir == model.HigherIsBetter):
		return VerdictBetter
	default:
		return VerdictWorse
	}
}
