package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
)

// ErrNoBaseline is returned when the campaign has no baseline bands.
var ErrNoBaseline = eris.New("analysis: no baseline configured")

// Status distinguishes an evaluated result from one that could not be evaluated.
type Status string

const (
	StatusOK         Status = "ok"
	StatusNoBaseline Status = "no_baseline"
)

// SummaryKey names the headline sentence of a result.
type SummaryKey string

const (
	SummaryNoBaseline     SummaryKey = "no_baseline"
	SummaryAllWithinBand  SummaryKey = "all_within_band"
	SummaryCPAAboveBand   SummaryKey = "cpa_above_band"
	SummaryNeedsAttention SummaryKey = "needs_attention"
)

// Summary is the structured headline of a result. Text renders it.
type Summary struct {
	Key             SummaryKey     `json:"key"`
	Campaign        string         `json:"campaign"`
	Period          string         `json:"period"`
	CPADeviationPct int            `json:"cpa_deviation_pct,omitempty"`
	Metrics         []model.Metric `json:"metrics,omitempty"`
}

// Text renders the summary as a sentence.
func (s Summary) Text() string {
	switch s.Key {
	case SummaryNoBaseline:
		return fmt.Sprintf("No baseline is configured for %q.", s.Campaign)
	case SummaryAllWithinBand:
		return fmt.Sprintf("All metrics for %s are stable within baseline.", s.Period)
	case SummaryCPAAboveBand:
		return fmt.Sprintf("CPA for %s is +%d%% above baseline.", s.Period, s.CPADeviationPct)
	case SummaryNeedsAttention:
		names := make([]string, len(s.Metrics))
		for i, m := range s.Metrics {
			names[i] = string(m)
		}
		return fmt.Sprintf("%s has room to improve %s.", upperFirst(s.Period), strings.Join(names, ", "))
	default:
		return ""
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Result is the outcome of analyzing one campaign over one period.
type Result struct {
	Campaign         string     `json:"campaign"`
	Period           string     `json:"period"`
	Status           Status     `json:"status"`
	Summary          Summary    `json:"summary"`
	Confidence       Confidence `json:"confidence"`
	ConfidenceReason string     `json:"confidence_reason"`
	Conversions      int64      `json:"conversions"`
	Bottleneck       *Judgment  `json:"bottleneck,omitempty"`
	Proposals        []string   `json:"proposals"`
	Judgments        []Judgment `json:"judgments"`
}

// BottleneckMetric returns the bottleneck's metric, or "" when there is none.
func (r Result) BottleneckMetric() model.Metric {
	if r.Bottleneck == nil {
		return ""
	}
	return r.Bottleneck.Metric
}

// Engine analyzes bundles against a fixed set of baselines.
type Engine struct {
	baselines model.Baselines
}

// NewEngine returns an Engine over baselines.
func NewEngine(baselines model.Baselines) *Engine {
	return &Engine{baselines: baselines}
}

// Analyze judges every baseline metric of bundle for campaign. period is
// a display label such as "last 7 days". When the campaign has no bands
// the returned Result has StatusNoBaseline and the error is ErrNoBaseline.
func (e *Engine) Analyze(campaign, period string, bundle kpi.Bundle) (Result, error) {
	res := Result{Campaign: campaign, Period: period}

	bands, ok := e.baselines.For(campaign)
	if !ok {
		res.Status = StatusNoBaseline
		res.Summary = Summary{Key: SummaryNoBaseline, Campaign: campaign, Period: period}
		res.Confidence = ConfidenceLow
		res.ConfidenceReason = "no baseline"
		res.Proposals = []string{ProposalConfigureBand}
		res.Judgments = []Judgment{}
		return res, ErrNoBaseline
	}

	res.Status = StatusOK
	res.Conversions = bundle.Conversions
	res.Confidence = ConfidenceFor(bundle.Conversions)
	res.ConfidenceReason = confidenceReason(res.Confidence, bundle.Conversions)

	res.Judgments = make([]Judgment, 0, len(model.JudgedMetrics))
	for _, m := range model.JudgedMetrics {
		band, ok := bands[m]
		if !ok {
			continue
		}
		v, ok := bundle.Metric(m)
		if !ok || !v.Available {
			continue
		}
		res.Judgments = append(res.Judgments, Judge(m, v.Amount, band))
	}

	if worst, ok := FindBottleneck(res.Judgments); ok {
		res.Bottleneck = &worst
		zap.L().Debug("analysis: bottleneck",
			zap.String("campaign", campaign),
			zap.String("metric", string(worst.Metric)),
			zap.Float64("deviation", worst.Deviation),
		)
	}
	res.Proposals = Proposals(res.BottleneckMetric())
	res.Summary = summarize(campaign, period, res.Judgments)

	return res, nil
}

// Run analyzes the rows of campaign dated within the window days ending
// with today, so a window of 7 is today and the six days before it.
// window <= 0 analyzes all rows. today is a calendar day as returned by
// model.Day.
func (e *Engine) Run(rows []model.Record, campaign string, window int, today time.Time) (Result, error) {
	var cutoff time.Time
	if window > 0 {
		cutoff = today.AddDate(0, 0, -(window - 1))
	}

	var subset []model.Record
	for _, r := range rows {
		if r.Campaign != campaign {
			continue
		}
		if !cutoff.IsZero() && r.Date.Before(cutoff) {
			continue
		}
		subset = append(subset, r)
	}

	bundle := kpi.Aggregate(subset, kpi.Context{View: kpi.ViewTotal})
	return e.Analyze(campaign, PeriodLabel(window), bundle)
}

// PeriodLabel describes a trailing window in days.
func PeriodLabel(window int) string {
	if window <= 0 {
		return "all time"
	}
	if window == 1 {
		return "the last day"
	}
	return fmt.Sprintf("the last %d days", window)
}

func summarize(campaign, period string, judgments []Judgment) Summary {
	s := Summary{Campaign: campaign, Period: period}

	var problems []model.Metric
	var cpa *Judgment
	for i := range judgments {
		j := &judgments[i]
		if j.State.Bad() {
			problems = append(problems, j.Metric)
		}
		if j.Metric == model.MetricCPA {
			cpa = j
		}
	}

	switch {
	case len(problems) == 0:
		s.Key = SummaryAllWithinBand
	case cpa != nil && cpa.State == StateHigh:
		s.Key = SummaryCPAAboveBand
		s.CPADeviationPct = int(math.Round(cpa.Deviation * 100))
	default:
		s.Key = SummaryNeedsAttention
		s.Metrics = problems
	}
	return s
}

func confidenceReason(c Confidence, conversions int64) string {
	switch c {
	case ConfidenceHigh:
		return fmt.Sprintf("%d conversions is a statistically reliable sample", conversions)
	case ConfidenceMedium:
		return fmt.Sprintf("only %d conversions, so conclusions are kept tentative", conversions)
	default:
		return fmt.Sprintf("only %d conversions, treat as indicative", conversions)
	}
}
