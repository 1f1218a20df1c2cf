// Package kpi sums record counters and derives the ratio and cost metrics
// shown for a filtered record set.
package kpi

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/model"
)

// View selects which source's spend is the displayed cost.
type View string

const (
	ViewTotal         View = "total"
	ViewPaidMediaOnly View = "paid_media"
	ViewOnSiteOnly    View = "onsite"
)

// ParseView reads a view name. Empty input means ViewTotal.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "total":
		return ViewTotal, nil
	case "paid_media", "paid", "meta":
		return ViewPaidMediaOnly, nil
	case "onsite", "on_site", "beyond":
		return ViewOnSiteOnly, nil
	default:
		return "", eris.Errorf("kpi: unknown view %q", s)
	}
}

// Context carries the display rules every formula depends on.
type Context struct {
	View                View `json:"view"`
	VersionFilterActive bool `json:"version_filter_active"`
}

// Totals are the raw sums over a record set, split by source.
type Totals struct {
	Rows                int     `json:"rows"`
	PaidCost            float64 `json:"paid_cost"`
	OnSiteCost          float64 `json:"onsite_cost"`
	Impressions         int64   `json:"impressions"`
	PaidClicks          int64   `json:"paid_clicks"`
	TransitionClicks    int64   `json:"transition_clicks"`
	Conversions         int64   `json:"conversions"`
	PlatformConversions int64   `json:"platform_conversions"`
	PageViews           int64   `json:"page_views"`
	FirstViewExits      int64   `json:"first_view_exits"`
	SecondViewExits     int64   `json:"second_view_exits"`
	PaidRevenue         float64 `json:"paid_revenue"`
	PaidProfit          float64 `json:"paid_profit"`
	OnSiteRevenue       float64 `json:"onsite_revenue"`
	OnSiteProfit        float64 `json:"onsite_profit"`
	VideoViews3s        int64   `json:"video_views_3s"`
}

// Sum adds up the counters of rows.
func Sum(rows []model.Record) Totals {
	var t Totals
	t.Rows = len(rows)
	for _, r := range rows {
		switch r.Source {
		case model.SourcePaidMedia:
			t.PaidCost += r.Cost
			t.Impressions += r.Impressions
			t.PaidClicks += r.Clicks
			t.PlatformConversions += r.SecondaryConversions
			t.PaidRevenue += r.Revenue
			t.PaidProfit += r.GrossProfit
			t.VideoViews3s += r.VideoViews3s
		case model.SourceOnSitePage:
			t.OnSiteCost += r.Cost
			t.TransitionClicks += r.Clicks
			t.Conversions += r.Conversions
			t.PageViews += r.PageViews
			t.FirstViewExits += r.FirstViewExits
			t.SecondViewExits += r.SecondViewExits
			t.OnSiteRevenue += r.Revenue
			t.OnSiteProfit += r.GrossProfit
		}
	}
	return t
}

// Bundle is the full KPI set for one record subset under one Context.
type Bundle struct {
	Context Context `json:"context"`
	Totals  Totals  `json:"totals"`

	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
	Profit      float64 `json:"profit"`
	Impressions Value   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`

	CTR  Value   `json:"ctr"`
	CPM  Value   `json:"cpm"`
	CPC  float64 `json:"cpc"`
	MCVR float64 `json:"mcvr"`
	CVR  float64 `json:"cvr"`
	CPA  float64 `json:"cpa"`
	MCPA float64 `json:"mcpa"`
	ROAS float64 `json:"roas"`

	ProfitMargin       float64 `json:"profit_margin"`
	FirstViewExitRate  float64 `json:"first_view_exit_rate"`
	SecondViewExitRate float64 `json:"second_view_exit_rate"`
	TotalExitRate      float64 `json:"total_exit_rate"`

	VideoViews3s       Value `json:"video_views_3s"`
	CostPerVideoView3s Value `json:"cost_per_video_view_3s"`
	VideoViewRate3s    Value `json:"video_view_rate_3s"`
}

// Aggregate derives the KPI bundle for rows.
//
// With a version filter active, page views replace paid clicks as the
// funnel entry count for CTR, CPC and the displayed clicks together, and
// impressions, CTR, CPM and the video metrics become unavailable.
func Aggregate(rows []model.Record, ctx Context) Bundle {
	if ctx.View == "" {
		ctx.View = ViewTotal
	}
	t := Sum(rows)
	b := Bundle{Context: ctx, Totals: t, Conversions: t.Conversions}

	if ctx.View == ViewPaidMediaOnly {
		b.Cost, b.Revenue, b.Profit = t.PaidCost, t.PaidRevenue, t.PaidProfit
	} else {
		b.Cost, b.Revenue, b.Profit = t.OnSiteCost, t.OnSiteRevenue, t.OnSiteProfit
	}

	entry := t.PaidClicks
	if ctx.VersionFilterActive {
		entry = t.PageViews
	}
	b.Clicks = entry

	if ctx.VersionFilterActive {
		b.Impressions = Unavailable()
		b.CTR = Unavailable()
		b.CPM = Unavailable()
		b.VideoViews3s = Unavailable()
		b.CostPerVideoView3s = Unavailable()
		b.VideoViewRate3s = Unavailable()
	} else {
		views := float64(t.VideoViews3s)
		b.Impressions = Measured(float64(t.Impressions))
		b.CTR = Measured(SafeDivide(float64(entry), float64(t.Impressions)) * 100)
		b.CPM = Measured(SafeDivide(t.PaidCost, float64(t.Impressions)) * 1000)
		b.VideoViews3s = Measured(views)
		b.CostPerVideoView3s = Measured(SafeDivide(t.PaidCost, views))
		b.VideoViewRate3s = Measured(SafeDivide(views, float64(t.Impressions)) * 100)
	}

	cpcCost := t.PaidCost
	if ctx.VersionFilterActive || ctx.View == ViewOnSiteOnly {
		cpcCost = t.OnSiteCost
	}
	b.CPC = SafeDivide(cpcCost, float64(entry))

	pv := float64(t.PageViews)
	transitions := float64(t.TransitionClicks)
	b.MCVR = SafeDivide(transitions, pv) * 100
	b.CVR = SafeDivide(float64(t.Conversions), transitions) * 100
	b.CPA = SafeDivide(t.OnSiteCost, float64(t.Conversions))
	b.MCPA = SafeDivide(t.OnSiteCost, transitions)

	b.ROAS = math.Floor(SafeDivide(b.Revenue, b.Cost) * 100)
	b.ProfitMargin = SafeDivide(b.Profit, b.Revenue) * 100

	fv := float64(t.FirstViewExits)
	sv := float64(t.SecondViewExits)
	b.FirstViewExitRate = SafeDivide(fv, pv) * 100
	b.SecondViewExitRate = SafeDivide(sv, pv-fv) * 100
	b.TotalExitRate = SafeDivide(fv+sv, pv) * 100

	return b
}

// Metric returns a named metric from the bundle.
func (b Bundle) Metric(m model.Metric) (Value, bool) {
	switch m {
	case model.MetricCPM:
		return b.CPM, true
	case model.MetricCTR:
		return b.CTR, true
	case model.MetricCPC:
		return Measured(b.CPC), true
	case model.MetricMCVR:
		return Measured(b.MCVR), true
	case model.MetricCVR:
		return Measured(b.CVR), true
	case model.MetricCPA:
		return Measured(b.CPA), true
	case model.MetricMCPA:
		return Measured(b.MCPA), true
	case model.MetricROAS:
		return Measured(b.ROAS), true
	case model.MetricProfitMargin:
		return Measured(b.ProfitMargin), true
	case model.MetricFirstViewExitRate:
		return Measured(b.FirstViewExitRate), true
	case model.MetricSecondViewExitRate:
		return Measured(b.SecondViewExitRate), true
	case model.MetricTotalExitRate:
		return Measured(b.TotalExitRate), true
	case model.MetricCost:
		return Measured(b.Cost), true
	case model.MetricImpressions:
		return b.Impressions, true
	case model.MetricClicks:
		return Measured(float64(b.Clicks)), true
	case model.MetricConversions:
		return Measured(float64(b.Conversions)), true
	case model.MetricRevenue:
		return Measured(b.Revenue), true
	case model.MetricProfit:
		return Measured(b.Profit), true
	case model.MetricVideoViews3s:
		return b.VideoViews3s, true
	case model.MetricCostPerVideoView3s:
		return b.CostPerVideoView3s, true
	case model.MetricVideoViewRate3s:
		return b.VideoViewRate3s, true
	default:
		return Value{}, false
	}
}

// BundleMetrics lists every metric exposed by Bundle.Metric, in display order.
var BundleMetrics = []model.Metric{
	model.MetricCost, model.MetricRevenue, model.MetricProfit,
	model.MetricImpressions, model.MetricClicks, model.MetricConversions,
	model.MetricCTR, model.MetricCPM, model.MetricCPC,
	model.MetricMCVR, model.MetricCVR, model.MetricCPA, model.MetricMCPA,
	model.MetricROAS, model.MetricProfitMargin,
	model.MetricFirstViewExitRate, model.MetricSecondViewExitRate, model.MetricTotalExitRate,
	model.MetricVideoViews3s, model.MetricCostPerVideoView3s, model.MetricVideoViewRate3s,
}

// Metrics returns every metric keyed by name.
func (b Bundle) Metrics() map[model.Metric]Value {
	out := make(map[model.Metric]Value, len(BundleMetrics))
	for _, m := range BundleMetrics {
		v, _ := b.Metric(m)
		out[m] = v
	}
	return out
}
