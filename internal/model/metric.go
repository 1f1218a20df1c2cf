package model

import (
	"strings"
)

// Metric names a derived KPI.
type Metric string

const (
	MetricCPM  Metric = "CPM"
	MetricCTR  Metric = "CTR"
	MetricCPC  Metric = "CPC"
	MetricMCVR Metric = "MCVR"
	MetricCVR  Metric = "CVR"
	MetricCPA  Metric = "CPA"
	MetricMCPA Metric = "MCPA"
	MetricROAS Metric = "ROAS"

	MetricProfitMargin       Metric = "ProfitMargin"
	MetricFirstViewExitRate  Metric = "FirstViewExitRate"
	MetricSecondViewExitRate Metric = "SecondViewExitRate"
	MetricTotalExitRate      Metric = "TotalExitRate"

	MetricCost        Metric = "Cost"
	MetricImpressions Metric = "Impressions"
	MetricClicks      Metric = "Clicks"
	MetricConversions Metric = "Conversions"
	MetricRevenue     Metric = "Revenue"
	MetricProfit      Metric = "Profit"

	MetricVideoViews3s       Metric = "VideoViews3s"
	MetricCostPerVideoView3s Metric = "CostPerVideoView3s"
	MetricVideoViewRate3s    Metric = "VideoViewRate3s"
)

// JudgedMetrics is the fixed priority order used by baseline analysis.
var JudgedMetrics = []Metric{MetricCPM, MetricCTR, MetricCPC, MetricMCVR, MetricCVR, MetricCPA}

// Direction states which way a metric improves.
type Direction string

const (
	LowerIsBetter  Direction = "lower"
	HigherIsBetter Direction = "higher"
)

// ParseDirection reads a baseline "better direction" cell. 高 and "high"
// mean higher is better; anything else means lower is better.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "高", "high", "higher":
		return HigherIsBetter
	default:
		return LowerIsBetter
	}
}

// DefaultDirection returns the usual direction for a metric.
func DefaultDirection(m Metric) Direction {
	switch m {
	case MetricCTR, MetricMCVR, MetricCVR, MetricROAS, MetricProfitMargin,
		MetricImpressions, MetricClicks, MetricConversions, MetricRevenue, MetricProfit,
		MetricVideoViews3s, MetricVideoViewRate3s:
		return HigherIsBetter
	default:
		return LowerIsBetter
	}
}

// Band is the historical winning range of one metric for one campaign.
type Band struct {
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
	Median    float64   `json:"median"`
	Direction Direction `json:"direction"`
}

// Baselines maps campaign → metric → band.
type Baselines map[string]map[Metric]Band

// For returns the bands configured for a campaign.
func (b Baselines) For(campaign string) (map[Metric]Band, bool) {
	bands, ok := b[campaign]
	if !ok || len(bands) == 0 {
		return nil, false
	}
	return bands, true
}
