package analysis

import (
	"slices"

	"github.com/sells-group/adperf/internal/model"
)

// Fallback proposals.
const (
	ProposalReviewData    = "Review the data to identify improvement points"
	ProposalKeepCurrent   = "All metrics are within baseline; keep the current setup"
	ProposalConfigureBand = "Configure baseline bands for this campaign in the baseline sheet"
)

var proposals = map[model.Metric][]string{
	model.MetricCTR: {
		"Add creative angles (UGC, reviews, track record)",
		"Front-load the hook: state the conclusion in the first second or line",
		"Switch format (video, UGC, static)",
	},
	model.MetricCPM: {
		"Broaden targeting and clean up exclusions",
		"Review placements: pull back from expensive ones, lean into converting ones",
		"Refresh creative to earn a lower CPM through quality",
	},
	model.MetricCPC: {
		"Improve CTR to bring CPC down",
		"Strengthen the creative's appeal",
		"Shift spend to low-CPM placements",
	},
	model.MetricMCVR: {
		"Rework CTA count and placement (early, middle and late in the article)",
		"Make CTA copy concrete: price, ingredients, guarantee",
		"Add reassurance sections such as FAQ, comparison or evidence",
	},
	model.MetricCVR: {
		"Check the product landing page, offer and form",
		"Check stock, page speed and conversion tracking",
		"Strengthen the CTA path from the article page",
	},
	model.MetricCPA: {
		"Fix the upstream metric with the largest deviation first",
		"If the bottleneck is CTR, improve the creative",
		"If the bottleneck is CVR, review the product landing page",
	},
}

// Proposals returns the ordered actions for a bottleneck metric. An empty
// metric means no bottleneck was found.
func Proposals(metric model.Metric) []string {
	if metric == "" {
		return []string{ProposalKeepCurrent}
	}
	if p, ok := proposals[metric]; ok {
		return slices.Clone(p)
	}
	return []string{ProposalReviewData}
}
