package kpi

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/model"
)

// Dimension is the label a Breakdown groups rows by.
type Dimension string

const (
	ByVersion  Dimension = "version"
	ByCreative Dimension = "creative"
)

// ParseDimension reads a breakdown dimension. Empty input means ByVersion.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "version", "versions":
		return ByVersion, nil
	case "creative", "creatives":
		return ByCreative, nil
	default:
		return "", eris.Errorf("kpi: unknown breakdown dimension %q", s)
	}
}

// BreakdownRow is the full bundle for one (campaign, label) group.
type BreakdownRow struct {
	Campaign string `json:"campaign"`
	Label    string `json:"label"`
	Bundle   Bundle `json:"kpi"`
}

type breakdownKey struct {
	campaign, label string
}

// Breakdown aggregates rows per campaign and dimension label.
//
// ByVersion groups on-site rows by version name; paid-media rows carry no
// version, so each group is aggregated with the version filter rules.
// ByCreative groups on-site rows by creative value and paid-media rows by
// their ad identifier, so a creative's spend and its landing-page results
// share one row. Rows without a label are skipped. Groups are ordered by
// cost descending, then campaign and label.
func Breakdown(rows []model.Record, ctx Context, dim Dimension) []BreakdownRow {
	if dim == ByVersion {
		ctx.VersionFilterActive = true
	}

	groups := make(map[breakdownKey][]model.Record)
	var keys []breakdownKey
	for _, r := range rows {
		label := breakdownLabel(r, dim)
		if label == "" {
			continue
		}
		k := breakdownKey{campaign: r.Campaign, label: label}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]BreakdownRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, BreakdownRow{
			Campaign: k.campaign,
			Label:    k.label,
			Bundle:   Aggregate(groups[k], ctx),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Bundle.Cost != b.Bundle.Cost {
			return a.Bundle.Cost > b.Bundle.Cost
		}
		if a.Campaign != b.Campaign {
			return a.Campaign < b.Campaign
		}
		return a.Label < b.Label
	})
	return out
}

func breakdownLabel(r model.Record, dim Dimension) string {
	switch dim {
	case ByVersion:
		if r.IsOnSite() {
			return r.VersionName
		}
	case ByCreative:
		if r.IsOnSite() {
			return r.CreativeValue
		}
		return r.AdIdentifier
	}
	return ""
}
