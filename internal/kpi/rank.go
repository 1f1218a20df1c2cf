package kpi

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/model"
)

// RankOrder selects how ranked creatives are sorted.
type RankOrder string

const (
	RankByCPA         RankOrder = "cpa"
	RankByConversions RankOrder = "cv"
)

// ParseRankOrder reads a rank order. Empty input means RankByCPA.
func ParseRankOrder(s string) (RankOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpa":
		return RankByCPA, nil
	case "cv", "conversions":
		return RankByConversions, nil
	default:
		return "", eris.Errorf("kpi: unknown rank order %q", s)
	}
}

// RankEntry is one converting (campaign, version, creative) combination.
type RankEntry struct {
	Campaign    string  `json:"campaign"`
	Version     string  `json:"version"`
	Creative    string  `json:"creative"`
	Cost        float64 `json:"cost"`
	PageViews   int64   `json:"page_views"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	CVR         float64 `json:"cvr"`
	CPA         float64 `json:"cpa"`
	Revenue     float64 `json:"revenue"`
	Profit      float64 `json:"profit"`
}

type rankKey struct {
	campaign, version, creative string
}

// Rank groups on-site rows by campaign, version and creative and returns
// the groups with at least one conversion. limit <= 0 returns all groups.
func Rank(rows []model.Record, order RankOrder, limit int) []RankEntry {
	groups := make(map[rankKey]*RankEntry)
	for _, r := range rows {
		if !r.IsOnSite() {
			continue
		}
		k := rankKey{r.Campaign, r.VersionName, r.CreativeValue}
		e, ok := groups[k]
		if !ok {
			e = &RankEntry{Campaign: k.campaign, Version: k.version, Creative: k.creative}
			groups[k] = e
		}
		e.Cost += r.Cost
		e.PageViews += r.PageViews
		e.Clicks += r.Clicks
		e.Conversions += r.Conversions
		e.Revenue += r.Revenue
		e.Profit += r.GrossProfit
	}

	out := make([]RankEntry, 0, len(groups))
	for _, e := range groups {
		if e.Conversions < 1 {
			continue
		}
		e.CPA = SafeDivide(e.Cost, float64(e.Conversions))
		e.CVR = SafeDivide(float64(e.Conversions), float64(e.Clicks)) * 100
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch order {
		case RankByConversions:
			if a.Conversions != b.Conversions {
				return a.Conversions > b.Conversions
			}
			if a.CPA != b.CPA {
				return a.CPA < b.CPA
			}
		default:
			if a.CPA != b.CPA {
				return a.CPA < b.CPA
			}
			if a.Conversions != b.Conversions {
				return a.Conversions > b.Conversions
			}
		}
		return a.key() < b.key()
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e RankEntry) key() string {
	return e.Campaign + "|" + e.Version + "|" + e.Creative
}
