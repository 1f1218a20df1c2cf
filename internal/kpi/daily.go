package kpi

import (
	"sort"
	"time"

	"github.com/sells-group/adperf/internal/model"
)

// DailyRow is the bundle for one day, optionally for one campaign.
type DailyRow struct {
	Date     time.Time `json:"date"`
	Campaign string    `json:"campaign,omitempty"`
	Bundle   Bundle    `json:"kpi"`
}

type dailyKey struct {
	date     time.Time
	campaign string
}

// Daily aggregates rows per day, and per campaign when byCampaign is set.
// Rows are ordered by date, then campaign.
func Daily(rows []model.Record, ctx Context, byCampaign bool) []DailyRow {
	groups := make(map[dailyKey][]model.Record)
	var keys []dailyKey
	for _, r := range rows {
		k := dailyKey{date: r.Date}
		if byCampaign {
			k.campaign = r.Campaign
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].campaign < keys[j].campaign
	})

	out := make([]DailyRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, DailyRow{
			Date:     k.date,
			Campaign: k.campaign,
			Bundle:   Aggregate(groups[k], ctx),
		})
	}
	return out
}
