package cascade

import (
	"sort"
	"strings"
	"time"

	"github.com/sells-group/adperf/internal/model"
)

// DateOptions describes the days available to the date-range stage.
type DateOptions struct {
	First time.Time   `json:"first"`
	Last  time.Time   `json:"last"`
	Days  []time.Time `json:"days"`
}

// Options are the selectable values at every stage. Each stage's list is
// computed from rows narrowed by the stages before it only.
type Options struct {
	Dates     DateOptions `json:"dates"`
	Campaigns []string    `json:"campaigns"`
	Pages     []string    `json:"pages"`
	Versions  []string    `json:"versions"`
	Creatives []string    `json:"creatives"`
}

// Cascade filters an immutable record set.
type Cascade struct {
	rows []model.Record
}

// New creates a Cascade over rows. The slice is not modified.
func New(rows []model.Record) *Cascade {
	return &Cascade{rows: rows}
}

// Apply returns the rows passing every stage, in input order.
func (c *Cascade) Apply(sel Selection) []model.Record {
	return c.through(sel, StageCreative+1)
}

// Upstream returns the rows passing every stage strictly before stage.
func (c *Cascade) Upstream(sel Selection, stage Stage) []model.Record {
	return c.through(sel, stage)
}

// Options returns the option list for every stage under sel.
func (c *Cascade) Options(sel Selection) Options {
	return Options{
		Dates:     dateOptions(c.rows),
		Campaigns: campaignOptions(c.Upstream(sel, StageCampaign)),
		Pages:     labelOptions(c.Upstream(sel, StagePage), func(r model.Record) string { return r.PageName }),
		Versions:  labelOptions(c.Upstream(sel, StageVersion), func(r model.Record) string { return r.VersionName }),
		Creatives: labelOptions(c.Upstream(sel, StageCreative), func(r model.Record) string { return r.CreativeValue }),
	}
}

func (c *Cascade) through(sel Selection, limit Stage) []model.Record {
	out := make([]model.Record, 0, len(c.rows))
	for _, r := range c.rows {
		if matches(r, sel, limit) {
			out = append(out, r)
		}
	}
	return out
}

// matches applies the stages before limit to one row.
func matches(r model.Record, sel Selection, limit Stage) bool {
	for _, st := range Stages {
		if st >= limit {
			break
		}
		if !matchStage(r, sel, st) {
			return false
		}
	}
	return true
}

func matchStage(r model.Record, sel Selection, st Stage) bool {
	switch st {
	case StageDateRange:
		return sel.DateRange.Contains(r.Date)
	case StageCampaign:
		return len(sel.Campaigns) == 0 || contains(sel.Campaigns, r.Campaign)
	case StagePage:
		return len(sel.Pages) == 0 || matchLabel(r, r.PageName, sel.Pages)
	case StageVersion:
		// Paid-media rows carry no version, so any version selection excludes them.
		return len(sel.Versions) == 0 || contains(sel.Versions, r.VersionName)
	case StageCreative:
		return len(sel.Creatives) == 0 || matchLabel(r, r.CreativeValue, sel.Creatives)
	default:
		return true
	}
}

// matchLabel matches on-site rows by equality and paid-media rows by
// substring containment against the ad identifier.
func matchLabel(r model.Record, own string, selected []string) bool {
	if r.IsOnSite() {
		return contains(selected, own)
	}
	if r.AdIdentifier == "" {
		return false
	}
	for _, s := range selected {
		if strings.Contains(r.AdIdentifier, s) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func dateOptions(rows []model.Record) DateOptions {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, r := range rows {
		if !seen[r.Date] {
			seen[r.Date] = true
			days = append(days, r.Date)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var opts DateOptions
	opts.Days = days
	if len(days) > 0 {
		opts.First = days[0]
		opts.Last = days[len(days)-1]
	}
	return opts
}

// campaignOptions lists campaigns with any recorded activity.
func campaignOptions(rows []model.Record) []string {
	active := make(map[string]bool)
	for _, r := range rows {
		if r.Cost > 0 || r.Conversions > 0 || r.Impressions > 0 || r.Revenue > 0 {
			active[r.Campaign] = true
		}
	}
	return sortedKeys(active)
}

func labelOptions(rows []model.Record, label func(model.Record) string) []string {
	set := make(map[string]bool)
	for _, r := range rows {
		if l := label(r); l != "" {
			set[l] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
