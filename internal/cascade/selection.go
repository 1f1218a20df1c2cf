// Package cascade implements the dependent five-stage filter chain
// date range → campaign → page → version → creative.
package cascade

import (
	"sort"
	"time"
)

// Stage is one position in the filter chain.
type Stage int

const (
	StageDateRange Stage = iota
	StageCampaign
	StagePage
	StageVersion
	StageCreative
)

// Stages lists every stage in chain order.
var Stages = []Stage{StageDateRange, StageCampaign, StagePage, StageVersion, StageCreative}

func (s Stage) String() string {
	switch s {
	case StageDateRange:
		return "date_range"
	case StageCampaign:
		return "campaign"
	case StagePage:
		return "page"
	case StageVersion:
		return "version"
	case StageCreative:
		return "creative"
	default:
		return "unknown"
	}
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (d DateRange) IsZero() bool { return d.From.IsZero() && d.To.IsZero() }

// Contains reports whether day lies within the range.
func (d DateRange) Contains(day time.Time) bool {
	if !d.From.IsZero() && day.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && day.After(d.To) {
		return false
	}
	return true
}

// Selection is the chosen value set at every stage. An empty set at a stage
// selects everything. Selections are values; the With* methods return a new
// Selection with every downstream stage cleared.
type Selection struct {
	DateRange DateRange `json:"date_range"`
	Campaigns []string  `json:"campaigns,omitempty"`
	Pages     []string  `json:"pages,omitempty"`
	Versions  []string  `json:"versions,omitempty"`
	Creatives []string  `json:"creatives,omitempty"`
}

// WithDateRange selects a date range and clears all later stages.
func (s Selection) WithDateRange(r DateRange) Selection {
	return Selection{DateRange: r}
}

// WithCampaigns selects campaigns and clears page, version and creative.
func (s Selection) WithCampaigns(names ...string) Selection {
	return Selection{DateRange: s.DateRange, Campaigns: cleanLabels(names)}
}

// WithPages selects pages and clears version and creative.
func (s Selection) WithPages(pages ...string) Selection {
	return Selection{DateRange: s.DateRange, Campaigns: s.Campaigns, Pages: cleanLabels(pages)}
}

// WithVersions selects versions and clears creative.
func (s Selection) WithVersions(versions ...string) Selection {
	return Selection{DateRange: s.DateRange, Campaigns: s.Campaigns, Pages: s.Pages, Versions: cleanLabels(versions)}
}

// WithCreatives selects creatives.
func (s Selection) WithCreatives(creatives ...string) Selection {
	out := s
	out.Creatives = cleanLabels(creatives)
	return out
}

// With selects labels at a label stage. StageDateRange is not a label
// stage and returns s with everything after it cleared.
func (s Selection) With(stage Stage, labels ...string) Selection {
	switch stage {
	case StageCampaign:
		return s.WithCampaigns(labels...)
	case StagePage:
		return s.WithPages(labels...)
	case StageVersion:
		return s.WithVersions(labels...)
	case StageCreative:
		return s.WithCreatives(labels...)
	default:
		return s.WithDateRange(s.DateRange)
	}
}

// Labels returns the selected labels at a stage.
func (s Selection) Labels(stage Stage) []string {
	switch stage {
	case StageCampaign:
		return s.Campaigns
	case StagePage:
		return s.Pages
	case StageVersion:
		return s.Versions
	case StageCreative:
		return s.Creatives
	default:
		return nil
	}
}

// VersionFilterActive reports whether any version is selected.
func (s Selection) VersionFilterActive() bool { return len(s.Versions) > 0 }

// cleanLabels drops empty labels and duplicates and sorts the rest.
func cleanLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
