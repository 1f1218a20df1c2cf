// Package feed loads the raw sheets behind a report: the live and
// historical exports of both sources, the master setting and the baseline
// table.
package feed

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/normalize"
)

// Format is the file format of a source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Source locates one sheet. Location is a local path or an http(s):// or
// ftp:// URL; an empty Location means the sheet is not configured.
type Source struct {
	Location string `mapstructure:"location" yaml:"location"`
	Format   Format `mapstructure:"format" yaml:"format"`
	Sheet    string `mapstructure:"sheet" yaml:"sheet"`
	SkipRows int    `mapstructure:"skip_rows" yaml:"skip_rows"`
}

// Configured reports whether the source has a location.
func (s Source) Configured() bool { return strings.TrimSpace(s.Location) != "" }

// ResolvedFormat returns Format, inferring xlsx from the location's
// extension when unset.
func (s Source) ResolvedFormat() (Format, error) {
	switch Format(strings.ToLower(string(s.Format))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case "":
		loc := s.Location
		if i := strings.IndexAny(loc, "?#"); i >= 0 {
			loc = loc[:i]
		}
		if strings.EqualFold(filepath.Ext(loc), ".xlsx") {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	default:
		return "", eris.Errorf("feed: unknown format %q", s.Format)
	}
}

// Sources names every sheet a report reads.
type Sources struct {
	PaidLive      Source `mapstructure:"paid_live" yaml:"paid_live"`
	PaidHistory   Source `mapstructure:"paid_history" yaml:"paid_history"`
	OnSiteLive    Source `mapstructure:"onsite_live" yaml:"onsite_live"`
	OnSiteHistory Source `mapstructure:"onsite_history" yaml:"onsite_history"`
	MasterSetting Source `mapstructure:"master_setting" yaml:"master_setting"`
	Baseline      Source `mapstructure:"baseline" yaml:"baseline"`
}

// Bundle holds the rows of every loaded sheet. Unconfigured sheets are empty.
type Bundle struct {
	PaidLive      []model.RawRow
	PaidHistory   []model.RawRow
	OnSiteLive    []model.RawRow
	OnSiteHistory []model.RawRow
	MasterSetting []model.RawRow
	Baseline      []model.RawRow
}

// Paid returns the paid-media sheets as a normalizer feed.
func (b Bundle) Paid() normalize.Feed {
	return normalize.Feed{Live: b.PaidLive, History: b.PaidHistory}
}

// OnSite returns the on-site sheets as a normalizer feed.
func (b Bundle) OnSite() normalize.Feed {
	return normalize.Feed{Live: b.OnSiteLive, History: b.OnSiteHistory}
}
