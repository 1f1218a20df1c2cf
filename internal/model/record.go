package model

import (
	"time"
)

// Source identifies which raw feed a Record came from.
type Source string

const (
	SourcePaidMedia  Source = "paid_media"  // ad-platform spend feed
	SourceOnSitePage Source = "onsite_page" // landing-page analytics feed
)

// RawRow is one loosely-typed record from a parsed tabular feed, keyed by header.
type RawRow map[string]string

// DateLayout is the canonical textual form of a Record date.
const DateLayout = "2006-01-02"

// Day returns the calendar day y-m-d as midnight UTC. All Record dates use
// this form so that comparisons never depend on a local zone.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf returns the calendar day of t as observed in t's own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Day(y, m, d)
}

// Record is one normalized observation for a (date, campaign, source).
// Records are immutable once produced by the normalizer.
type Record struct {
	Date     time.Time `json:"date"`
	Campaign string    `json:"campaign"`
	Source   Source    `json:"source"`

	Cost                 float64 `json:"cost"`
	Impressions          int64   `json:"impressions"`
	Clicks               int64   `json:"clicks"`
	Conversions          int64   `json:"conversions"`
	SecondaryConversions int64   `json:"secondary_conversions"`
	PageViews            int64   `json:"page_views"`
	FirstViewExits       int64   `json:"first_view_exits"`
	SecondViewExits      int64   `json:"second_view_exits"`
	VideoViews3s         int64   `json:"video_views_3s"`

	Revenue     float64 `json:"revenue"`
	GrossProfit float64 `json:"gross_profit"`

	PageName      string `json:"page_name,omitempty"`
	VersionName   string `json:"version_name,omitempty"`
	CreativeValue string `json:"creative_value,omitempty"`

	// AdIdentifier is the free-text ad label on paid-media rows: the creative
	// code extracted from the ad name, or the ad name itself.
	AdIdentifier string `json:"ad_identifier,omitempty"`
}

// DateString returns the record date as YYYY-MM-DD.
func (r Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// IsPaidMedia reports whether the record came from the ad-platform feed.
func (r Record) IsPaidMedia() bool { return r.Source == SourcePaidMedia }

// IsOnSite reports whether the record came from the landing-page feed.
func (r Record) IsOnSite() bool { return r.Source == SourceOnSitePage }
