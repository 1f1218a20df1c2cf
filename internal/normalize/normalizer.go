// Package normalize turns the raw paid-media and on-site feeds into one
// canonical, priced record set.
package normalize

import (
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/pricing"
)

// Paid-media feed columns.
const (
	ColAccountName = "Account Name"
	ColAdName      = "Ad Name"
	ColDay         = "Day"
	ColImpressions = "Impressions"
	ColLinkClicks  = "Link Clicks"
	ColAmountSpent = "Amount Spent"
)

// Alternate headers the ad platform has used for 3-second video views.
var colVideoViews3s = []string{"3-Second Video Views", "3-Second Video", "3-Second Video Plays"}

// On-site feed columns.
const (
	ColDateJST     = "date_jst"
	ColPageName    = "beyond_page_name"
	ColFolderName  = "folder_name"
	ColParameter   = "parameter"
	ColVersionName = "version_name"
	ColCost        = "cost"
	ColCV          = "cv"
	ColPV          = "pv"
	ColClick       = "click"
	ColFVExit      = "fv_exit"
	ColSVExit      = "sv_exit"
)

// DefaultLocation is the zone whose calendar day counts as "today".
const DefaultLocation = "Asia/Tokyo"

// Feed is one source's raw rows split into its live and historical sheets.
type Feed struct {
	Live    []model.RawRow
	History []model.RawRow
}

// Options configures a Normalizer.
type Options struct {
	Location *time.Location   // default Asia/Tokyo
	Now      func() time.Time // default time.Now
}

type prefixEntry struct {
	prefix   string
	campaign string
}

// Normalizer converts raw feeds into records using an immutable catalog.
type Normalizer struct {
	campaigns map[string]model.Campaign
	prefixes  []prefixEntry
	folders   map[string]string
	calc      *pricing.Calculator
	loc       *time.Location
	now       func() time.Time
}

// New builds a Normalizer from the catalog.
func New(catalog model.Catalog, opts Options) *Normalizer {
	n := &Normalizer{
		campaigns: make(map[string]model.Campaign, len(catalog.Campaigns)),
		folders:   make(map[string]string),
		calc:      pricing.NewCalculator(catalog),
		loc:       opts.Location,
		now:       opts.Now,
	}
	if n.loc == nil {
		loc, err := time.LoadLocation(DefaultLocation)
		if err != nil {
			loc = time.FixedZone("JST", 9*60*60)
		}
		n.loc = loc
	}
	if n.now == nil {
		n.now = time.Now
	}

	for _, c := range catalog.Campaigns {
		n.campaigns[c.Name] = c
		for _, p := range c.AccountPrefixes {
			if p = NormalizeLabel(p); p != "" {
				n.prefixes = append(n.prefixes, prefixEntry{prefix: p, campaign: c.Name})
			}
		}
		for _, f := range c.Folders {
			key := NormalizeLabel(f)
			if _, taken := n.folders[key]; key != "" && !taken {
				n.folders[key] = c.Name
			}
		}
	}
	// Longest prefix first; equal lengths keep catalog order.
	sort.SliceStable(n.prefixes, func(i, j int) bool {
		return len(n.prefixes[i].prefix) > len(n.prefixes[j].prefix)
	})
	return n
}

// Today returns the current calendar day in the configured location.
func (n *Normalizer) Today() time.Time {
	return model.DayOf(n.now().In(n.loc))
}

// Normalize merges both feeds into records ordered paid history, paid live,
// on-site history, on-site live. A row dated today is read only from the
// live sheet and any other row only from the history sheet.
func (n *Normalizer) Normalize(paid, onsite Feed) []model.Record {
	today := n.Today()
	var st stats

	out := make([]model.Record, 0, len(paid.Live)+len(paid.History)+len(onsite.Live)+len(onsite.History))
	out = n.appendPaid(out, paid.History, today, false, &st)
	out = n.appendPaid(out, paid.Live, today, true, &st)
	out = n.appendOnSite(out, onsite.History, today, false, &st)
	out = n.appendOnSite(out, onsite.Live, today, true, &st)

	zap.L().Debug("normalize: complete",
		zap.String("today", today.Format(model.DateLayout)),
		zap.Int("records", len(out)),
		zap.Int("dropped_date", st.badDate),
		zap.Int("dropped_partition", st.wrongSheet),
		zap.Int("dropped_unmapped", st.unmapped),
		zap.Int("dropped_parameter", st.noParameter),
	)
	return out
}

type stats struct {
	badDate     int
	wrongSheet  int
	unmapped    int
	noParameter int
}

// keep applies the live/history partition to a parsed row date.
func keep(date, today time.Time, live bool) bool {
	return date.Equal(today) == live
}

func (n *Normalizer) appendPaid(out []model.Record, rows []model.RawRow, today time.Time, live bool, st *stats) []model.Record {
	for _, row := range rows {
		date, ok := ParseDate(Lookup(row, ColDay))
		if !ok {
			st.badDate++
			continue
		}
		if !keep(date, today, live) {
			st.wrongSheet++
			continue
		}
		campaign, ok := n.resolveAccount(Lookup(row, ColAccountName))
		if !ok {
			st.unmapped++
			continue
		}
		out = append(out, n.paidRecord(row, date, campaign))
	}
	return out
}

func (n *Normalizer) paidRecord(row model.RawRow, date time.Time, c model.Campaign) model.Record {
	adName := strings.TrimSpace(Lookup(row, ColAdName))
	ident := ExtractCreative(adName)
	if ident == "" {
		ident = adName
	}

	cost := ParseAmount(Lookup(row, ColAmountSpent))
	price := n.calc.PriceRow(c.Name, model.SourcePaidMedia, cost, 0)

	return model.Record{
		Date:                 date,
		Campaign:             c.Name,
		Source:               model.SourcePaidMedia,
		Cost:                 cost,
		Impressions:          ParseCount(Lookup(row, ColImpressions)),
		Clicks:               ParseCount(Lookup(row, ColLinkClicks)),
		SecondaryConversions: ParseCount(Lookup(row, c.CVColumn())),
		VideoViews3s:         ParseCount(Lookup(row, colVideoViews3s...)),
		Revenue:              price.Revenue,
		GrossProfit:          price.Profit,
		AdIdentifier:         ident,
	}
}

func (n *Normalizer) appendOnSite(out []model.Record, rows []model.RawRow, today time.Time, live bool, st *stats) []model.Record {
	for _, row := range rows {
		date, ok := ParseDate(Lookup(row, ColDateJST))
		if !ok {
			st.badDate++
			continue
		}
		if !keep(date, today, live) {
			st.wrongSheet++
			continue
		}
		folder := strings.TrimSpace(Lookup(row, ColFolderName))
		page := strings.TrimSpace(Lookup(row, ColPageName))
		c, ok := n.resolveFolder(folder, page)
		if !ok {
			st.unmapped++
			continue
		}
		if page == "" {
			page = folder
		}

		prefix := c.CreativeParam() + "="
		param := strings.TrimSpace(Lookup(row, ColParameter))
		if !strings.HasPrefix(param, prefix) {
			st.noParameter++
			continue
		}

		cost := ParseAmount(Lookup(row, ColCost))
		cv := ParseCount(Lookup(row, ColCV))
		price := n.calc.PriceRow(c.Name, model.SourceOnSitePage, cost, cv)

		out = append(out, model.Record{
			Date:            date,
			Campaign:        c.Name,
			Source:          model.SourceOnSitePage,
			Cost:            cost,
			Clicks:          ParseCount(Lookup(row, ColClick)),
			Conversions:     cv,
			PageViews:       ParseCount(Lookup(row, ColPV)),
			FirstViewExits:  ParseCount(Lookup(row, ColFVExit)),
			SecondViewExits: ParseCount(Lookup(row, ColSVExit)),
			Revenue:         price.Revenue,
			GrossProfit:     price.Profit,
			PageName:        page,
			VersionName:     strings.TrimSpace(Lookup(row, ColVersionName)),
			CreativeValue:   strings.TrimPrefix(param, prefix),
		})
	}
	return out
}

// resolveFolder maps the folder label to a campaign, falling back to the
// page name for sheets that carry no folder column.
func (n *Normalizer) resolveFolder(folder, page string) (model.Campaign, bool) {
	for _, label := range []string{folder, page} {
		if name, ok := n.folders[NormalizeLabel(label)]; ok {
			return n.campaigns[name], true
		}
	}
	return model.Campaign{}, false
}

// resolveAccount finds the campaign whose account prefix is the longest
// prefix of the raw account name.
func (n *Normalizer) resolveAccount(account string) (model.Campaign, bool) {
	account = NormalizeLabel(account)
	if account == "" {
		return model.Campaign{}, false
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(account, p.prefix) {
			return n.campaigns[p.campaign], true
		}
	}
	return model.Campaign{}, false
}
