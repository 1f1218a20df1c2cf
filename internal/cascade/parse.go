package cascade

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/normalize"
)

// ParseDateRange reads inclusive day bounds. An empty bound stays open.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(from) != "" {
		d, ok := normalize.ParseDate(from)
		if !ok {
			return DateRange{}, eris.Errorf("cascade: invalid from date %q", from)
		}
		r.From = d
	}
	if strings.TrimSpace(to) != "" {
		d, ok := normalize.ParseDate(to)
		if !ok {
			return DateRange{}, eris.Errorf("cascade: invalid to date %q", to)
		}
		r.To = d
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return DateRange{}, eris.Errorf("cascade: range ends before it starts (%s > %s)", from, to)
	}
	return r, nil
}

// TrimLabels trims surrounding space from label arguments and drops empty
// ones. Labels are otherwise matched byte for byte against stored values,
// so a label read from Options always selects the rows it came from.
func TrimLabels(values []string) []string {
	var out []string
	for _, v := range values {
		if l := strings.TrimSpace(v); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Select builds a Selection stage by stage so later stages are only
// kept alongside the earlier ones they were chosen under.
func Select(r DateRange, campaigns, pages, versions, creatives []string) Selection {
	return Selection{}.
		WithDateRange(r).
		WithCampaigns(campaigns...).
		WithPages(pages...).
		WithVersions(versions...).
		WithCreatives(creatives...)
}
