// Package analysis judges a KPI bundle against a campaign's historical
// baseline bands and picks the metric to improve first.
package analysis

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
)

// State is the outcome of judging one metric against its band.
type State uint8

const (
	StateOK   State = iota // inside the band
	StateHigh              // above the band on a lower-is-better metric
	StateLow               // below the band on a higher-is-better metric
	StateGood              // outside the band on the good side
)

var stateNames = [...]string{
	StateOK:   "ok",
	StateHigh: "high",
	StateLow:  "low",
	StateGood: "good",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Bad reports whether the state counts toward the bottleneck.
func (s State) Bad() bool {
	return s == StateHigh || s == StateLow
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return eris.Errorf("analysis: unknown judgment state %q", string(text))
}

// Judgment is one metric's current value compared with its band.
type Judgment struct {
	Metric    model.Metric `json:"metric"`
	Current   float64      `json:"current"`
	Band      model.Band   `json:"band"`
	State     State        `json:"state"`
	Deviation float64      `json:"deviation"`
}

// Judge places current relative to band. Deviation is the relative
// distance past the bad edge and is zero for OK and Good.
func Judge(metric model.Metric, current float64, band model.Band) Judgment {
	j := Judgment{Metric: metric, Current: current, Band: band, State: StateOK}

	dir := band.Direction
	if dir == "" {
		dir = model.DefaultDirection(metric)
	}

	switch dir {
	case model.HigherIsBetter:
		switch {
		case current < band.Lower:
			j.State = StateLow
			j.Deviation = kpi.SafeDivide(band.Lower-current, band.Lower)
		case current > band.Upper:
			j.State = StateGood
		}
	default:
		switch {
		case current > band.Upper:
			j.State = StateHigh
			j.Deviation = kpi.SafeDivide(current-band.Upper, band.Upper)
		case current < band.Lower:
			j.State = StateGood
		}
	}
	return j
}

// FindBottleneck returns the bad judgment with the largest deviation.
// Equal deviations go to the metric earliest in model.JudgedMetrics;
// metrics outside that list rank after it in input order.
func FindBottleneck(judgments []Judgment) (Judgment, bool) {
	ordered := slices.Clone(judgments)
	slices.SortStableFunc(ordered, func(a, b Judgment) int {
		return priority(a.Metric) - priority(b.Metric)
	})

	var (
		worst Judgment
		found bool
	)
	for _, j := range ordered {
		if !j.State.Bad() {
			continue
		}
		if !found || j.Deviation > worst.Deviation {
			worst, found = j, true
		}
	}
	return worst, found
}

func priority(m model.Metric) int {
	if i := slices.Index(model.JudgedMetrics, m); i >= 0 {
		return i
	}
	return len(model.JudgedMetrics)
}

// Confidence grades how much a result can be trusted from its sample size.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Conversion counts at which confidence steps up.
const (
	HighConfidenceConversions   = 100
	MediumConfidenceConversions = 30
)

// ConfidenceFor grades a conversion count.
func ConfidenceFor(conversions int64) Confidence {
	switch {
	case conversions >= HighConfidenceConversions:
		return ConfidenceHigh
	case conversions >= MediumConfidenceConversions:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
