package kpi

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adperf/internal/model"
)

const delta = 1e-9

func paid(cost float64, imp, clicks int64) model.Record {
	return model.Record{
		Date:        model.Day(2024, 1, 1),
		Campaign:    "Demo",
		Source:      model.SourcePaidMedia,
		Cost:        cost,
		Impressions: imp,
		Clicks:      clicks,
		GrossProfit: -cost,
	}
}

func onsite(cost float64, pv, clicks, cv int64, revenue float64) model.Record {
	return model.Record{
		Date:        model.Day(2024, 1, 1),
		Campaign:    "Demo",
		Source:      model.SourceOnSitePage,
		Cost:        cost,
		PageViews:   pv,
		Clicks:      clicks,
		Conversions: cv,
		Revenue:     revenue,
		GrossProfit: revenue - cost,
	}
}

func scenarioRows() []model.Record {
	return []model.Record{
		paid(5000, 1000, 20),
		onsite(5000, 500, 50, 2, 20000),
	}
}

func TestSafeDivide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n, d float64
		want float64
	}{
		{"normal", 10, 4, 2.5},
		{"zero denominator", 10, 0, 0},
		{"zero over zero", 0, 0, 0},
		{"nan denominator", 1, math.NaN(), 0},
		{"infinite result", math.Inf(1), 1, 0},
		{"negative", -6, 3, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SafeDivide(tt.n, tt.d))
		})
	}
}

func TestAggregate_Scenario(t *testing.T) {
	t.Parallel()

	b := Aggregate(scenarioRows(), Context{View: ViewTotal})

	assert.InDelta(t, 5000, b.Cost, delta)
	assert.InDelta(t, 20000, b.Revenue, delta)
	assert.InDelta(t, 15000, b.Profit, delta)
	assert.Equal(t, int64(20), b.Clicks)
	assert.Equal(t, int64(2), b.Conversions)

	ctr, ok := b.CTR.Get()
	require.True(t, ok)
	assert.InDelta(t, 2.0, ctr, delta)

	cpm, ok := b.CPM.Get()
	require.True(t, ok)
	assert.InDelta(t, 5000, cpm, delta)

	assert.InDelta(t, 250, b.CPC, delta)
	assert.InDelta(t, 10, b.MCVR, delta)
	assert.InDelta(t, 4, b.CVR, delta)
	assert.InDelta(t, 2500, b.CPA, delta)
	assert.InDelta(t, 100, b.MCPA, delta)
	assert.InDelta(t, 400, b.ROAS, delta)
	assert.InDelta(t, 75, b.ProfitMargin, delta)
}

func TestAggregate_EmptyViewDefaultsToTotal(t *testing.T) {
	t.Parallel()

	b := Aggregate(scenarioRows(), Context{})
	assert.Equal(t, ViewTotal, b.Context.View)
	assert.InDelta(t, 5000, b.Cost, delta)
}

func TestAggregate_VersionFilterSubstitution(t *testing.T) {
	t.Parallel()

	rows := []model.Record{
		paid(8000, 1000, 20),
		onsite(5000, 500, 50, 2, 20000),
	}

	for _, view := range []View{ViewTotal, ViewPaidMediaOnly, ViewOnSiteOnly} {
		t.Run(string(view), func(t *testing.T) {
			t.Parallel()

			b := Aggregate(rows, Context{View: view, VersionFilterActive: true})

			assert.False(t, b.CTR.Available)
			assert.False(t, b.CPM.Available)
			assert.False(t, b.Impressions.Available)
			assert.Equal(t, int64(500), b.Clicks)
			assert.InDelta(t, 10, b.CPC, delta)
		})
	}
}

func TestAggregate_CPCCostByView(t *testing.T) {
	t.Parallel()

	rows := []model.Record{
		paid(5000, 1000, 20),
		onsite(6000, 500, 50, 2, 20000),
	}

	tests := []struct {
		view View
		want float64
	}{
		{ViewTotal, 250},
		{ViewPaidMediaOnly, 250},
		{ViewOnSiteOnly, 300},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			t.Parallel()
			b := Aggregate(rows, Context{View: tt.view})
			assert.InDelta(t, tt.want, b.CPC, delta)
			assert.Equal(t, int64(20), b.Clicks)
		})
	}
}

func TestAggregate_PaidMediaOnlyView(t *testing.T) {
	t.Parallel()

	b := Aggregate(scenarioRows(), Context{View: ViewPaidMediaOnly})

	assert.InDelta(t, 5000, b.Cost, delta)
	assert.InDelta(t, 0, b.Revenue, delta)
	assert.InDelta(t, -5000, b.Profit, delta)
	assert.InDelta(t, 0, b.ROAS, delta)
	assert.InDelta(t, 0, b.ProfitMargin, delta)
	// CPA always uses on-site spend.
	assert.InDelta(t, 2500, b.CPA, delta)
}

func TestAggregate_ROASTruncates(t *testing.T) {
	t.Parallel()

	b := Aggregate([]model.Record{onsite(3, 10, 1, 1, 10)}, Context{})
	assert.InDelta(t, 333, b.ROAS, delta)

	b = Aggregate([]model.Record{onsite(3, 10, 1, 1, 2)}, Context{})
	assert.InDelta(t, 66, b.ROAS, delta)
}

func TestAggregate_ExitRates(t *testing.T) {
	t.Parallel()

	r := onsite(1000, 200, 40, 1, 0)
	r.FirstViewExits = 50
	r.SecondViewExits = 30

	b := Aggregate([]model.Record{r}, Context{})
	assert.InDelta(t, 25, b.FirstViewExitRate, delta)
	assert.InDelta(t, 20, b.SecondViewExitRate, delta)
	assert.InDelta(t, 40, b.TotalExitRate, delta)
}

func TestAggregate_EmptyRows(t *testing.T) {
	t.Parallel()

	b := Aggregate(nil, Context{})

	ctr, ok := b.CTR.Get()
	assert.True(t, ok, "zero CTR is measured, not unavailable")
	assert.Zero(t, ctr)
	assert.Zero(t, b.CPC)
	assert.Zero(t, b.CPA)
	assert.Zero(t, b.ROAS)
	assert.Zero(t, b.SecondViewExitRate)
	for m, v := range b.Metrics() {
		assert.False(t, math.IsNaN(v.Amount), "metric %s is NaN", m)
		assert.False(t, math.IsInf(v.Amount, 0), "metric %s is Inf", m)
	}
}

func TestSum_SplitsBySource(t *testing.T) {
	t.Parallel()

	p := paid(100, 10, 2)
	p.SecondaryConversions = 4
	tot := Sum([]model.Record{p, onsite(50, 20, 5, 1, 300)})

	assert.Equal(t, 2, tot.Rows)
	assert.InDelta(t, 100, tot.PaidCost, delta)
	assert.InDelta(t, 50, tot.OnSiteCost, delta)
	assert.Equal(t, int64(2), tot.PaidClicks)
	assert.Equal(t, int64(5), tot.TransitionClicks)
	assert.Equal(t, int64(1), tot.Conversions)
	assert.Equal(t, int64(4), tot.PlatformConversions)
	assert.InDelta(t, 300, tot.OnSiteRevenue, delta)
	assert.InDelta(t, 250, tot.OnSiteProfit, delta)
	assert.InDelta(t, -100, tot.PaidProfit, delta)
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}{Measured(1.5), Unavailable(), Measured(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null,"c":0}`, string(data))

	var out struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":2,"b":null}`), &out))
	assert.Equal(t, Measured(2), out.A)
	assert.Equal(t, Unavailable(), out.B)
}

func TestParseView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewTotal, false},
		{"Total", ViewTotal, false},
		{"paid", ViewPaidMediaOnly, false},
		{" meta ", ViewPaidMediaOnly, false},
		{"onsite", ViewOnSiteOnly, false},
		{"beyond", ViewOnSiteOnly, false},
		{"sideways", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseView(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBundle_Metric(t *testing.T) {
	t.Parallel()

	b := Aggregate(scenarioRows(), Context{})

	v, ok := b.Metric(model.MetricCPA)
	require.True(t, ok)
	assert.InDelta(t, 2500, v.Amount, delta)

	_, ok = b.Metric(model.Metric("bogus"))
	assert.False(t, ok)

	assert.Len(t, b.Metrics(), len(BundleMetrics))
}

func TestAggregate_VideoViews(t *testing.T) {
	t.Parallel()

	p := paid(5000, 1000, 20)
	p.VideoViews3s = 400
	rows := []model.Record{p, onsite(5000, 500, 50, 2, 20000)}

	b := Aggregate(rows, Context{})
	assert.Equal(t, int64(400), b.Totals.VideoViews3s)
	assert.Equal(t, Measured(400), b.VideoViews3s)
	assert.InDelta(t, 12.5, b.CostPerVideoView3s.Amount, delta)
	assert.InDelta(t, 40, b.VideoViewRate3s.Amount, delta)

	none := Aggregate([]model.Record{paid(5000, 1000, 20)}, Context{})
	assert.True(t, none.CostPerVideoView3s.Available)
	assert.Zero(t, none.CostPerVideoView3s.Amount)

	versioned := Aggregate(rows, Context{VersionFilterActive: true})
	assert.False(t, versioned.VideoViews3s.Available)
	assert.False(t, versioned.CostPerVideoView3s.Available)
	assert.False(t, versioned.VideoViewRate3s.Available)
}
