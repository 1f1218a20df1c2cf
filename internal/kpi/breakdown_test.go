package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adperf/internal/model"
)

func breakdownRows() []model.Record {
	ad := paid(400, 1000, 30)
	ad.AdIdentifier = "c1"
	ad.VideoViews3s = 200

	return []model.Record{
		creative(onsite(300, 100, 20, 2, 1000), "v1", "c1"),
		creative(onsite(100, 50, 10, 1, 0), "v1", "c2"),
		creative(onsite(500, 100, 10, 0, 0), "v2", "c1"),
		onsite(50, 10, 1, 0, 0),
		ad,
	}
}

func TestBreakdown_ByVersion(t *testing.T) {
	t.Parallel()

	out := Breakdown(breakdownRows(), Context{}, ByVersion)
	require.Len(t, out, 2)

	assert.Equal(t, "v2", out[0].Label)
	assert.InDelta(t, 500, out[0].Bundle.Cost, delta)

	v1 := out[1]
	assert.Equal(t, "Demo", v1.Campaign)
	assert.Equal(t, "v1", v1.Label)
	assert.True(t, v1.Bundle.Context.VersionFilterActive)
	assert.Equal(t, 2, v1.Bundle.Totals.Rows)
	assert.InDelta(t, 400, v1.Bundle.Cost, delta)
	assert.Equal(t, int64(150), v1.Bundle.Clicks)
	assert.Equal(t, int64(3), v1.Bundle.Conversions)
	assert.InDelta(t, 400.0/3, v1.Bundle.CPA, delta)
	assert.False(t, v1.Bundle.CTR.Available)
}

func TestBreakdown_ByCreative(t *testing.T) {
	t.Parallel()

	out := Breakdown(breakdownRows(), Context{}, ByCreative)
	require.Len(t, out, 2)

	c1 := out[0]
	assert.Equal(t, "c1", c1.Label)
	assert.Equal(t, 3, c1.Bundle.Totals.Rows)
	assert.InDelta(t, 800, c1.Bundle.Cost, delta)
	assert.InDelta(t, 3, c1.Bundle.CTR.Amount, delta)
	assert.Equal(t, Measured(200), c1.Bundle.VideoViews3s)
	assert.InDelta(t, 2, c1.Bundle.CostPerVideoView3s.Amount, delta)
	assert.Equal(t, int64(2), c1.Bundle.Conversions)

	assert.Equal(t, "c2", out[1].Label)
	assert.InDelta(t, 100, out[1].Bundle.Cost, delta)

	paidView := Breakdown(breakdownRows(), Context{View: ViewPaidMediaOnly}, ByCreative)
	require.Len(t, paidView, 2)
	assert.Equal(t, "c1", paidView[0].Label)
	assert.InDelta(t, 400, paidView[0].Bundle.Cost, delta)
	assert.Zero(t, paidView[1].Bundle.Cost)
}

func TestBreakdown_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Breakdown(nil, Context{}, ByCreative))
	assert.Empty(t, Breakdown([]model.Record{paid(10, 10, 1)}, Context{}, ByVersion))
}

func TestParseDimension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Dimension
		wantErr bool
	}{
		{"", ByVersion, false},
		{"Version", ByVersion, false},
		{" creatives ", ByCreative, false},
		{"page", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDimension(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
