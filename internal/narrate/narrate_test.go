package narrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/pkg/anthropic"
)

type mockClient struct {
	resp *anthropic.Response
	err  error
	got  anthropic.Request
}

func (m *mockClient) Complete(_ context.Context, req anthropic.Request) (*anthropic.Response, error) {
	m.got = req
	return m.resp, m.err
}

func sampleResult(t *testing.T) analysis.Result {
	t.Helper()
	rows := []model.Record{
		{Date: model.Day(2024, 1, 1), Campaign: "Demo", Source: model.SourcePaidMedia, Cost: 5000, Impressions: 1000, Clicks: 20},
		{Date: model.Day(2024, 1, 1), Campaign: "Demo", Source: model.SourceOnSitePage, Cost: 5000, PageViews: 500, Clicks: 50, Conversions: 2},
	}
	e := analysis.NewEngine(model.Baselines{"Demo": {
		model.MetricCPA: {Lower: 1000, Upper: 2000, Direction: model.LowerIsBetter},
		model.MetricCTR: {Lower: 1, Upper: 3, Direction: model.HigherIsBetter},
	}})
	res, err := e.Analyze("Demo", "the last 7 days", kpi.Aggregate(rows, kpi.Context{}))
	require.NoError(t, err)
	return res
}

func TestPrompt(t *testing.T) {
	t.Parallel()

	p := Prompt(sampleResult(t))
	assert.Contains(t, p, "Campaign: Demo")
	assert.Contains(t, p, "Headline: CPA for the last 7 days is +25% above baseline.")
	assert.Contains(t, p, "- CTR: current 2.00, band 1.00 to 3.00, ok\n")
	assert.Contains(t, p, "- CPA: current 2500.00, band 1000.00 to 2000.00, high, 25% past the band")
	assert.Contains(t, p, "Bottleneck: CPA")
	assert.Contains(t, p, "1. Fix the upstream metric with the largest deviation first")
}

func TestNarrate(t *testing.T) {
	t.Parallel()

	mc := &mockClient{resp: &anthropic.Response{Text: "CPA is 25% above its band."}}
	n := New(mc, Options{})

	text, err := n.Narrate(context.Background(), sampleResult(t))
	require.NoError(t, err)
	assert.Equal(t, "CPA is 25% above its band.", text)

	assert.Equal(t, DefaultModel, mc.got.Model)
	assert.Equal(t, int64(DefaultMaxTokens), mc.got.MaxTokens)
	assert.Contains(t, mc.got.System, "performance briefings")
	assert.Empty(t, mc.got.CacheTTL)
	assert.Contains(t, mc.got.Prompt, "Bottleneck: CPA")
}

func TestNarrate_Options(t *testing.T) {
	t.Parallel()

	mc := &mockClient{resp: &anthropic.Response{Text: "ok"}}
	n := New(mc, Options{Model: "claude-sonnet-4-5-20250929", MaxTokens: 128})
	_, err := n.Narrate(context.Background(), sampleResult(t))
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250929", mc.got.Model)
	assert.Equal(t, int64(128), mc.got.MaxTokens)
}

func TestNarrate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no baseline", func(t *testing.T) {
		t.Parallel()
		n := New(&mockClient{}, Options{})
		_, err := n.Narrate(context.Background(), analysis.Result{Campaign: "X", Status: analysis.StatusNoBaseline})
		assert.ErrorContains(t, err, "no_baseline")
	})

	t.Run("client error", func(t *testing.T) {
		t.Parallel()
		n := New(&mockClient{err: errors.New("rate limited")}, Options{})
		_, err := n.Narrate(context.Background(), sampleResult(t))
		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("empty response", func(t *testing.T) {
		t.Parallel()
		n := New(&mockClient{resp: &anthropic.Response{}}, Options{})
		_, err := n.Narrate(context.Background(), sampleResult(t))
		assert.ErrorContains(t, err, "empty response")
	})
}
