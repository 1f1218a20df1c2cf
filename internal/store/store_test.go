package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/model"
)

func sampleResult(campaign string) analysis.Result {
	cpa := analysis.Judge(model.MetricCPA, 2500, model.Band{Lower: 1000, Upper: 2000, Direction: model.LowerIsBetter})
	ctr := analysis.Judge(model.MetricCTR, 2, model.Band{Lower: 1, Upper: 3, Direction: model.HigherIsBetter})
	return analysis.Result{
		Campaign:    campaign,
		Period:      "the last 7 days",
		Status:      analysis.StatusOK,
		Confidence:  analysis.ConfidenceLow,
		Conversions: 2,
		Bottleneck:  &cpa,
		Proposals:   analysis.Proposals(model.MetricCPA),
		Judgments:   []analysis.Judgment{ctr, cpa},
		Summary:     analysis.Summary{Key: analysis.SummaryCPAAboveBand, Campaign: campaign, Period: "the last 7 days", CPADeviationPct: 25},
	}
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	res := sampleResult("Demo")
	r := newRun("abc", res, 7, now)

	assert.Equal(t, "abc", r.ID)
	assert.Equal(t, "Demo", r.Campaign)
	assert.Equal(t, 7, r.WindowDays)
	assert.Equal(t, model.MetricCPA, r.Bottleneck)
	assert.Equal(t, analysis.ConfidenceLow, r.Confidence)
	assert.Equal(t, now, r.CreatedAt)

	// The stored result is a copy.
	res.Campaign = "changed"
	assert.Equal(t, "Demo", r.Result.Campaign)
}

func TestRunFilter_Limit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultListLimit, RunFilter{}.limit())
	assert.Equal(t, defaultListLimit, RunFilter{Limit: -1}.limit())
	assert.Equal(t, 5, RunFilter{Limit: 5}.limit())
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, "", filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)

	_, err = Open(ctx, "mysql", "x", nil)
	assert.Error(t, err)
}
