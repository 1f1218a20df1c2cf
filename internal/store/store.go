// Package store persists analysis runs so results can be listed and
// compared over time.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: run not found")

// Run is one saved analysis result.
type Run struct {
	ID         string              `json:"id"`
	Campaign   string              `json:"campaign"`
	Period     string              `json:"period"`
	WindowDays int                 `json:"window_days"`
	Status     analysis.Status     `json:"status"`
	Bottleneck model.Metric        `json:"bottleneck,omitempty"`
	Confidence analysis.Confidence `json:"confidence"`
	Result     *analysis.Result    `json:"result,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// MetricPoint is one judged metric from a saved run.
type MetricPoint struct {
	RunID     string         `json:"run_id"`
	Metric    model.Metric   `json:"metric"`
	Current   float64        `json:"current"`
	Lower     float64        `json:"lower"`
	Upper     float64        `json:"upper"`
	State     analysis.State `json:"state"`
	Deviation float64        `json:"deviation"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Campaign   string          `json:"campaign,omitempty"`
	Bottleneck model.Metric    `json:"bottleneck,omitempty"`
	Status     analysis.Status `json:"status,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store persists analysis runs.
type Store interface {
	SaveRun(ctx context.Context, res analysis.Result, windowDays int) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	DeleteRun(ctx context.Context, id string) error
	// MetricHistory returns a campaign's judgments of one metric, newest first.
	MetricHistory(ctx context.Context, campaign string, metric model.Metric, limit int) ([]MetricPoint, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects the store named by driver and runs its migration.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// newRun builds the row for res.
func newRun(id string, res analysis.Result, windowDays int, now time.Time) *Run {
	r := res
	return &Run{
		ID:         id,
		Campaign:   res.Campaign,
		Period:     res.Period,
		WindowDays: windowDays,
		Status:     res.Status,
		Bottleneck: res.BottleneckMetric(),
		Confidence: res.Confidence,
		Result:     &r,
		CreatedAt:  now,
	}
}
