package monitoring

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/dataset"
)

// Provider serves the current dataset.
type Provider interface {
	Dataset(ctx context.Context) (*dataset.Dataset, error)
}

// Snapshot holds one analysis per campaign at a point in time.
type Snapshot struct {
	Results     []analysis.Result `json:"results"`
	WindowDays  int               `json:"window_days"`
	Today       time.Time         `json:"today"`
	CollectedAt time.Time         `json:"collected_at"`
}

// Collector analyzes every known campaign over a trailing window.
type Collector struct {
	provider Provider
}

// NewCollector creates a new snapshot collector.
func NewCollector(p Provider) *Collector {
	return &Collector{provider: p}
}

// Collect analyzes every campaign that has baseline bands or a catalog
// entry. Catalog campaigns without bands yield StatusNoBaseline results.
func (c *Collector) Collect(ctx context.Context, windowDays int) (*Snapshot, error) {
	ds, err := c.provider.Dataset(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load dataset")
	}

	snap := &Snapshot{
		WindowDays:  windowDays,
		Today:       ds.Today,
		CollectedAt: time.Now().UTC(),
	}

	names := make(map[string]bool)
	for name := range ds.Baselines {
		names[name] = true
	}
	for _, name := range ds.Catalog.Names() {
		names[name] = true
	}

	engine := analysis.NewEngine(ds.Baselines)
	for _, name := range slices.Sorted(maps.Keys(names)) {
		res, err := engine.Run(ds.Records, name, windowDays, ds.Today)
		if err != nil && !errors.Is(err, analysis.ErrNoBaseline) {
			return nil, eris.Wrapf(err, "monitoring: analyze %s", name)
		}
		snap.Results = append(snap.Results, res)
	}

	return snap, nil
}
