// Package dataset turns a loaded feed bundle into the normalized record set,
// catalog and baselines every command and handler works from.
package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/catalog"
	"github.com/sells-group/adperf/internal/feed"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/normalize"
)

// Dataset is an immutable snapshot of normalized data.
type Dataset struct {
	Records   []model.Record
	Catalog   model.Catalog
	Baselines model.Baselines
	Today     time.Time
	LoadedAt  time.Time
}

// Build normalizes bundle. A non-nil cat overrides the master-setting sheet.
func Build(bundle feed.Bundle, cat *model.Catalog, opts normalize.Options) (*Dataset, error) {
	var c model.Catalog
	if cat != nil {
		c = *cat
	} else {
		c = catalog.FromMasterSetting(bundle.MasterSetting)
	}
	if len(c.Campaigns) == 0 {
		return nil, eris.New("dataset: catalog has no campaigns")
	}

	n := normalize.New(c, opts)
	ds := &Dataset{
		Records:   n.Normalize(bundle.Paid(), bundle.OnSite()),
		Catalog:   c,
		Baselines: catalog.ParseBaselines(bundle.Baseline),
		Today:     n.Today(),
		LoadedAt:  time.Now(),
	}

	zap.L().Debug("dataset: built",
		zap.Int("records", len(ds.Records)),
		zap.Int("campaigns", len(c.Campaigns)),
		zap.Int("baselines", len(ds.Baselines)),
	)
	return ds, nil
}

// LoadFunc produces a fresh Dataset.
type LoadFunc func(ctx context.Context) (*Dataset, error)

// Cache serves a Dataset and reloads it once it is older than ttl.
// A zero ttl never reloads.
type Cache struct {
	load LoadFunc
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	current *Dataset
}

// NewCache creates a Cache around load.
func NewCache(load LoadFunc, ttl time.Duration) *Cache {
	return &Cache{load: load, ttl: ttl, now: time.Now}
}

// Dataset returns the cached snapshot, reloading it when stale. When a
// reload fails and a previous snapshot exists, the previous one is served.
func (c *Cache) Dataset(ctx context.Context) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && (c.ttl <= 0 || c.now().Sub(c.current.LoadedAt) < c.ttl) {
		return c.current, nil
	}

	ds, err := c.load(ctx)
	if err != nil {
		if c.current != nil {
			zap.L().Warn("dataset: reload failed, serving previous snapshot", zap.Error(err))
			return c.current, nil
		}
		return nil, eris.Wrap(err, "dataset: load")
	}
	ds.LoadedAt = c.now()
	c.current = ds
	return ds, nil
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
