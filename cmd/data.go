package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/adperf/internal/cascade"
	"github.com/sells-group/adperf/internal/catalog"
	"github.com/sells-group/adperf/internal/dataset"
	"github.com/sells-group/adperf/internal/feed"
	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/narrate"
	"github.com/sells-group/adperf/internal/normalize"
	"github.com/sells-group/adperf/internal/store"
	"github.com/sells-group/adperf/pkg/anthropic"
)

// loadDataset fetches every configured feed and normalizes it.
func loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if err := cfg.Validate("report"); err != nil {
		return nil, err
	}

	loc, err := cfg.Normalize.Location()
	if err != nil {
		return nil, err
	}

	var cat *model.Catalog
	if cfg.Catalog.Path != "" {
		c, err := catalog.LoadYAML(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		cat = &c
	}

	loader := feed.NewLoader(feed.Options{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		UserAgent:  cfg.Fetch.UserAgent,
	})
	bundle, err := loader.Load(ctx, cfg.Feeds)
	if err != nil {
		return nil, eris.Wrap(err, "load feeds")
	}

	return dataset.Build(bundle, cat, normalize.Options{Location: loc})
}

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// initNarrator returns nil when no Anthropic key is configured.
func initNarrator() *narrate.Narrator {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return narrate.New(anthropic.NewClient(cfg.Anthropic.Key), narrate.Options{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
	})
}

// selectionFlags are the cascade filters shared by the report commands.
type selectionFlags struct {
	from, to  string
	campaigns []string
	pages     []string
	versions  []string
	creatives []string
	view      string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "first day to include (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last day to include (YYYY-MM-DD)")
	fs.StringArrayVar(&f.campaigns, "campaign", nil, "campaign names")
	fs.StringArrayVar(&f.pages, "page", nil, "article page names")
	fs.StringArrayVar(&f.versions, "version", nil, "version names (paid-media rows are excluded)")
	fs.StringArrayVar(&f.creatives, "creative", nil, "creative parameter values")
	fs.StringVar(&f.view, "view", "", "cost view: total, paid_media or onsite")
}

func (f *selectionFlags) selection() (cascade.Selection, error) {
	return f.selectionFrom(f.from, f.to)
}

// selectionFrom keeps the label filters but swaps the date range.
func (f *selectionFlags) selectionFrom(from, to string) (cascade.Selection, error) {
	dr, err := cascade.ParseDateRange(from, to)
	if err != nil {
		return cascade.Selection{}, err
	}
	return cascade.Select(dr,
		cascade.TrimLabels(f.campaigns),
		cascade.TrimLabels(f.pages),
		cascade.TrimLabels(f.versions),
		cascade.TrimLabels(f.creatives),
	), nil
}

func (f *selectionFlags) context(sel cascade.Selection) (kpi.Context, error) {
	view, err := kpi.ParseView(f.view)
	if err != nil {
		return kpi.Context{}, err
	}
	return kpi.Context{View: view, VersionFilterActive: sel.VersionFilterActive()}, nil
}

// filtered loads the dataset and applies the selection.
func (f *selectionFlags) filtered(ctx context.Context) ([]model.Record, kpi.Context, error) {
	sel, err := f.selection()
	if err != nil {
		return nil, kpi.Context{}, err
	}
	kctx, err := f.context(sel)
	if err != nil {
		return nil, kpi.Context{}, err
	}
	ds, err := loadDataset(ctx)
	if err != nil {
		return nil, kpi.Context{}, err
	}
	return cascade.New(ds.Records).Apply(sel), kctx, nil
}
