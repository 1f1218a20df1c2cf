package feed

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/adperf/internal/fetcher"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/resilience"
)

// Options configures a Loader.
type Options struct {
	HTTP  fetcher.Fetcher // default: fetcher.NewHTTPFetcher
	FTP   fetcher.Fetcher // default: fetcher.NewFTPFetcher
	Retry resilience.RetryConfig

	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// Loader reads feed sheets from local files, HTTP or FTP.
type Loader struct {
	http  fetcher.Fetcher
	ftp   fetcher.Fetcher
	retry resilience.RetryConfig
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	l := &Loader{http: opts.HTTP, ftp: opts.FTP, retry: opts.Retry}
	if l.http == nil {
		l.http = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		})
	}
	if l.ftp == nil {
		l.ftp = fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: opts.Timeout})
	}
	if l.retry.MaxAttempts == 0 {
		l.retry = resilience.DefaultRetryConfig().WithAttempts(opts.MaxRetries)
	}
	return l
}

// Load reads every configured sheet concurrently. The first failure
// cancels the rest.
func (l *Loader) Load(ctx context.Context, src Sources) (Bundle, error) {
	var b Bundle
	targets := []struct {
		name string
		src  Source
		dst  *[]model.RawRow
	}{
		{"paid_live", src.PaidLive, &b.PaidLive},
		{"paid_history", src.PaidHistory, &b.PaidHistory},
		{"onsite_live", src.OnSiteLive, &b.OnSiteLive},
		{"onsite_history", src.OnSiteHistory, &b.OnSiteHistory},
		{"master_setting", src.MasterSetting, &b.MasterSetting},
		{"baseline", src.Baseline, &b.Baseline},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			rows, err := l.LoadSource(gctx, t.name, t.src)
			if err != nil {
				return err
			}
			*t.dst = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// LoadSource reads one sheet, retrying transient failures. HTTP sources get
// a single attempt here since the HTTP fetcher retries on its own. An
// unconfigured source yields no rows.
func (l *Loader) LoadSource(ctx context.Context, name string, src Source) ([]model.RawRow, error) {
	if !src.Configured() {
		zap.L().Debug("feed: source not configured", zap.String("feed", name))
		return nil, nil
	}

	format, err := src.ResolvedFormat()
	if err != nil {
		return nil, eris.Wrapf(err, "feed: %s", name)
	}

	cfg := l.retry
	cfg.OnRetry = resilience.RetryLogger(name, "load")
	if isHTTP(src.Location) {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	sheet, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (fetcher.Sheet, error) {
		return l.read(ctx, src, format)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "feed: load %s", name)
	}

	zap.L().Info("feed: loaded",
		zap.String("feed", name),
		zap.String("format", string(format)),
		zap.Int("rows", sheet.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sheet.Rows, nil
}

func (l *Loader) read(ctx context.Context, src Source, format Format) (fetcher.Sheet, error) {
	remote, err := l.fetcherFor(src.Location)
	if err != nil {
		return fetcher.Sheet{}, err
	}

	if format == FormatXLSX {
		path := src.Location
		if remote != nil {
			dir, err := os.MkdirTemp("", "adperf-feed-*")
			if err != nil {
				return fetcher.Sheet{}, eris.Wrap(err, "feed: create temp dir")
			}
			defer os.RemoveAll(dir) //nolint:errcheck

			path = filepath.Join(dir, "sheet.xlsx")
			if _, err := remote.DownloadToFile(ctx, src.Location, path); err != nil {
				return fetcher.Sheet{}, err
			}
		}
		return fetcher.ReadXLSXSheet(path, fetcher.XLSXOptions{SheetName: src.Sheet, SkipRows: src.SkipRows})
	}

	var body io.ReadCloser
	if remote != nil {
		body, err = remote.Download(ctx, src.Location)
	} else {
		body, err = os.Open(src.Location)
		err = eris.Wrap(err, "feed: open file")
	}
	if err != nil {
		return fetcher.Sheet{}, err
	}
	defer body.Close() //nolint:errcheck

	return fetcher.ReadCSV(ctx, body, fetcher.CSVOptions{LazyQuotes: true, SkipRows: src.SkipRows})
}

// fetcherFor returns the remote fetcher for location, or nil for a local path.
func (l *Loader) fetcherFor(location string) (fetcher.Fetcher, error) {
	if !strings.Contains(location, "://") {
		return nil, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse location")
	}
	switch u.Scheme {
	case "http", "https":
		return l.http, nil
	case "ftp":
		return l.ftp, nil
	default:
		return nil, eris.Errorf("feed: unsupported scheme %q", u.Scheme)
	}
}

func isHTTP(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
