package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/feed"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "adperf.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 300, cfg.Server.CacheTTLSecs)
	assert.Equal(t, "Asia/Tokyo", cfg.Normalize.Timezone)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(512), cfg.Anthropic.MaxTokens)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.Equal(t, 3600, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 0.2, cfg.Monitoring.DeviationThreshold, 1e-9)
	assert.Equal(t, int64(30), cfg.Monitoring.MinConversions)
	assert.False(t, cfg.Feeds.PaidLive.Configured())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
feeds:
  paid_history:
    location: https://example.com/paid.csv
  master_setting:
    location: ./master.xlsx
    sheet: Master
    skip_rows: 1
store:
  driver: postgres
  database_url: postgres://localhost/adperf
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/paid.csv", cfg.Feeds.PaidHistory.Location)
	assert.Equal(t, "Master", cfg.Feeds.MasterSetting.Sheet)
	assert.Equal(t, 1, cfg.Feeds.MasterSetting.SkipRows)
	format, err := cfg.Feeds.MasterSetting.ResolvedFormat()
	require.NoError(t, err)
	assert.Equal(t, feed.FormatXLSX, format)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("ADPERF_STORE_DRIVER", "postgres")
	t.Setenv("ADPERF_LOG_LEVEL", "warn")
	t.Setenv("ADPERF_FEEDS_ONSITE_LIVE_LOCATION", "ftp://host/live.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "ftp://host/live.csv", cfg.Feeds.OnSiteLive.Location)
}

func TestLoadBadFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("feeds: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func validReport() *Config {
	cfg := &Config{}
	cfg.Feeds.PaidHistory.Location = "paid.csv"
	cfg.Feeds.MasterSetting.Location = "master.csv"
	cfg.Normalize.Timezone = "Asia/Tokyo"
	cfg.Fetch.TimeoutSecs = 30
	cfg.Fetch.MaxRetries = 3
	cfg.Server.Port = 8080
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "adperf.db"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"report ok", "report", func(*Config) {}, ""},
		{"catalog file replaces master", "report", func(c *Config) {
			c.Feeds.MasterSetting.Location = ""
			c.Catalog.Path = "catalog.yaml"
		}, ""},
		{"no feeds", "report", func(c *Config) { c.Feeds.PaidHistory.Location = "" }, "paid or onsite feed"},
		{"no catalog", "report", func(c *Config) { c.Feeds.MasterSetting.Location = "" }, "catalog.path"},
		{"bad zone", "report", func(c *Config) { c.Normalize.Timezone = "Mars/Olympus" }, "normalize.timezone"},
		{"bad timeout", "report", func(c *Config) { c.Fetch.TimeoutSecs = 0 }, "fetch.timeout_secs"},
		{"serve ok", "serve", func(*Config) {}, ""},
		{"serve port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"runs ok", "runs", func(*Config) {}, ""},
		{"runs driver", "runs", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"runs url", "runs", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"unknown mode", "nope", func(*Config) {}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validReport()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paid or onsite feed")
	assert.Contains(t, err.Error(), "catalog.path")
	assert.Contains(t, err.Error(), "server.port must be > 0")
}
