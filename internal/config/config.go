// Package config loads adperf configuration from config.yaml and ADPERF_*
// environment variables, and initializes the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/adperf/internal/feed"
)

// Config holds the full application configuration.
type Config struct {
	Feeds      feed.Sources     `yaml:"feeds" mapstructure:"feeds"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Normalize  NormalizeConfig  `yaml:"normalize" mapstructure:"normalize"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CatalogConfig points at an optional YAML campaign catalog. When Path is
// empty the master-setting feed is used instead.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// NormalizeConfig configures row normalization.
type NormalizeConfig struct {
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// Location loads the configured zone.
func (c NormalizeConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", c.Timezone)
	}
	return loc, nil
}

// FetchConfig configures feed downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	CacheTTLSecs   int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// AnthropicConfig holds the narrative model settings. An empty Key
// disables narratives.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MonitoringConfig configures baseline alerts. An empty WebhookURL
// disables delivery; alerts are still logged.
type MonitoringConfig struct {
	WebhookURL         string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs  int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WindowDays         int     `yaml:"window_days" mapstructure:"window_days"`
	DeviationThreshold float64 `yaml:"deviation_threshold" mapstructure:"deviation_threshold"`
	MinConversions     int64   `yaml:"min_conversions" mapstructure:"min_conversions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var feedNames = []string{"paid_live", "paid_history", "onsite_live", "onsite_history", "master_setting", "baseline"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADPERF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every feed key is registered so env overrides reach Unmarshal.
	for _, name := range feedNames {
		v.SetDefault("feeds."+name+".location", "")
		v.SetDefault("feeds."+name+".format", "")
		v.SetDefault("feeds."+name+".sheet", "")
		v.SetDefault("feeds."+name+".skip_rows", 0)
	}
	v.SetDefault("catalog.path", "")
	v.SetDefault("normalize.timezone", "Asia/Tokyo")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "adperf/1.0")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "adperf.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.cache_ttl_secs", 300)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 3600)
	v.SetDefault("monitoring.window_days", 7)
	v.SetDefault("monitoring.deviation_threshold", 0.2)
	v.SetDefault("monitoring.min_conversions", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "report" (any command reading feeds), "serve" and "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	report := func() {
		if !c.Feeds.PaidHistory.Configured() && !c.Feeds.PaidLive.Configured() &&
			!c.Feeds.OnSiteHistory.Configured() && !c.Feeds.OnSiteLive.Configured() {
			errs = append(errs, "at least one paid or onsite feed location is required")
		}
		if c.Catalog.Path == "" && !c.Feeds.MasterSetting.Configured() {
			errs = append(errs, "catalog.path or feeds.master_setting.location is required")
		}
		if _, err := c.Normalize.Location(); err != nil {
			errs = append(errs, fmt.Sprintf("normalize.timezone %q is not a known zone", c.Normalize.Timezone))
		}
		if c.Fetch.TimeoutSecs <= 0 {
			errs = append(errs, "fetch.timeout_secs must be > 0")
		}
		if c.Fetch.MaxRetries < 0 {
			errs = append(errs, "fetch.max_retries must be >= 0")
		}
	}
	storeCheck := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	switch mode {
	case "report":
		report()
	case "serve":
		report()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.CacheTTLSecs < 0 {
			errs = append(errs, "server.cache_ttl_secs must be >= 0")
		}
	case "runs":
		storeCheck()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
