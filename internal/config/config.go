// Package config loads and validates ingestor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Ops     OpsConfig     `mapstructure:"ops"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig points at the catalog website.
type SourceConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	ListingTemplate string `mapstructure:"listing_template"`
	UserAgent       string `mapstructure:"user_agent"`
}

// CrawlerConfig holds the per-stage concurrency gates and the request
// timeout. The limits are configuration, not architecture.
type CrawlerConfig struct {
	ListingConcurrency    int `mapstructure:"listing_concurrency"`
	DetailConcurrency     int `mapstructure:"detail_concurrency"`
	ImageConcurrency      int `mapstructure:"image_concurrency"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// StorageConfig sets the image storage path.
type StorageConfig struct {
	PaintingsDir string `mapstructure:"paintings_dir"`
}

// DBConfig controls access to the record store.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// OpsConfig controls the observability HTTP server.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRETYAKOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://www.tretyakovgallery.ru")
	v.SetDefault("source.listing_template",
		"https://www.tretyakovgallery.ru/collection/?category=all&period=all&page=%d&place=all")
	v.SetDefault("source.user_agent", "tretyakov-ingestor/0.1")
	v.SetDefault("crawler.listing_concurrency", 50)
	v.SetDefault("crawler.detail_concurrency", 20)
	v.SetDefault("crawler.image_concurrency", 20)
	v.SetDefault("crawler.request_timeout_seconds", 15)
	v.SetDefault("storage.paintings_dir", "static/paintings")
	v.SetDefault("db.provider", "postgres")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must be set")
	}
	if !strings.Contains(c.Source.ListingTemplate, "%d") {
		return fmt.Errorf("source.listing_template must contain a %%d page placeholder")
	}
	if c.Crawler.ListingConcurrency <= 0 {
		return fmt.Errorf("crawler.listing_concurrency must be > 0")
	}
	if c.Crawler.DetailConcurrency <= 0 {
		return fmt.Errorf("crawler.detail_concurrency must be > 0")
	}
	if c.Crawler.ImageConcurrency <= 0 {
		return fmt.Errorf("crawler.image_concurrency must be > 0")
	}
	if c.Crawler.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.request_timeout_seconds must be > 0")
	}
	if c.Storage.PaintingsDir == "" {
		return fmt.Errorf("storage.paintings_dir must be set")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.provider: %s", c.DB.Provider)
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when ops server is enabled")
	}
	return nil
}

// RequestTimeout converts the timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.RequestTimeoutSeconds) * time.Second
}

// ListingURL renders the listing URL for a 1-based page number.
func (c Config) ListingURL(page int) string {
	return fmt.Sprintf(c.Source.ListingTemplate, page)
}
