// Package config loads and validates the application configuration from a
// YAML file, with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nmitic/sunat-noticia/pkg/ads"
	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"server"`

	Database struct {
		DSN             string `yaml:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	Extraction struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"extraction"`

	Scrapers ScrapersConfig `yaml:"scrapers"`

	Ads AdsConfig `yaml:"ads"`
}

// ScraperConfig holds per-scraper scheduling settings
type ScraperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// FacebookConfig extends scraper settings with Graph API credentials
type FacebookConfig struct {
	ScraperConfig `yaml:",inline"`
	PageID        string `yaml:"page_id"`
	AccessToken   string `yaml:"access_token"`
}

// ScrapersConfig holds the configuration of every known scraper
type ScrapersConfig struct {
	Mensajes    ScraperConfig  `yaml:"mensajes"`
	SalaPrensa  ScraperConfig  `yaml:"sala_prensa"`
	Institucion ScraperConfig  `yaml:"institucion"`
	Facebook    FacebookConfig `yaml:"facebook"`
	LaRepublica ScraperConfig  `yaml:"la_republica"`
	Gestion     ScraperConfig  `yaml:"gestion"`
}

// AdEntry describes one sponsored item in the pool
type AdEntry struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Content   string `yaml:"content"`
	Source    string `yaml:"source"`
	SourceURL string `yaml:"source_url"`
}

// AdsConfig holds ad-injection settings and the ad pool
type AdsConfig struct {
	Enabled      bool      `yaml:"enabled"`
	WindowSize   int       `yaml:"window_size"`
	AdsPerWindow int       `yaml:"ads_per_window"`
	Pool         []AdEntry `yaml:"pool"`
}

// InjectorConfig converts the ads section to the injector's config type
func (a AdsConfig) InjectorConfig() ads.Config {
	return ads.Config{Enabled: a.Enabled, WindowSize: a.WindowSize, AdsPerWindow: a.AdsPerWindow}
}

// PoolAds converts the configured pool entries to domain ads
func (a AdsConfig) PoolAds(now time.Time) []domain.Ad {
	res := make([]domain.Ad, len(a.Pool))
	for i, e := range a.Pool {
		res[i] = domain.Ad{
			ID:           e.ID,
			Title:        e.Title,
			Content:      e.Content,
			Source:       e.Source,
			SourceURL:    e.SourceURL,
			Category:     domain.CategoryNoticias,
			Flags:        []domain.Flag{},
			OriginalDate: now,
			Sponsored:    true,
		}
	}
	return res
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:sunat-noticia.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for extraction
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30 * time.Second
	}

	// set defaults for scraper schedules
	for _, sc := range []*ScraperConfig{
		&cfg.Scrapers.Mensajes, &cfg.Scrapers.SalaPrensa, &cfg.Scrapers.Institucion,
		&cfg.Scrapers.Facebook.ScraperConfig, &cfg.Scrapers.LaRepublica, &cfg.Scrapers.Gestion,
	} {
		if sc.Schedule == "" {
			sc.Schedule = "@every 1h"
		}
	}

	// set defaults for ads
	if cfg.Ads.WindowSize == 0 {
		cfg.Ads.WindowSize = 10
	}
	if cfg.Ads.AdsPerWindow == 0 && cfg.Ads.Enabled {
		cfg.Ads.AdsPerWindow = 1
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if cfg.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}

	if cfg.Scrapers.Facebook.Enabled {
		if cfg.Scrapers.Facebook.PageID == "" {
			return fmt.Errorf("scrapers.facebook.page_id is required when facebook scraper enabled")
		}
		if cfg.Scrapers.Facebook.AccessToken == "" {
			return fmt.Errorf("scrapers.facebook.access_token is required when facebook scraper enabled")
		}
	}

	// the ad placement constraint is checked here so a bad ratio fails at
	// startup, not at injection time
	if err := cfg.Ads.InjectorConfig().Validate(); err != nil {
		return fmt.Errorf("ads: %w", err)
	}

	return nil
}
