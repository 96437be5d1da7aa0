package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port int    `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// List data
	DataDir          string        `env:"DATA_DIR" envDefault:"./data"`
	DataURL          string        `env:"DATA_URL"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" envDefault:"16"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Cache
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Refresh worker
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"10m"`
	WatchData       bool          `env:"WATCH_DATA" envDefault:"true"`

	// Rate limiting
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load loads configuration from environment variables.
// It returns an error if a value cannot be parsed or is out of range.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.DataURL == "" && c.DataDir == "" {
		errs = append(errs, errors.New("one of DATA_DIR or DATA_URL is required"))
	}
	if c.DataURL != "" {
		u, err := url.Parse(c.DataURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("DATA_URL must be an http(s) URL: %q", c.DataURL))
		}
	}
	if c.FetchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY must be positive: %d", c.FetchConcurrency))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive: %s", c.HTTPTimeout))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive: %s", c.CacheTTL))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must not be negative: %s", c.RefreshInterval))
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive: %v/s burst %d", c.RateLimitPerSecond, c.RateLimitBurst))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether ENV selects production logging.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// WatchDir returns the directory the refresher should watch, or "" when the
// list is served over HTTP or watching is disabled.
func (c *Config) WatchDir() string {
	if !c.WatchData || c.DataURL != "" {
		return ""
	}
	return c.DataDir
}
