// Package config loads the bakery bot configuration: the shared core
// sections plus catalog, orders, email, api and database settings.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/bakerybot/core/config"
	coredatabase "github.com/m3rciful/bakerybot/core/database"
)

// CatalogConfig controls the upstream CMS mirror.
type CatalogConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"CATALOG_BASE_URL"`
	CacheFile       string        `yaml:"cache_file" envconfig:"CATALOG_CACHE_FILE"`
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"CATALOG_REFRESH_INTERVAL"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" envconfig:"CATALOG_FETCH_TIMEOUT"`
	RetryAttempts   int           `yaml:"retry_attempts" envconfig:"CATALOG_RETRY_ATTEMPTS"`
	RetryDelay      time.Duration `yaml:"retry_delay" envconfig:"CATALOG_RETRY_DELAY"`
}

// OrdersConfig controls order numbering.
type OrdersConfig struct {
	CounterFile string `yaml:"counter_file" envconfig:"ORDERS_COUNTER_FILE"`
	// Timezone is an IANA name; empty means the process local zone.
	Timezone string `yaml:"timezone" envconfig:"ORDERS_TIMEZONE"`

	location *time.Location
}

// Location returns the resolved timezone (time.Local before Normalize).
func (o OrdersConfig) Location() *time.Location {
	if o.location == nil {
		return time.Local
	}
	return o.location
}

// EmailConfig describes the SMTP relay. An empty Host disables email.
type EmailConfig struct {
	Host     string        `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int           `yaml:"port" envconfig:"SMTP_PORT"`
	Username string        `yaml:"username" envconfig:"SMTP_USERNAME"`
	Password string        `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From     string        `yaml:"from" envconfig:"SMTP_FROM"`
	To       []string      `yaml:"to" envconfig:"SMTP_TO"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"SMTP_TIMEOUT"`
}

// Enabled reports whether email notifications are configured.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.Host) != ""
}

// APIConfig controls the mini-app REST API.
type APIConfig struct {
	Listen         string   `yaml:"listen" envconfig:"API_LISTEN"`
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"API_ALLOWED_ORIGINS"`
	// WebAppURL is the mini-app page opened from the /start keyboard.
	WebAppURL string `yaml:"webapp_url" envconfig:"WEBAPP_URL"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Catalog  CatalogConfig       `yaml:"catalog"`
	Orders   OrdersConfig        `yaml:"orders"`
	Email    EmailConfig         `yaml:"email"`
	API      APIConfig           `yaml:"api"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads YAML from path, overlays environment variables and normalizes.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required settings and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	c := &cfg.Catalog
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url %q is not an absolute URL", c.BaseURL)
	}
	if c.CacheFile == "" {
		c.CacheFile = "data/catalog.json"
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 60 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}

	o := &cfg.Orders
	if o.CounterFile == "" {
		o.CounterFile = "data/order_counter.json"
	}
	o.location = time.Local
	if tz := strings.TrimSpace(o.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid orders.timezone %q: %w", o.Timezone, err)
		}
		o.location = loc
	}

	e := &cfg.Email
	if e.Enabled() {
		if len(e.To) == 0 {
			return fmt.Errorf("email.to is required when email.host is set")
		}
		if e.Port == 0 {
			e.Port = 587
		}
		if e.Timeout <= 0 {
			e.Timeout = 15 * time.Second
		}
	}

	a := &cfg.API
	if a.Listen == "" {
		a.Listen = ":8080"
	}
	if a.WebAppURL != "" && !strings.HasPrefix(a.WebAppURL, "https://") {
		return fmt.Errorf("api.webapp_url must use https, got %q", a.WebAppURL)
	}

	if cfg.Database.Enabled() && cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	return nil
}
