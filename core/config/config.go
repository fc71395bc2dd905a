package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig is the bot identity and how updates reach it.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID may run the admin commands; zero disables them.
	AdminID int64 `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	// OrdersChatID receives every placed order. Zero means AdminID.
	OrdersChatID int64 `yaml:"orders_chat_id" envconfig:"TELEGRAM_ORDERS_CHAT_ID"`
	// RunMode is longpoll (default, "polling" accepted) or webhook.
	RunMode                string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// LoggingConfig selects log level, format and destinations. See the logger
// package for the accepted values.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds that may bypass the per-user rate limit.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
	UpdateWebApp   = "web_app"
)

var throttleKinds = []string{UpdateCallback, UpdateMessage, UpdateWebApp}

// RateLimitConfig sets the minimum gap between two updates of one user.
// ExcludeUpdates lists update kinds that are never limited.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config is the part of the configuration shared by every bot built on core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ErrInvalid wraps every validation problem reported by Normalize.
var ErrInvalid = errors.New("invalid config")

// Load reads and normalizes a core-only configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals the YAML file at path into dst and then applies
// environment overrides from the envconfig tags.
func Decode(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// Normalize fills defaults and reports every invalid field at once.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	var problems []error
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		bad("telegram.token is required")
	}
	if cfg.Telegram.OrdersChatID == 0 {
		cfg.Telegram.OrdersChatID = cfg.Telegram.AdminID
	}

	switch mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		cfg.Telegram.RunMode = RunModeLongpoll
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			bad("telegram.longpoll_timeout_seconds must be >= 0")
		}
	case RunModeWebhook:
		cfg.Telegram.RunMode = RunModeWebhook
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			bad("webhook.url is required in webhook mode")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			bad("webhook.listen is required in webhook mode")
		}
		if cfg.Webhook.Port <= 0 {
			bad("webhook.port must be > 0 in webhook mode")
		}
	default:
		bad("telegram.run_mode %q is not one of webhook, longpoll", cfg.Telegram.RunMode)
	}

	if cfg.RateLimit.IntervalMS < 0 {
		bad("rate_limit.interval_ms must be >= 0")
	}
	kinds := make([]string, 0, len(cfg.RateLimit.ExcludeUpdates))
	for _, v := range cfg.RateLimit.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch {
		case kind == "":
		case slices.Contains(throttleKinds, kind):
			kinds = append(kinds, kind)
		default:
			bad("rate_limit.exclude_updates value %q is not one of %s", v, strings.Join(throttleKinds, ", "))
		}
	}
	cfg.RateLimit.ExcludeUpdates = kinds

	return errors.Join(problems...)
}
