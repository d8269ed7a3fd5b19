package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/premiumbot/core/database"
	"github.com/m3rciful/premiumbot/core/logger"
)

// MaxTenants caps how many bot instances one process may run.
const MaxTenants = 12

// TenantConfig declares one bot instance: its credential, its primary
// administrator, and the namespace all its stored settings live under.
type TenantConfig struct {
	ID          string `yaml:"id"`
	Token       string `yaml:"token"`
	DisplayName string `yaml:"display_name"`
	AdminID     int64  `yaml:"admin_id"`
}

// TelegramConfig holds transport settings shared by every tenant runner.
type TelegramConfig struct {
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// RestartBackoffSeconds is the fixed delay before a failed tenant runner
	// restarts. Kept long enough for a displaced prior instance to release
	// its update stream; 0 -> default 15.
	RestartBackoffSeconds int `yaml:"restart_backoff_seconds" envconfig:"TELEGRAM_RESTART_BACKOFF_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// LoggerOptions converts the YAML section into logger initialization options.
func (l LoggingConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:       l.Level,
		Format:      l.Format,
		KeysOrder:   l.KeysOrder,
		DebugSample: l.DebugSample,
		Dir:         l.Dir,
		File:        l.BotFile,
		Profile:     l.Profile,
	}
}

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the process configuration.
type Config struct {
	Tenants   []TenantConfig  `yaml:"tenants"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Database  database.Config `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if len(cfg.Tenants) == 0 {
		return fmt.Errorf("at least one tenant is required")
	}
	if len(cfg.Tenants) > MaxTenants {
		return fmt.Errorf("too many tenants: %d (max %d)", len(cfg.Tenants), MaxTenants)
	}

	seen := make(map[string]struct{}, len(cfg.Tenants))
	for i := range cfg.Tenants {
		t := &cfg.Tenants[i]
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return fmt.Errorf("tenant #%d: id is required", i+1)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate tenant id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("tenant %q: token is required", t.ID)
		}
		if t.DisplayName == "" {
			t.DisplayName = t.ID
		}
	}

	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if cfg.Telegram.RestartBackoffSeconds < 0 {
		return fmt.Errorf("telegram.restart_backoff_seconds must be >= 0")
	}
	if cfg.Telegram.RestartBackoffSeconds == 0 {
		cfg.Telegram.RestartBackoffSeconds = 15
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
