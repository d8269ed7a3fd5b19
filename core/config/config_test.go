package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Tenants: []TenantConfig{
			{ID: "alpha", Token: "t1", AdminID: 1},
			{ID: "beta", Token: "t2", DisplayName: "Beta", AdminID: 2},
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Tenants[0].DisplayName != "alpha" {
		t.Fatalf("display name default = %q", cfg.Tenants[0].DisplayName)
	}
	if cfg.Tenants[1].DisplayName != "Beta" {
		t.Fatalf("explicit display name overwritten: %q", cfg.Tenants[1].DisplayName)
	}
	if cfg.Telegram.RestartBackoffSeconds != 15 {
		t.Fatalf("backoff default = %d, want 15", cfg.Telegram.RestartBackoffSeconds)
	}
}

func TestNormalizeRequiresTenants(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for empty tenant list")
	}
}

func TestNormalizeRejectsTooManyTenants(t *testing.T) {
	cfg := &Config{}
	for i := 0; i <= MaxTenants; i++ {
		cfg.Tenants = append(cfg.Tenants, TenantConfig{
			ID:    strings.Repeat("x", i+1),
			Token: "t",
		})
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for too many tenants")
	}
}

func TestNormalizeRejectsDuplicateIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Tenants[1].ID = "alpha"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for duplicate tenant id")
	}
}

func TestNormalizeRejectsMissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Tenants[0].Token = "   "
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "MESSAGE"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != "callback" || cfg.RateLimit.ExcludeUpdates[1] != "message" {
		t.Fatalf("exclusions = %v", cfg.RateLimit.ExcludeUpdates)
	}

	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unsupported exclusion")
	}
}

func TestNormalizeRejectsNegativeTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.LongPollTimeoutSeconds = -1
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for negative longpoll timeout")
	}

	cfg = validConfig()
	cfg.Telegram.RestartBackoffSeconds = -5
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for negative backoff")
	}
}
