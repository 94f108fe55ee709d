package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SAAS_PG_DSN", "postgres://localhost:5432/saas?sslmode=disable")
	t.Setenv("SAAS_AUTH_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr=%q, want :8080", cfg.HTTPAddr)
	}
	if cfg.Env != EnvDevelopment || cfg.Production() {
		t.Fatalf("default env must be development, got %q", cfg.Env)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("AccessTTL=%v, want 15m", cfg.AccessTTL)
	}
	if cfg.Issuer != "saas-skeleton" || cfg.Audience != "saas-skeleton" {
		t.Fatalf("unexpected issuer/audience: %q/%q", cfg.Issuer, cfg.Audience)
	}
	if cfg.RateBurst != 20 || cfg.RatePerSec != 10 {
		t.Fatalf("unexpected rate defaults: %d/%d", cfg.RateBurst, cfg.RatePerSec)
	}
}

func TestLoadRequiresDSNAndSecret(t *testing.T) {
	t.Setenv("SAAS_PG_DSN", "")
	t.Setenv("SAAS_AUTH_SECRET", "test-secret")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SAAS_PG_DSN") {
		t.Fatalf("expected missing DSN error, got %v", err)
	}

	t.Setenv("SAAS_PG_DSN", "postgres://localhost/saas")
	t.Setenv("SAAS_AUTH_SECRET", "  ")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SAAS_AUTH_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SAAS_HTTP_ADDR", ":9090")
	t.Setenv("SAAS_ENV", "production")
	t.Setenv("SAAS_ACCESS_TTL_MINUTES", "5")
	t.Setenv("SAAS_AUTH_ISSUER", "edge")
	t.Setenv("SAAS_AUTH_AUDIENCE", "spa")
	t.Setenv("SAAS_RATE_BURST", "50")
	t.Setenv("SAAS_RATE_PER_SEC", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || !cfg.Production() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("AccessTTL=%v, want 5m", cfg.AccessTTL)
	}
	if cfg.Issuer != "edge" || cfg.Audience != "spa" {
		t.Fatalf("unexpected issuer/audience: %q/%q", cfg.Issuer, cfg.Audience)
	}
	if cfg.RateBurst != 50 || cfg.RatePerSec != 25 {
		t.Fatalf("unexpected rates: %d/%d", cfg.RateBurst, cfg.RatePerSec)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequired(t)

	t.Setenv("SAAS_ENV", "staging")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown env error")
	}
	t.Setenv("SAAS_ENV", "development")

	t.Setenv("SAAS_ACCESS_TTL_MINUTES", "abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected TTL parse error")
	}

	t.Setenv("SAAS_ACCESS_TTL_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected positive TTL error")
	}
}
