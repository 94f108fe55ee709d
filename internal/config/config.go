package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names. Production enables the Secure cookie flag and disables
// the seeding endpoint.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds process-wide settings read from the environment at startup.
type Config struct {
	HTTPAddr string
	Env      string

	// PGDSN is the storage connection string. Required.
	PGDSN string

	// AuthSecret signs access tokens. Required.
	AuthSecret string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration

	RateBurst  int
	RatePerSec int
}

// Load reads configuration from the environment. Missing required values
// fail startup.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:   getEnv("SAAS_HTTP_ADDR", ":8080"),
		Env:        getEnv("SAAS_ENV", EnvDevelopment),
		PGDSN:      strings.TrimSpace(os.Getenv("SAAS_PG_DSN")),
		AuthSecret: strings.TrimSpace(os.Getenv("SAAS_AUTH_SECRET")),
		Issuer:     getEnv("SAAS_AUTH_ISSUER", "saas-skeleton"),
		Audience:   getEnv("SAAS_AUTH_AUDIENCE", "saas-skeleton"),
	}

	if cfg.PGDSN == "" {
		return nil, errors.New("config: SAAS_PG_DSN is required")
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("config: SAAS_AUTH_SECRET is required")
	}
	switch cfg.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return nil, fmt.Errorf("config: unknown SAAS_ENV %q", cfg.Env)
	}

	ttlMinutes, err := getEnvInt("SAAS_ACCESS_TTL_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, errors.New("config: SAAS_ACCESS_TTL_MINUTES must be positive")
	}
	cfg.AccessTTL = time.Duration(ttlMinutes) * time.Minute

	if cfg.RateBurst, err = getEnvInt("SAAS_RATE_BURST", 20); err != nil {
		return nil, err
	}
	if cfg.RatePerSec, err = getEnvInt("SAAS_RATE_PER_SEC", 10); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Production reports whether the process runs with production hardening.
func (c *Config) Production() bool { return c.Env == EnvProduction }

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
