package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WAFConfig carries the tunables for the inspection engine. It is passed
// explicitly into the engine at construction instead of living in a
// mutable global settings blob.
type WAFConfig struct {
	Enabled            bool
	CheckUploads       bool
	MaxUploadBytes     int64
	MaxRequestBytes    int
	AutoBlockThreshold int64
	AutoBlockWindow    time.Duration
	RetentionAge       time.Duration
}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment       string
	HTTPPort          string
	DatabasePath      string
	AdminPasswordHash string
	JWTSecret         string
	WAF               WAFConfig
}

// DefaultWAFConfig returns the engine defaults used when no overrides are set.
func DefaultWAFConfig() WAFConfig {
	return WAFConfig{
		Enabled:            true,
		CheckUploads:       true,
		MaxUploadBytes:     100 * 1024 * 1024,
		MaxRequestBytes:    100_000,
		AutoBlockThreshold: 10,
		AutoBlockWindow:    time.Hour,
		RetentionAge:       30 * 24 * time.Hour,
	}
}

// Load reads env vars and falls back to defaults so the server can boot with
// zero configuration.
func Load() (Config, error) {
	waf := DefaultWAFConfig()
	waf.Enabled = getEnvBool("WARDEN_WAF_ENABLED", waf.Enabled)
	waf.CheckUploads = getEnvBool("WARDEN_WAF_CHECK_UPLOADS", waf.CheckUploads)
	waf.MaxUploadBytes = getEnvInt64("WARDEN_WAF_MAX_UPLOAD_BYTES", waf.MaxUploadBytes)
	waf.MaxRequestBytes = int(getEnvInt64("WARDEN_WAF_MAX_REQUEST_BYTES", int64(waf.MaxRequestBytes)))
	waf.AutoBlockThreshold = getEnvInt64("WARDEN_WAF_AUTOBLOCK_THRESHOLD", waf.AutoBlockThreshold)
	waf.AutoBlockWindow = getEnvDuration("WARDEN_WAF_AUTOBLOCK_WINDOW", waf.AutoBlockWindow)
	waf.RetentionAge = getEnvDuration("WARDEN_AUDIT_RETENTION", waf.RetentionAge)

	cfg := Config{
		Environment:       getEnv("WARDEN_ENV", "development"),
		HTTPPort:          getEnv("WARDEN_HTTP_PORT", "8080"),
		DatabasePath:      getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		AdminPasswordHash: getEnv("WARDEN_ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("WARDEN_JWT_SECRET", ""),
		WAF:               waf,
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}

	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return fallback
}
