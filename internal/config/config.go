// Package config loads server settings from the environment (and .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/internal/logger"
)

type Config struct {
	Port           int
	DBPath         string // SQLite path, ":memory:" allowed
	DatabaseURL    string // PostgreSQL; takes precedence over DBPath
	AllowedOrigins []string

	CurrencyLocale    string
	ReconcileInterval time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration

	LogLevel  string
	LogFormat string
	LogOutput string
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "bizledger.db"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		CurrencyLocale: getEnv("CURRENCY_LOCALE", "en-IN"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogOutput:      getEnv("LOG_OUTPUT", "stdout"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(getEnv("RECONCILE_INTERVAL", "1h")); err != nil {
		return nil, fmt.Errorf("RECONCILE_INTERVAL: %w", err)
	}
	if cfg.RetryAttempts, err = strconv.Atoi(getEnv("RETRY_ATTEMPTS", "3")); err != nil {
		return nil, fmt.Errorf("RETRY_ATTEMPTS: %w", err)
	}
	if cfg.RetryDelay, err = time.ParseDuration(getEnv("RETRY_DELAY", "1s")); err != nil {
		return nil, fmt.Errorf("RETRY_DELAY: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		return fmt.Errorf("one of DATABASE_URL or DB_PATH is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must not be negative")
	}
	return nil
}

// UsePostgres reports whether DATABASE_URL selects the PostgreSQL store.
func (c *Config) UsePostgres() bool { return c.DatabaseURL != "" }

func (c *Config) Address() string { return fmt.Sprintf(":%d", c.Port) }

func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{Level: c.LogLevel, Format: c.LogFormat, Output: c.LogOutput}
}

func (c *Config) RetryPolicy() generic.RetryPolicy {
	return generic.RetryPolicy{Attempts: c.RetryAttempts, Delay: c.RetryDelay}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
