/**
 * @description
 * Configuration loader for the Tomanchart backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if DATABASE_URL is missing.
 * - Uses a Singleton-like pattern where Load() returns a Config struct.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Source SourceConfig
	Ingest IngestConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// SourceConfig holds settings for the upstream price source (bonbast.com)
type SourceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// IngestConfig holds scheduler / ingestion settings
type IngestConfig struct {
	CronSecret string
	Interval   time.Duration
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Source: SourceConfig{
			BaseURL: getEnv("BONBAST_BASE_URL", "https://www.bonbast.com"),
			Timeout: time.Duration(getEnvAsInt("SOURCE_TIMEOUT_SECONDS", 12)) * time.Second,
		},
		Ingest: IngestConfig{
			CronSecret: sanitizeCredential(getEnv("CRON_SECRET", "")),
			Interval:   time.Duration(getEnvAsInt("INGEST_INTERVAL_MINUTES", 5)) * time.Minute,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Ingest.CronSecret == "" && cfg.Server.Env != "test" {
		// Warning: strictly required for the cron trigger; the worker binary does not need it
		fmt.Println("Warning: CRON_SECRET is missing. The /cron and /setup endpoints will reject all calls.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
