// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Known price source names, in the order they make sense as defaults.
const (
	SourceYahoo        = "yahoo"
	SourceAlphaVantage = "alphavantage"
	SourceSQLite       = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases and the watchlist (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// Ordered market-data source chain. The fetcher walks it until one
	// source succeeds.
	PriceSources       []string
	AlphaVantageAPIKey string

	// Persistent provider-response cache.
	CacheEnabled       bool
	CacheTTL           time.Duration
	StaleCacheFallback bool

	// Scheduled pull of watchlist symbols into the local history store.
	HistorySyncEnabled  bool
	HistorySyncSchedule string
	HistoryLookbackDays int

	WatchlistPath string

	// Archive is nil when export archiving is not configured.
	Archive *ArchiveConfig
}

// ArchiveConfig holds S3-compatible (Cloudflare R2) storage settings for
// dataset export archives.
type ArchiveConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionDays   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path and make sure it exists; every
	// database path is derived from it.
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PriceSources:       splitList(getEnv("PRICE_SOURCES", SourceYahoo)),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),

		CacheEnabled:       getEnvAsBool("CACHE_ENABLED", true),
		CacheTTL:           time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 15)) * time.Minute,
		StaleCacheFallback: getEnvAsBool("STALE_CACHE_FALLBACK", false),

		HistorySyncEnabled:  getEnvAsBool("HISTORY_SYNC_ENABLED", false),
		HistorySyncSchedule: getEnv("HISTORY_SYNC_SCHEDULE", "0 23 * * 1-5"),
		HistoryLookbackDays: getEnvAsInt("HISTORY_LOOKBACK_DAYS", 730),

		WatchlistPath: getEnv("WATCHLIST_PATH", filepath.Join(absDataDir, "watchlist.yaml")),

		Archive: loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HistoryDBPath returns the history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// CacheDBPath returns the response-cache database location.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if len(c.PriceSources) == 0 {
		return fmt.Errorf("PRICE_SOURCES must name at least one source")
	}
	for _, s := range c.PriceSources {
		switch s {
		case SourceYahoo, SourceAlphaVantage, SourceSQLite:
		default:
			return fmt.Errorf("unknown price source %q (want %s, %s or %s)",
				s, SourceYahoo, SourceAlphaVantage, SourceSQLite)
		}
	}

	// Alpha Vantage without a key fails on the first request; catch it at
	// startup instead.
	for _, s := range c.PriceSources {
		if s == SourceAlphaVantage && c.AlphaVantageAPIKey == "" {
			return fmt.Errorf("price source %q requires ALPHAVANTAGE_API_KEY", SourceAlphaVantage)
		}
	}

	return nil
}

// loadArchiveConfig reads the R2 settings; returns nil unless the feature
// is fully configured so callers can gate on a single nil check.
func loadArchiveConfig() *ArchiveConfig {
	endpoint := getEnv("R2_ENDPOINT", "")
	accessKey := getEnv("R2_ACCESS_KEY_ID", "")
	secretKey := getEnv("R2_SECRET_ACCESS_KEY", "")
	bucket := getEnv("R2_BUCKET", "")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil
	}

	return &ArchiveConfig{
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Bucket:          bucket,
		RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 30),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
