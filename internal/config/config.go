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
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Providers ProviderConfig
	Refresh   RefreshConfig
	Margins   MarginConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds the cache-store location
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration. The default "*" serves a
// public dashboard deployment.
type CORSConfig struct {
	AllowedOrigins []string
}

// ProviderConfig holds upstream provider endpoints and credentials.
// MetalsAPIKeys is an ordered list; the gateway tries keys in this order
// when rotating on authorization or rate-limit failures. FernetKey, when
// set, enables encrypted persistence of the keys in the cache store.
type ProviderConfig struct {
	MetalsBaseURL   string
	MetalsAPIKeys   []string
	ExchangeBaseURL string
	HTTPTimeout     time.Duration
	FernetKey       string
}

// RefreshConfig holds cache freshness and scheduling knobs.
type RefreshConfig struct {
	// Interval between forced refreshes of both metals and the rate.
	// Deployments run this between 10 and 30 minutes.
	Interval time.Duration

	// HistoryTTL is the age threshold before a cached series is re-fetched
	// on a non-forced read.
	HistoryTTL time.Duration

	// HistoryWindowDays is the trailing window requested from the history
	// provider.
	HistoryWindowDays int
}

// MarginConfig holds the retail margin rules: a markup factor and a flat
// per-tola surcharge per metal. These are deployment configuration, not
// business logic baked into the converter.
type MarginConfig struct {
	GoldMarkupFactor   float64
	GoldFlatPerTola    float64
	SilverMarkupFactor float64
	SilverFlatPerTola  float64
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/price_cache.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Providers: ProviderConfig{
			MetalsBaseURL:   getEnv("METALS_API_BASE_URL", "https://api.metals.dev/v1"),
			MetalsAPIKeys:   splitList(getEnv("METALS_API_KEYS", "")),
			ExchangeBaseURL: getEnv("EXCHANGE_API_BASE_URL", "https://open.er-api.com/v6"),
			HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
			FernetKey:       getEnv("FERNET_KEY", ""),
		},
		Refresh: RefreshConfig{
			Interval:          time.Duration(getEnvInt("REFRESH_INTERVAL_MINUTES", 15)) * time.Minute,
			HistoryTTL:        time.Duration(getEnvInt("HISTORY_CACHE_TTL_MINUTES", 30)) * time.Minute,
			HistoryWindowDays: getEnvInt("HISTORY_WINDOW_DAYS", 30),
		},
		Margins: MarginConfig{
			GoldMarkupFactor:   getEnvFloat("GOLD_MARKUP_FACTOR", 1.10),
			GoldFlatPerTola:    getEnvFloat("GOLD_FLAT_PER_TOLA_NPR", 5000),
			SilverMarkupFactor: getEnvFloat("SILVER_MARKUP_FACTOR", 1.16),
			SilverFlatPerTola:  getEnvFloat("SILVER_FLAT_PER_TOLA_NPR", 50),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if config.Refresh.Interval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL_MINUTES must be positive")
	}
	if config.Refresh.HistoryTTL <= 0 {
		return nil, fmt.Errorf("HISTORY_CACHE_TTL_MINUTES must be positive")
	}
	if config.Refresh.HistoryWindowDays <= 0 {
		return nil, fmt.Errorf("HISTORY_WINDOW_DAYS must be positive")
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// splitList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
