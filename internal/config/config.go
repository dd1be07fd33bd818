// Package config loads scanner configuration from the environment,
// keeping the teacher's .env-first loading style.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Ingest
	RawSnapshotSourceURL string // websocket feed the dev ingester connects to

	// Database configuration (user-defined scan rules)
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Status/metrics HTTP server
	StatusAddr string

	// Scanner configuration
	Scanner ScannerConfig
}

// ScannerConfig holds enrichment and rule-evaluation parameters.
type ScannerConfig struct {
	// Session / timezone
	MarketTimezone     string
	SessionStartOffset time.Duration
	SessionEndOffset   time.Duration

	// RVOL
	RVOLSlotWidth time.Duration

	// Hot-reload
	RuleReloadInterval time.Duration

	// Enrichment cycle pacing
	EnrichmentCycleInterval time.Duration
	HolidaySleepInterval    time.Duration

	// Thresholds (defaults equal the values hard-coded in the system
	// rule catalog; the catalog does not read these fields)
	GapUpThresholdPct      float64
	GapDownThresholdPct    float64
	HighVolumeRVOLMin      float64
	TradeAnomalyZScoreMin  float64
	WinnerChangePct        float64
	LoserChangePct         float64

	// Reference-data seeding (ATR/RVOL/trade-anomaly baselines)
	ATRPeriod           int
	RefDataLookbackDays int
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		RawSnapshotSourceURL: getEnvOrDefault("SNAPSHOT_SOURCE_WS_URL", "wss://example.invalid/snapshots"),

		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "marketscanner"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "marketscanner"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "marketscanner"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		StatusAddr: getEnvOrDefault("STATUS_ADDR", ":9090"),

		Scanner: ScannerConfig{
			MarketTimezone:     getEnvOrDefault("MARKET_TIMEZONE", "America/New_York"),
			SessionStartOffset: getEnvDuration("SESSION_START_OFFSET", 9*time.Hour+30*time.Minute),
			SessionEndOffset:   getEnvDuration("SESSION_END_OFFSET", 16*time.Hour),

			RVOLSlotWidth: getEnvDuration("RVOL_SLOT_WIDTH", 5*time.Minute),

			RuleReloadInterval: getEnvDuration("RULE_RELOAD_INTERVAL", 5*time.Minute),

			EnrichmentCycleInterval: getEnvDuration("ENRICHMENT_CYCLE_INTERVAL", time.Second),
			HolidaySleepInterval:    getEnvDuration("HOLIDAY_SLEEP_INTERVAL", time.Minute),

			GapUpThresholdPct:     getEnvFloat("GAP_UP_THRESHOLD_PCT", 2.0),
			GapDownThresholdPct:   getEnvFloat("GAP_DOWN_THRESHOLD_PCT", -2.0),
			HighVolumeRVOLMin:     getEnvFloat("HIGH_VOLUME_RVOL_MIN", 2.0),
			TradeAnomalyZScoreMin: getEnvFloat("TRADE_ANOMALY_ZSCORE_MIN", 3.0),
			WinnerChangePct:       getEnvFloat("WINNER_CHANGE_PCT", 5.0),
			LoserChangePct:        getEnvFloat("LOSER_CHANGE_PCT", -5.0),

			ATRPeriod:           getEnvInt("ATR_PERIOD", 14),
			RefDataLookbackDays: getEnvInt("REFDATA_LOOKBACK_DAYS", 20),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvDuration gets environment variable as a time.Duration (e.g.
// "5m", "30s") or returns default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvOrDefault gets environment variable or returns default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
