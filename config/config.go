package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradeledger/internal/adapters/logger" // Import the logger package for LogLevel
	"tradeledger/internal/pricing"
)

// Config holds all application configuration.
type Config struct {
	// Matching
	MatchUserID     string        // User whose executions are matched by the default runner
	MatchWorkers    int           // Concurrency of the matching worker pool
	OptionWindowGap time.Duration // Max gap between option executions sharing a window

	// Pricing
	RiskFreeRate  float64 // Annualized, continuous compounding (e.g. 0.05 for 5%)
	DividendYield float64 // Annualized, continuous compounding
	DayCount      pricing.DayCount
	PricingStyle  pricing.Style

	// Pricing caches
	IVCacheSize        int
	GreeksCacheSize    int
	CacheFlushInterval time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Matching
	cfg.MatchUserID = getEnv("MATCH_USER_ID", "")

	cfg.MatchWorkers, err = getEnvAsIntRequired("MATCH_WORKERS", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MATCH_WORKERS: %v", err))
	} else if cfg.MatchWorkers <= 0 {
		errs = append(errs, "MATCH_WORKERS must be positive")
	}

	windowGapSeconds, err := getEnvAsIntRequired("OPTION_WINDOW_GAP_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid OPTION_WINDOW_GAP_SECONDS: %v", err))
	} else if windowGapSeconds <= 0 {
		errs = append(errs, "OPTION_WINDOW_GAP_SECONDS must be positive")
	}
	cfg.OptionWindowGap = time.Duration(windowGapSeconds) * time.Second

	// Pricing
	cfg.RiskFreeRate, err = getEnvAsFloatRequired("RISK_FREE_RATE", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	} else if cfg.RiskFreeRate < 0 || cfg.RiskFreeRate >= 1.0 {
		errs = append(errs, "RISK_FREE_RATE must be between 0.0 and 1.0")
	}

	cfg.DividendYield, err = getEnvAsFloatRequired("DIVIDEND_YIELD", 0.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DIVIDEND_YIELD: %v", err))
	} else if cfg.DividendYield < 0 || cfg.DividendYield >= 1.0 {
		errs = append(errs, "DIVIDEND_YIELD must be between 0.0 and 1.0")
	}

	switch dayCount := getEnv("DAY_COUNT", "calendar"); dayCount {
	case "calendar":
		cfg.DayCount = pricing.DayCountCalendar
	case "trading":
		cfg.DayCount = pricing.DayCountTrading
	default:
		errs = append(errs, fmt.Sprintf("invalid DAY_COUNT '%s' (want 'calendar' or 'trading')", dayCount))
	}

	switch style := getEnv("PRICING_STYLE", "american"); style {
	case "american":
		cfg.PricingStyle = pricing.StyleAmerican
	case "european":
		cfg.PricingStyle = pricing.StyleEuropean
	default:
		errs = append(errs, fmt.Sprintf("invalid PRICING_STYLE '%s' (want 'american' or 'european')", style))
	}

	// Pricing caches
	cfg.IVCacheSize = getEnvAsInt("IV_CACHE_SIZE", 200)
	if cfg.IVCacheSize <= 0 {
		errs = append(errs, "IV_CACHE_SIZE must be positive")
	}
	cfg.GreeksCacheSize = getEnvAsInt("GREEKS_CACHE_SIZE", 500)
	if cfg.GreeksCacheSize <= 0 {
		errs = append(errs, "GREEKS_CACHE_SIZE must be positive")
	}

	flushSeconds := getEnvAsInt("CACHE_FLUSH_INTERVAL_SECONDS", 600)
	if flushSeconds <= 0 {
		errs = append(errs, "CACHE_FLUSH_INTERVAL_SECONDS must be positive")
	}
	cfg.CacheFlushInterval = time.Duration(flushSeconds) * time.Second

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/tradeledger.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
