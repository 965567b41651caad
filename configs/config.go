package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration values.
type Config struct {
	// Browser
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string

	// Crawling
	MaxConcurrentPages int
	RateLimitPerMin    int
	NavigationTimeout  time.Duration
	SettleDelay        time.Duration

	// Storage
	DatabaseURL  string // empty disables the database repository
	ArtifactsDir string
	RulesDir     string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration exclusively from environment variables
// (optionally a .env file). The database is optional: when no DSN variables
// are set, results are written to the artifacts directory only.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Headless = getEnv("BROWSER_HEADLESS", "true") == "true"
	w, err := strconv.Atoi(getEnv("VIEWPORT_WIDTH", "1366"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEWPORT_WIDTH: %w", err)
	}
	cfg.ViewportWidth = w
	h, err := strconv.Atoi(getEnv("VIEWPORT_HEIGHT", "768"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEWPORT_HEIGHT: %w", err)
	}
	cfg.ViewportHeight = h
	cfg.UserAgent = getEnv("USER_AGENT", "WebScout-Bot/1.0")

	mc, err := strconv.Atoi(getEnv("MAX_CONCURRENT_PAGES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_PAGES: %w", err)
	}
	cfg.MaxConcurrentPages = mc

	rl, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cfg.RateLimitPerMin = rl

	navSec, err := strconv.Atoi(getEnv("NAVIGATION_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid NAVIGATION_TIMEOUT_SECONDS: %w", err)
	}
	cfg.NavigationTimeout = time.Duration(navSec) * time.Second

	settleMs, err := strconv.Atoi(getEnv("SETTLE_DELAY_MS", "1500"))
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLE_DELAY_MS: %w", err)
	}
	cfg.SettleDelay = time.Duration(settleMs) * time.Millisecond

	// Build DSN only when all database vars are present.
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	if dbUser != "" && dbPass != "" && dbName != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true",
			dbUser, dbPass,
			getEnv("DB_HOST", "localhost"), getEnv("DB_PORT", "3306"),
			dbName,
		)
	}

	cfg.ArtifactsDir = getEnv("ARTIFACTS_DIR", "artifacts")
	cfg.RulesDir = getEnv("RULES_DIR", "site_rules")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg, nil
}

// getEnv returns env var or default.
func getEnv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}
