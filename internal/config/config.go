package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Admin token for the manual trigger endpoint
	AdminToken string

	// Schedule configuration
	IngestSchedule  string // cron expression for the main ingestion pass
	RSSSchedule     string // cron expression for the RSS secondary source
	CleanupSchedule string // cron expression for retention cleanup
	TimeZone        string // reference timezone for budget day boundaries

	// Coordination store (Redis). Empty address means single-instance
	// operation with in-process counters and locks.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Postgres item store. Empty DSN means in-memory store.
	DatabaseURL string

	// Search provider
	SearchEndpoint string
	SearchAPIKey   string

	// LLM judgment provider
	JudgeEndpoint string
	JudgeAPIKey   string
	JudgeCacheTTL time.Duration

	// Quote provider
	QuoteEndpoint string

	// Daily call budgets per source
	SearchBudget int
	DealBudget   int
	GossipBudget int
	JudgeBudget  int

	// Fetching
	FetchTimeout     time.Duration
	LoginWallPhrases []string

	// Retention for the cleanup job
	RetentionDays int

	// RSS fallback feeds
	RSSFeeds []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		Debug:      getBoolEnv("DEBUG", false),
		AdminToken: getEnv("ADMIN_TOKEN", ""),

		IngestSchedule:  getEnv("INGEST_SCHEDULE", "0 0 */6 * * *"),
		RSSSchedule:     getEnv("RSS_SCHEDULE", "0 30 */6 * * *"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 4 * * *"),
		TimeZone:        getEnv("TIMEZONE", "America/Los_Angeles"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SearchEndpoint: getEnv("SEARCH_ENDPOINT", ""),
		SearchAPIKey:   getEnv("SEARCH_API_KEY", ""),
		JudgeEndpoint:  getEnv("JUDGE_ENDPOINT", ""),
		JudgeAPIKey:    getEnv("JUDGE_API_KEY", ""),
		JudgeCacheTTL:  getDurationEnv("JUDGE_CACHE_TTL", 6*time.Hour),
		QuoteEndpoint:  getEnv("QUOTE_ENDPOINT", ""),

		SearchBudget: getIntEnv("SEARCH_BUDGET", 90),
		DealBudget:   getIntEnv("DEAL_BUDGET", 40),
		GossipBudget: getIntEnv("GOSSIP_BUDGET", 40),
		JudgeBudget:  getIntEnv("JUDGE_BUDGET", 20),

		FetchTimeout: getDurationEnv("FETCH_TIMEOUT", 10*time.Second),
		LoginWallPhrases: getSliceEnv("LOGIN_WALL_PHRASES", []string{
			"log in to continue",
			"sign in to view",
			"create an account",
			"subscribe to read",
			"members only",
			"registration required",
		}),

		RetentionDays: getIntEnv("RETENTION_DAYS", 90),

		RSSFeeds: getSliceEnv("RSS_FEEDS", nil),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid location", c.TimeZone)
	}

	if c.SearchBudget <= 0 || c.DealBudget <= 0 || c.GossipBudget <= 0 || c.JudgeBudget <= 0 {
		return fmt.Errorf("all daily budgets must be positive")
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}

	return nil
}

// Location resolves the configured reference timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
