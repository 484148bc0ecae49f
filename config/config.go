package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"prospector/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Metrics configuration
	MetricsAddr string // listen address for the prometheus endpoint, empty disables it

	// Progression configuration
	UpgradeBaseCost int64 // gold cost of the first upgrade; doubles per level
	GemTokenRate    int64 // tokens granted per gem converted

	// Mines configuration
	MinesBoardSize        int32
	MinesHouseEdgeBps     int64 // house edge in basis points (350 = 3.5%)
	MinesMinMultiplierBps int64 // floor clamp in basis points (10100 = 1.01x)
	MinesMaxMultiplier    int64 // ceiling clamp in whole multiples
	DailyStakeLimit       int64 // max total mines stakes per account per UTC day

	// Reward pool configuration
	PoolDailyReward int64 // gems distributed per day bucket
	PoolSweepHour   int   // hour in UTC when outstanding days are distributed (0-23)

	// Settlement configuration
	SettlementServiceURL string
	SettlementAPIKey     string
	SettlementTimeout    time.Duration
	SettlementMinAmount  int64         // smallest cash-out accepted
	SettlementDailyMax   int64         // max total settled tokens per account per UTC day
	ReconciliationAge    time.Duration // pending age before a settlement needs review

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Metrics
		MetricsAddr: getEnvWithDefault("METRICS_ADDR", ":9091"),

		// Progression
		UpgradeBaseCost: getEnvInt64("UPGRADE_BASE_COST", 500),
		GemTokenRate:    getEnvInt64("GEM_TOKEN_RATE", 1),

		// Mines
		MinesBoardSize:        int32(getEnvInt64("MINES_BOARD_SIZE", 25)),
		MinesHouseEdgeBps:     getEnvInt64("MINES_HOUSE_EDGE_BPS", 350),
		MinesMinMultiplierBps: getEnvInt64("MINES_MIN_MULTIPLIER_BPS", 10100),
		MinesMaxMultiplier:    getEnvInt64("MINES_MAX_MULTIPLIER", 10000),
		DailyStakeLimit:       getEnvInt64("DAILY_STAKE_LIMIT", 100000),

		// Reward pool
		PoolDailyReward: getEnvInt64("POOL_DAILY_REWARD", 1000),
		PoolSweepHour:   int(getEnvInt64("POOL_SWEEP_HOUR", 0)),

		// Settlement
		SettlementServiceURL: getEnvWithDefault("SETTLEMENT_SERVICE_URL", "http://settlement:8090"),
		SettlementAPIKey:     os.Getenv("SETTLEMENT_API_KEY"),
		SettlementTimeout:    getEnvDuration("SETTLEMENT_TIMEOUT", 10*time.Second),
		SettlementMinAmount:  getEnvInt64("SETTLEMENT_MIN_AMOUNT", 10),
		SettlementDailyMax:   getEnvInt64("SETTLEMENT_DAILY_MAX", 10000),
		ReconciliationAge:    getEnvDuration("RECONCILIATION_AGE", 15*time.Minute),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	if config.MinesBoardSize < 2 {
		return nil, fmt.Errorf("MINES_BOARD_SIZE must be at least 2")
	}
	if config.PoolSweepHour < 0 || config.PoolSweepHour > 23 {
		return nil, fmt.Errorf("POOL_SWEEP_HOUR must be between 0 and 23")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 returns the environment variable parsed as int64 or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable parsed as a duration or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		MinesBoardSize:        25,
		MinesHouseEdgeBps:     350,
		MinesMinMultiplierBps: 10100,
		MinesMaxMultiplier:    10000,
		DailyStakeLimit:       100000,
		PoolDailyReward:       1000,
		PoolSweepHour:         0,
		UpgradeBaseCost:       500,
		GemTokenRate:          1,
		SettlementTimeout:     5 * time.Second,
		SettlementMinAmount:   10,
		SettlementDailyMax:    10000,
		ReconciliationAge:     15 * time.Minute,
	}
}
