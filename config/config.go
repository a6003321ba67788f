package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Chain Provider (external market-data vendor)
	ProviderBaseURL        string
	ProviderAPIKey         string
	ProviderRateLimitRPS   float64
	ProviderRateLimitBurst int

	// Messenger (user-facing websocket dispatch)
	MessengerListenAddr string
	MessengerToken      string

	// API (health/metrics/signal-query HTTP surface)
	APIListenAddr string

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Scheduler/worker configuration
	Cadences      CadenceConfig
	WorkerCount   int
	MaxQueueDepth int64

	// Policy defaults applied when a new UserPolicy is created without
	// explicit overrides
	PolicyDefaults PolicyDefaults
}

// CadenceConfig holds per-tier scan interval overrides.
type CadenceConfig struct {
	High   time.Duration
	Medium time.Duration
	Low    time.Duration
}

// PolicyDefaults seeds a new subscriber's UserPolicy.
type PolicyDefaults struct {
	FFThreshold     float64
	StabilityScans  int
	CooldownMinutes int
	DeltaFFMin      float64
	MaxBidAskPct    float64
	Timezone        string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ProviderBaseURL:        getEnvOrDefault("PROVIDER_BASE_URL", "https://api.example-options-vendor.com"),
		ProviderAPIKey:         os.Getenv("PROVIDER_API_KEY"),
		ProviderRateLimitRPS:   getEnvFloat("PROVIDER_RATE_LIMIT_RPS", 5.0),
		ProviderRateLimitBurst: getEnvInt("PROVIDER_RATE_LIMIT_BURST", 10),

		MessengerListenAddr: getEnvOrDefault("MESSENGER_LISTEN_ADDR", "0.0.0.0:8081"),
		MessengerToken:      os.Getenv("MESSENGER_TOKEN"),
		APIListenAddr:       getEnvOrDefault("API_LISTEN_ADDR", "0.0.0.0:8080"),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "forward_factor"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "forward_factor"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "forward_factor"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Cadences: CadenceConfig{
			High:   getEnvDuration("SCAN_CADENCE_HIGH", 3*time.Minute),
			Medium: getEnvDuration("SCAN_CADENCE_MEDIUM", 15*time.Minute),
			Low:    getEnvDuration("SCAN_CADENCE_LOW", 60*time.Minute),
		},
		WorkerCount:   getEnvInt("WORKER_CONCURRENCY", 4),
		MaxQueueDepth: int64(getEnvInt("SCHEDULER_MAX_QUEUE_DEPTH", 1000)),

		PolicyDefaults: PolicyDefaults{
			FFThreshold:     getEnvFloat("POLICY_DEFAULT_FF_THRESHOLD", 0.05),
			StabilityScans:  getEnvInt("POLICY_DEFAULT_STABILITY_SCANS", 2),
			CooldownMinutes: getEnvInt("POLICY_DEFAULT_COOLDOWN_MINUTES", 240),
			DeltaFFMin:      getEnvFloat("POLICY_DEFAULT_DELTA_FF_MIN", 0.02),
			MaxBidAskPct:    getEnvFloat("POLICY_DEFAULT_MAX_BID_ASK_PCT", 0.10),
			Timezone:        getEnvOrDefault("POLICY_DEFAULT_TIMEZONE", "America/New_York"),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
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

// getEnvFloat gets environment variable as float64 or returns default value
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

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration gets environment variable as a time.Duration (e.g.
// "3m", "90s") or returns default value.
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
