package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the identity server and worker
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// Authentication policy
	Auth AuthConfig
}

// HTTPConfig holds listener configuration
type HTTPConfig struct {
	Port        string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port), empty disables the attempt queue
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// AuthConfig holds the login policy enforced by the pre-check and the worker
type AuthConfig struct {
	TokenTTL              time.Duration
	PrecheckRatePerMinute int
	LockoutThreshold      int
	LockoutDuration       time.Duration
	LockSweepSchedule     string // Cron expression
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	tokenTTL, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	lockoutDuration, err := durationEnv("LOCKOUT_DURATION", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	rate, err := intEnv("PRECHECK_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	threshold, err := intEnv("LOCKOUT_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTP: HTTPConfig{
			Port:        stringEnv("HTTP_PORT", "8080"),
			CORSOrigins: strings.Split(stringEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL: stringEnv("DATABASE_URL", "signin.sqlite"),
		},
		Redis: RedisConfig{
			// Unset means attempts are recorded inline instead of through the worker
			Address: os.Getenv("REDIS_ADDRESS"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			TokenTTL:              tokenTTL,
			PrecheckRatePerMinute: rate,
			LockoutThreshold:      threshold,
			LockoutDuration:       lockoutDuration,
			LockSweepSchedule:     stringEnv("LOCK_SWEEP_SCHEDULE", "*/5 * * * *"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
