package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application, loaded from
// environment variables at process startup.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL     string
	DatabaseMaxConns int32

	// Redis configuration
	RedisURL      string
	RedisPassword string

	// JWT configuration (verification only — this service never issues
	// tokens, per spec.md §6)
	JWTSecret string

	// Retry policy for the optimistic-lock retry wrapper (spec.md §4.3)
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// Rate limiting
	RateLimitRequestsPerSecond float64
	RateLimitBurst             int

	// AllowPostedTransactionDeletion is a test-only escape hatch that
	// permits archiving a posted transaction without first reversing it.
	// Must never be true outside of test environments.
	AllowPostedTransactionDeletion bool
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                            getEnv("PORT", "8080"),
		Env:                             getEnv("ENV", "development"),
		DatabaseURL:                     getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:                int32(getEnvAsInt("DATABASE_MAX_CONNS", 20)),
		RedisURL:                        getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:                   getEnv("REDIS_PASSWORD", ""),
		JWTSecret:                       getEnv("JWT_SECRET", ""),
		RetryMaxAttempts:                getEnvAsInt("RETRY_MAX_ATTEMPTS", 5),
		RetryBaseDelay:                  time.Duration(getEnvAsInt("RETRY_BASE_DELAY_MS", 50)) * time.Millisecond,
		RetryMaxDelay:                   time.Duration(getEnvAsInt("RETRY_MAX_DELAY_MS", 1000)) * time.Millisecond,
		RateLimitRequestsPerSecond:      getEnvAsFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst:                  getEnvAsInt("RATE_LIMIT_BURST", 100),
		AllowPostedTransactionDeletion:  getEnvAsBool("ALLOW_POSTED_TRANSACTION_DELETION", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and sane.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if c.AllowPostedTransactionDeletion && c.IsProduction() {
		return fmt.Errorf("ALLOW_POSTED_TRANSACTION_DELETION must not be enabled in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
