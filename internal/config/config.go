package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	SessionTTL time.Duration

	// Report cache
	CacheTTL  time.Duration
	CacheSize int

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expensed.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensed"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),

		CacheTTL:  getEnvDuration("CACHE_TTL", 2*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 256),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path and ensure its directory exists
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate session TTL
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	// Validate cache configuration
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 100000", c.CacheSize))
	}

	// Validate log level
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
