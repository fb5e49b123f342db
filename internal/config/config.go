package config

import (
	"os"
	"strconv"
	"time"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "postgres")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "crewflow")
	password := GetEnv("DB_PASSWORD", "")
	databaseName := GetEnv("DB_NAME", "crewflow")
	return host, port, user, password, databaseName
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

func ServerPort() string {
	return GetEnv("PORT", "8080")
}

// StorageBackend selects where requests, videos and users live.
// Anything other than "memory" means PostgreSQL.
func StorageBackend() string {
	if GetEnv("STORAGE", StoragePostgres) == StorageMemory {
		return StorageMemory
	}
	return StoragePostgres
}

func LogLevel() string {
	return GetEnv("LOG_LEVEL", "info")
}

func LogFormat() string {
	if GetEnv("LOG_FORMAT", LogFormatJSON) == LogFormatText {
		return LogFormatText
	}
	return LogFormatJSON
}

// NotificationConfig returns the outgoing mail budget per minute, how long
// the worker blocks waiting for a job, and the sender address.
func NotificationConfig() (int, time.Duration, string) {
	perMinute := GetEnvInt("NOTIFY_RATE_PER_MINUTE", 30)
	pollTimeout := GetEnvDuration("NOTIFY_POLL_TIMEOUT", 5*time.Second)
	from := GetEnv("NOTIFY_FROM", "no-reply@crewflow.local")
	return perMinute, pollTimeout, from
}

// NotificationRetry returns how often a published mail is attempted and how
// long the worker pauses after a failure.
func NotificationRetry() (int, time.Duration) {
	maxAttempts := GetEnvInt("NOTIFY_MAX_ATTEMPTS", 3)
	retryDelay := GetEnvDuration("NOTIFY_RETRY_DELAY", 5*time.Second)
	return maxAttempts, retryDelay
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
