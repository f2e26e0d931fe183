package config

import (
	"os"
	"strconv"
	"time"

	"github.com/masseyr/dbhelper/pgpool"
)

type AppConfig struct {
	// Admin server
	HTTPAddr string

	// Database pool
	Pool pgpool.Config

	// Query log (optional; disabled when RedisAddr is empty)
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	QueryLogKey string
	QueryLogMax int
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		Pool: pgpool.Config{
			Host:           getEnv("DB_HOST", "127.0.0.1"),
			Port:           getEnvInt("DB_PORT", 5432),
			Database:       getEnv("DB_NAME", ""),
			User:           getEnv("DB_USER", ""),
			Password:       getEnv("DB_PASS", ""),
			MinConns:       getEnvInt("DB_MIN_CONNS", 1),
			MaxConns:       getEnvInt("DB_MAX_CONNS", 10),
			AcquireTimeout: getEnvDuration("DB_ACQUIRE_TIMEOUT", 30*time.Second),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		QueryLogKey: getEnv("QUERY_LOG_KEY", "dbhelper:queries"),
		QueryLogMax: getEnvInt("QUERY_LOG_MAX", 10000),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
