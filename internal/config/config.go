package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort          string
	MySQLDSN            string
	RedisAddr           string
	RedisDB             int
	RedisPass           string
	BcryptCost          int
	SessionCookieName   string
	ResetRevokesSession bool
	LoginMaxFailures    int
	LoginFailureWindow  time.Duration
	LogLevel            string
	ResetDB             bool
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "5000"),
		MySQLDSN:            getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/auth?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
		BcryptCost:          getEnvInt("BCRYPT_COST", 0),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "session_id"),
		ResetRevokesSession: getEnvBool("RESET_REVOKES_SESSION", true),
		LoginMaxFailures:    getEnvInt("LOGIN_MAX_FAILURES", 5),
		LoginFailureWindow:  getEnvDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ResetDB:             getEnvBool("RESET_DB", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
