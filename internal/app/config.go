package app

import (
	"os"
	"strconv"
	"time"
)

// defaultSecret is the development-only fallback for LECTURA_SECRET. The
// application refuses to start with it outside the dev environment: this
// secret signs tokens and keys the login-code index.
const defaultSecret = "dev-secret-do-not-deploy"

type Config struct {
	Secret string // Required outside dev: signs JWTs and keys the code index
	Issuer string // Optional: issuer claim for tokens (default: lectura)

	DatabaseFile  string // Optional: path to SQLite database file (default: ./lectura.db)
	PepperFile    string // Optional: path to password hashing pepper file (default: ./pepper)
	AdminPassword string // Optional: seeds the admin account on first start

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	ShutdownGracePeriod   time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval  time.Duration // Housekeeping sweep interval (default: 1h)
	LoginAttemptRetention time.Duration // Login attempt audit retention (default: 30 days)
}

func LoadConfig() Config {
	return Config{
		Secret:        getEnvOrDefault("LECTURA_SECRET", defaultSecret),
		Issuer:        getEnvOrDefault("LECTURA_ISSUER", "lectura"),
		DatabaseFile:  getEnvOrDefault("LECTURA_DATABASE_FILE", "lectura.db"),
		PepperFile:    getEnvOrDefault("LECTURA_PEPPER_FILE", "pepper"),
		AdminPassword: os.Getenv("LECTURA_ADMIN_PASSWORD"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		ShutdownGracePeriod:   getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:  getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		LoginAttemptRetention: getEnvDurationOrDefault("LOGIN_ATTEMPT_RETENTION", 30*24*time.Hour),
	}
}

// UsingDefaultSecret reports whether the deployment-critical secret was left
// at its development fallback.
func (c Config) UsingDefaultSecret() bool {
	return c.Secret == defaultSecret
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
