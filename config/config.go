package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

const (
	defaultSweepIntervalMinutes = 60
	defaultJWTExpirationHours   = 24
)

type Config struct {
	// database path
	DatabasePath string

	// HTTP settings
	Port              string
	CORSAllowedOrigin string

	// auth settings
	JWTSecret          string
	JWTExpirationHours int

	// retention sweeper settings
	SweepInterval time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	cfg := Config{
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", "requests.db"),
		Port:               getEnvOrDefault("PORT", "8080"),
		CORSAllowedOrigin:  getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", ""),
		JWTExpirationHours: getEnvIntOrDefault("JWT_EXPIRATION_HOURS", defaultJWTExpirationHours),
		SweepInterval:      time.Duration(getEnvIntOrDefault("SWEEP_INTERVAL_MINUTES", defaultSweepIntervalMinutes)) * time.Minute,
	}

	if cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "insecure-development-secret-change-me"
	}

	return cfg, nil
}
