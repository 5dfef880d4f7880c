package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the coach service
type Config struct {
	Port           string
	Model          string
	BaseURL        string
	APIKey         string
	CallTimeout    time.Duration
	MaxRPM         int
	MaxRepairs     int
	GuidelinesPath string
	CacheSize      int
	CacheTTL       time.Duration
	DBPath         string
	MonthlyQuota   int
	LogLevel       string
	JaegerEndpoint string
	Environment    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:           getEnv("COACH_PORT", "8080"),
		Model:          getEnv("COACH_MODEL", "gpt-4o-mini"),
		BaseURL:        getEnv("OPENAI_BASE_URL", ""),
		APIKey:         getEnv("OPENAI_API_KEY", ""),
		CallTimeout:    getEnvDuration("COACH_CALL_TIMEOUT", "45s"),
		MaxRPM:         getEnvInt("COACH_MAX_RPM", 60),
		MaxRepairs:     getEnvInt("COACH_MAX_REPAIRS", 2),
		GuidelinesPath: getEnv("COACH_GUIDELINES", ""),
		CacheSize:      getEnvInt("COACH_CACHE_SIZE", 1024),
		CacheTTL:       getEnvDuration("COACH_CACHE_TTL", "1h"),
		DBPath:         getEnv("COACH_DB_PATH", "./coach.db"),
		MonthlyQuota:   getEnvInt("COACH_MONTHLY_QUOTA", 0),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
