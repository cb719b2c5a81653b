package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds client configuration
type Config struct {
	Env            string
	LogLevel       string
	APIBaseURL     string
	APIToken       string
	OrgID          string
	LocationID     string
	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool

	// Session persistence between CLI invocations (optional)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Fallback texts shown when the server does not supply a detail message
	GenericErrorMessage       string
	NetworkErrorMessage       string
	InvalidCredentialsMessage string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIBaseURL:     strings.TrimRight(getEnv("CLINIC_API_BASE_URL", "http://localhost:8000/api"), "/"),
		APIToken:       getEnv("CLINIC_API_TOKEN", ""),
		OrgID:          strings.TrimSpace(getEnv("CLINIC_ORG_ID", "")),
		LocationID:     strings.TrimSpace(getEnv("CLINIC_LOCATION_ID", "")),
		HTTPTimeout:    getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
		RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("API_RATE_LIMIT_BURST", 5),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 8*time.Hour),

		GenericErrorMessage:       getEnv("LOCALE_FALLBACK_GENERIC", "Something went wrong. Please try again."),
		NetworkErrorMessage:       getEnv("LOCALE_FALLBACK_NETWORK", "Network error. Check your connection and try again."),
		InvalidCredentialsMessage: getEnv("LOCALE_FALLBACK_INVALID_CREDENTIALS", "Invalid email or password."),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
