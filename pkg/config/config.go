package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment         string
	ServerPort          int
	DBHost              string
	DBPort              int
	DBUser              string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	RedisURL            string
	JWTSecret           string
	LogLevel            string
	Timezone            *time.Location
	CORSAllowedOrigins  []string
	RateLimitPerMinute  int
	DashboardCacheTTL   time.Duration
	StatsInterval       time.Duration
	LiveRefreshInterval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	cacheSeconds, err := strconv.Atoi(getEnv("DASHBOARD_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_CACHE_TTL_SECONDS: %w", err)
	}

	statsMinutes, err := strconv.Atoi(getEnv("STATS_INTERVAL_MINUTES", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_INTERVAL_MINUTES: %w", err)
	}

	liveSeconds, err := strconv.Atoi(getEnv("LIVE_REFRESH_INTERVAL_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIVE_REFRESH_INTERVAL_SECONDS: %w", err)
	}

	// The timezone decides how dashboard month buckets are drawn, so it is
	// resolved once here and used everywhere.
	tz, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		ServerPort:          port,
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              dbPort,
		DBUser:              getEnv("DB_USER", "staffdesk"),
		DBPassword:          getEnv("DB_PASSWORD", "dev"),
		DBName:              getEnv("DB_NAME", "staffdesk"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Timezone:            tz,
		CORSAllowedOrigins:  parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute:  rateLimit,
		DashboardCacheTTL:   time.Duration(cacheSeconds) * time.Second,
		StatsInterval:       time.Duration(statsMinutes) * time.Minute,
		LiveRefreshInterval: time.Duration(liveSeconds) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
