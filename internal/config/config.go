package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Credential secrets. Both are required; the auth component cannot
	// operate with unknown secrets.
	AdminPassword string
	GuestPassword string

	AuthMaxAttempts   int
	AuthLockoutWindow time.Duration

	// Weather provider configuration (feature-flagged via OPENWEATHER_API_KEY).
	WeatherAPIKey   string
	WeatherEnabled  bool
	WeatherTimeout  time.Duration
	WeatherCacheTTL time.Duration
	DefaultLocation string

	CacheDir string

	// Alert publishing configuration (feature-flagged via KAFKA_BROKERS).
	KafkaBrokers    []string
	AlertsEnabled   bool
	KafkaAlertTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	weatherCacheTTL, err := parseDuration("WEATHER_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	lockoutWindow, err := parseDuration("AUTH_LOCKOUT_WINDOW", 180*time.Second)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parseInt("AUTH_MAX_ATTEMPTS", 10)
	if err != nil {
		return nil, err
	}

	weatherKey := os.Getenv("OPENWEATHER_API_KEY")
	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		GuestPassword: os.Getenv("GUEST_PASSWORD"),

		AuthMaxAttempts:   maxAttempts,
		AuthLockoutWindow: lockoutWindow,

		WeatherAPIKey:   weatherKey,
		WeatherEnabled:  weatherKey != "",
		WeatherTimeout:  weatherTimeout,
		WeatherCacheTTL: weatherCacheTTL,
		DefaultLocation: envOrDefault("DEFAULT_LOCATION", "Cordoba,AR"),

		CacheDir: envOrDefault("CACHE_DIR", "cache"),

		KafkaBrokers:    brokers,
		AlertsEnabled:   len(brokers) > 0,
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "weather-alerts"),
	}

	if cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_PASSWORD is required")
	}
	if cfg.GuestPassword == "" {
		return nil, errors.New("GUEST_PASSWORD is required")
	}
	if cfg.AuthMaxAttempts <= 0 {
		return nil, errors.New("AUTH_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
