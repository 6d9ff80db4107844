package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	ErrMissingAccessToken = errors.New("BIGBOOST_ACCESS_TOKEN is required")
	ErrMissingTokenID     = errors.New("BIGBOOST_TOKEN_ID is required")
)

type Config struct {
	// BigBoost credentials
	AccessToken string
	TokenID     string
	SecretID    string

	BaseURL string
	Timeout time.Duration

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	LogLevel     string
	RedisURL     string
	OTLPEndpoint string
	AWSRegion    string

	// HTTP facade, disabled when APIAddr is empty
	APIAddr    string
	APIKeyHash string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AccessToken:          getEnv("BIGBOOST_ACCESS_TOKEN", ""),
		TokenID:              getEnv("BIGBOOST_TOKEN_ID", ""),
		SecretID:             getEnv("BIGBOOST_SECRET_ID", ""),
		BaseURL:              getEnv("BIGBOOST_BASE_URL", "https://plataforma.bigdatacorp.com.br"),
		Timeout:              getDurationEnv("BIGBOOST_TIMEOUT", 30*time.Second),
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 5000),
		RateLimitWindow:      getMillisEnv("RATE_LIMIT_WINDOW_MS", 5*time.Minute),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		RedisURL:             getEnv("REDIS_URL", ""),
		OTLPEndpoint:         getEnv("OTLP_ENDPOINT", ""),
		AWSRegion:            getEnv("AWS_REGION", ""),
		APIAddr:              getEnv("API_ADDR", ""),
		APIKeyHash:           getEnv("API_KEY_HASH", ""),
		ShutdownTimeout:      getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// Validate reports the first setting that prevents the server from starting.
func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.TokenID == "" {
		return ErrMissingTokenID
	}
	if c.RateLimitMaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimitMaxRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be positive, got %s", c.RateLimitWindow)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
