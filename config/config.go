// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/curately/postops/observe"
	"github.com/curately/postops/resilience"
)

// Config is the full runtime configuration.
type Config struct {
	// GraphAPIBaseURL is the social network's API root.
	GraphAPIBaseURL string

	// AccessToken authenticates all publishing calls.
	AccessToken string

	// BusinessAccountID is the account media is published under.
	BusinessAccountID string

	// RedisAddress is the host:port of the Redis holding the operation
	// queue and alert cooldowns. Empty disables both.
	RedisAddress string

	// RedisPassword is optional.
	RedisPassword string

	// RedisDB selects the Redis logical database.
	RedisDB int

	// DiscordWebhookURL receives failure alerts. Empty disables alerting.
	DiscordWebhookURL string

	// AlertCooldown throttles alerts per API.
	AlertCooldown time.Duration

	// Retry is the policy applied to all external calls.
	Retry resilience.RetryPolicy

	// LogLevel is the minimum level emitted.
	LogLevel observe.LogLevel
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		GraphAPIBaseURL:   getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		AccessToken:       os.Getenv("IG_ACCESS_TOKEN"),
		BusinessAccountID: os.Getenv("IG_BUSINESS_ACCOUNT_ID"),
		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		Retry:             resilience.DefaultPolicy(),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.AlertCooldown, err = getDuration("ALERT_COOLDOWN", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Retry.MaxAttempts, err = getInt("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.Retry.BaseDelay, err = getDuration("RETRY_BASE_DELAY", cfg.Retry.BaseDelay); err != nil {
		return Config{}, err
	}
	if cfg.Retry.MaxDelay, err = getDuration("RETRY_MAX_DELAY", cfg.Retry.MaxDelay); err != nil {
		return Config{}, err
	}
	if cfg.Retry.Timeout, err = getDuration("RETRY_TIMEOUT", cfg.Retry.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.Retry.MaxRateLimitWait, err = getDuration("RETRY_MAX_RATE_LIMIT_WAIT", cfg.Retry.MaxRateLimitWait); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = observe.ParseLogLevel(getEnv("LOG_LEVEL", "info"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.GraphAPIBaseURL == "" {
		return errors.New("config: GRAPH_API_BASE_URL is required")
	}
	if c.AccessToken == "" {
		return errors.New("config: IG_ACCESS_TOKEN is required")
	}
	if c.BusinessAccountID == "" {
		return errors.New("config: IG_BUSINESS_ACCOUNT_ID is required")
	}
	if c.AlertCooldown < 0 {
		return errors.New("config: ALERT_COOLDOWN must not be negative")
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("config: retry policy: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
