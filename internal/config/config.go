// Package config provides service configuration loaded from a JSON file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/training-planner/internal/llm"
)

// Config is the service configuration. Every field may come from the JSON file or the
// environment; the environment wins.
type Config struct {
	DatabaseURL string `json:"database_url,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	Port        int    `json:"port,omitempty"`

	GenerationTimeout    string `json:"generation_timeout,omitempty"`     // e.g. "90s"
	GenerationRetryDelay string `json:"generation_retry_delay,omitempty"` // e.g. "2s"
	ModelTier            string `json:"model_tier,omitempty"`             // lite, standard or advanced

	RedisURL     string `json:"redis_url,omitempty"`
	KafkaBrokers string `json:"kafka_brokers,omitempty"` // comma-separated
	KafkaTopic   string `json:"kafka_topic,omitempty"`

	LogLevel       string `json:"log_level,omitempty"`
	LogDevelopment bool   `json:"log_development,omitempty"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Port:                 8080,
		GenerationTimeout:    llm.DefaultTimeout.String(),
		GenerationRetryDelay: llm.DefaultRetryDelay.String(),
		ModelTier:            string(llm.TierStandard),
		KafkaTopic:           "training-plans",
		LogLevel:             "info",
	}
}

// Load builds the effective configuration: environment over the optional JSON file over
// the defaults. The result is validated.
func Load(path string) (*Config, error) {
	base := Defaults()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		base = file.MergeWithDefaults(base)
	}

	env, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg := env.MergeWithDefaults(base)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the configuration variables that are set in the environment
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		APIKey:               os.Getenv("GEMINI_API_KEY"),
		GenerationTimeout:    os.Getenv("GENERATION_TIMEOUT"),
		GenerationRetryDelay: os.Getenv("GENERATION_RETRY_DELAY"),
		ModelTier:            os.Getenv("GENERATION_MODEL_TIER"),
		RedisURL:             os.Getenv("REDIS_URL"),
		KafkaBrokers:         os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:           os.Getenv("KAFKA_TOPIC"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
	}

	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = n
	}
	if dev := os.Getenv("LOG_DEVELOPMENT"); dev != "" {
		b, err := strconv.ParseBool(dev)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_DEVELOPMENT: %v", err)
		}
		cfg.LogDevelopment = b
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the commands that need them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if _, err := llm.ParseTier(c.ModelTier); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Timeout is the per-attempt generation timeout
func (c *Config) Timeout() (time.Duration, error) {
	return parsePositiveDuration("generation_timeout", c.GenerationTimeout, llm.DefaultTimeout)
}

// RetryDelay is the wait before the single generation retry
func (c *Config) RetryDelay() (time.Duration, error) {
	return parsePositiveDuration("generation_retry_delay", c.GenerationRetryDelay, llm.DefaultRetryDelay)
}

// Tier is the configured model tier
func (c *Config) Tier() llm.ModelTier {
	tier, err := llm.ParseTier(c.ModelTier)
	if err != nil {
		return llm.TierStandard
	}
	return tier
}

func parsePositiveDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config error: '%s' is not a duration: %v", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config error: '%s' must be positive, got %s", field, value)
	}
	return d, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.GenerationTimeout == "" {
		result.GenerationTimeout = defaults.GenerationTimeout
	}
	if result.GenerationRetryDelay == "" {
		result.GenerationRetryDelay = defaults.GenerationRetryDelay
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.KafkaBrokers == "" {
		result.KafkaBrokers = defaults.KafkaBrokers
	}
	if result.KafkaTopic == "" {
		result.KafkaTopic = defaults.KafkaTopic
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields cannot distinguish unset from false, so either source can enable them
	result.LogDevelopment = result.LogDevelopment || defaults.LogDevelopment

	return result
}
