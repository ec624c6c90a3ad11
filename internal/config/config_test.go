package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/training-planner/internal/llm"
)

var envKeys = []string{
	"DATABASE_URL", "GEMINI_API_KEY", "PORT", "GENERATION_TIMEOUT", "GENERATION_RETRY_DELAY",
	"GENERATION_MODEL_TIER", "REDIS_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "LOG_LEVEL", "LOG_DEVELOPMENT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/plans",
		"port": 9090,
		"generation_timeout": "45s",
		"model_tier": "advanced",
		"log_development": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/plans", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "45s", cfg.GenerationTimeout)
	assert.True(t, cfg.LogDevelopment)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "config path is empty")

	_, err = LoadConfig("/nonexistent/path/config.json")
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.ErrorContains(t, err, "failed to parse config JSON")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "training-plans", cfg.KafkaTopic)
	assert.Equal(t, llm.TierStandard, cfg.Tier())

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultTimeout, timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{"port": 9090, "log_level": "debug", "kafka_brokers": "file:9092"}`)
	t.Setenv("PORT", "7070")
	t.Setenv("KAFKA_BROKERS", "env:9092")
	t.Setenv("GENERATION_RETRY_DELAY", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "env:9092", cfg.KafkaBrokers)

	delay, err := cfg.RetryDelay()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, delay)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.ErrorContains(t, err, "invalid PORT")

	clearEnv(t)
	t.Setenv("LOG_DEVELOPMENT", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid LOG_DEVELOPMENT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "'port'"},
		{"bad timeout", func(c *Config) { c.GenerationTimeout = "soon" }, "generation_timeout"},
		{"negative delay", func(c *Config) { c.GenerationRetryDelay = "-1s" }, "must be positive"},
		{"unknown tier", func(c *Config) { c.ModelTier = "turbo" }, "unknown model tier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://override", LogDevelopment: false}
	defaults := Config{
		DatabaseURL:    "postgres://default",
		APIKey:         "default-key",
		Port:           8080,
		RedisURL:       "redis://localhost:6379",
		LogDevelopment: true,
	}

	result := cfg.MergeWithDefaults(defaults)
	assert.Equal(t, "postgres://override", result.DatabaseURL)
	assert.Equal(t, "default-key", result.APIKey)
	assert.Equal(t, 8080, result.Port)
	assert.Equal(t, "redis://localhost:6379", result.RedisURL)
	assert.True(t, result.LogDevelopment)
}
