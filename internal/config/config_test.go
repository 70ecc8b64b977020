package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.CampaignID)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 10, cfg.Rounds)
	assert.Equal(t, 30*time.Minute, cfg.RoundDuration)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Follower)
	assert.False(t, cfg.JSONLogs())
	assert.Zero(t, cfg.APIPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAMPAIGN_SEED", "europa")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("WORLD_ROUNDS", "0")
	t.Setenv("ROUND_DURATION", "1h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("FOLLOWER", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "europa", cfg.Seed)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Zero(t, cfg.Rounds)
	assert.Equal(t, time.Hour, cfg.RoundDuration)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Follower)
	assert.True(t, cfg.JSONLogs())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown backend", "STORE_BACKEND", "postgres"},
		{"negative rounds", "WORLD_ROUNDS", "-1"},
		{"bad duration", "ROUND_DURATION", "soon"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"bad port", "API_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLogFormatOverridesEnvironment(t *testing.T) {
	cfg := Config{Environment: "production", LogFormat: "text"}
	assert.False(t, cfg.JSONLogs())
	cfg = Config{Environment: "development", LogFormat: "JSON"}
	assert.True(t, cfg.JSONLogs())
}
