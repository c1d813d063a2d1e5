package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAMLKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\npresence:\n  tonightHour: 22\n"), 0o644))

	cfg := loadFromYAML(path)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 22, cfg.Presence.TonightHour)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "1h", cfg.Presence.DefaultAutoReset)
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	cfg := loadFromYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, getDefaultConfig(), cfg)
}

func TestOverrideWithEnvVars(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PRESENCE_SWEEP_INTERVAL", "15s")
	t.Setenv("LOG_FILENAME", "")

	cfg := getDefaultConfig()
	overrideWithEnvVars(cfg)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Presence.SweepInterval)
	assert.Empty(t, cfg.Log.Filename)
}

func TestNormalizeClampsSweepInterval(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.Presence.SweepInterval = 5 * time.Minute
	cfg.Presence.TonightHour = 30
	cfg.Presence.SweepBatch = 0

	normalize(cfg)

	assert.Equal(t, MaxSweepInterval, cfg.Presence.SweepInterval)
	assert.Equal(t, 21, cfg.Presence.TonightHour)
	assert.Equal(t, 500, cfg.Presence.SweepBatch)
}
