package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"

petsseries:
  access_token: "at-123"
  refresh_token: "rt-456"

tuya:
  client_id: "bf12345"
  host: "192.168.1.50"
  local_key: "abcdef0123456789"

refresh:
  interval: 2m
  call_delay: 100ms

logging:
  level: "debug"
  format: "json"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, "at-123", config.PetsSeries.AccessToken)
	assert.Equal(t, "rt-456", config.PetsSeries.RefreshToken)
	assert.True(t, config.Tuya.Configured())
	assert.Equal(t, 3.4, config.Tuya.Version)
	assert.Equal(t, 2*time.Minute, config.Refresh.Interval)
	assert.Equal(t, 100*time.Millisecond, config.Refresh.CallDelay)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
petsseries:
  access_token: "at"
  refresh_token: "rt"
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 5*time.Minute, config.Refresh.Interval)
	assert.Equal(t, 500*time.Millisecond, config.Refresh.CallDelay)
	assert.False(t, config.Tuya.Configured())
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("PETS_ACCESS_TOKEN", "env-access")
	t.Setenv("PETS_REFRESH_TOKEN", "env-refresh")

	configPath := writeConfig(t, `
petsseries:
  access_token: $PETS_ACCESS_TOKEN
  refresh_token: $PETS_REFRESH_TOKEN
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-access", config.PetsSeries.AccessToken)
	assert.Equal(t, "env-refresh", config.PetsSeries.RefreshToken)
}

func TestLoadMissingTokens(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 8080
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestLoadMissingFile(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)
}
