package config

import (
	"os"
	"path/filepath"
	"testing"

	"courierbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: courierbot
  environment: test
telegram:
  bot_token: "123:abc"
database:
  path: data/courier.db
redis:
  address: localhost:6379
bot:
  cancel_keyword: stop
  state_ttl_seconds: 3600
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "courierbot", cfg.App.Name)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "data/courier.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "stop", cfg.Bot.CancelKeyword)
	assert.Equal(t, 3600, cfg.Bot.StateTTLSeconds)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
database:
  path: data/courier.db
monitoring:
  prometheus_enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCancelKeyword, cfg.Bot.CancelKeyword)
	assert.Equal(t, models.DefaultStateTTL, cfg.Bot.StateTTLSeconds)
	assert.Equal(t, models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	assert.Equal(t, models.RateLimitWindow, cfg.Bot.RateLimitWindow)
	assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "env:token")

	path := writeConfig(t, `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
database:
  path: data/courier.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env:token", cfg.Telegram.BotToken)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Run("MissingToken", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: data/courier.db
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("PlaceholderToken", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "YOUR_BOT_TOKEN_HERE"
database:
  path: data/courier.db
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingDatabasePath", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
