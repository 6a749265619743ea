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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 8080
  static_dir: "./public"
  public_url: "https://pong.example.com"

redis:
  enabled: true
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  max_players: 4
  cups_per_player: 10
  room_idle_timeout: 15
  cleanup_interval: 60
  full_first_round: false

security:
  allowed_origins:
    - "http://localhost:3000"
  message_limit:
    per_second: 5
    burst: 10
    max_warnings: 2

log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "./public", cfg.Server.StaticDir)
	assert.Equal(t, "https://pong.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "/controller.html", cfg.Server.ControllerPath)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)

	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, 10, cfg.Game.CupsPerPlayer)
	assert.Equal(t, 15*time.Minute, cfg.Game.RoomIdleTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.Game.CleanupIntervalDuration())
	assert.False(t, cfg.Game.FullFirstRound)

	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Security.AllowedOrigins)
	assert.InDelta(t, 5.0, cfg.Security.MessageLimit.PerSecond, 0.001)
	assert.Equal(t, 10, cfg.Security.MessageLimit.Burst)
	assert.Equal(t, 2, cfg.Security.MessageLimit.MaxWarnings)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, def.Server.Host, cfg.Server.Host)
	assert.Equal(t, def.Game, cfg.Game)
	assert.True(t, cfg.Game.FullFirstRound)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "server: [1, 2"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative players", "game:\n  max_players: -1\n"},
		{"unknown log format", "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Game.MaxPlayers)
	assert.Equal(t, 6, cfg.Game.CupsPerPlayer)
	assert.Equal(t, 3001, cfg.Server.Port)
}
