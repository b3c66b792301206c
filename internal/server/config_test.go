package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Game.Capacity)
	assert.Equal(t, 5, cfg.Game.DicePerPlayer)
	assert.Equal(t, 1500*time.Millisecond, cfg.Game.BotDelay())
	assert.Equal(t, 3*time.Second, cfg.Game.RoundDelay())
	require.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liarsdice.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

game {
  capacity        = 4
  dice_per_player = 3
  bot_delay_ms    = 100
  round_delay_ms  = 200
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 4, cfg.Game.Capacity)
	assert.Equal(t, 3, cfg.Game.DicePerPlayer)
	assert.Equal(t, 100*time.Millisecond, cfg.Game.BotDelay())
	assert.Equal(t, 200*time.Millisecond, cfg.Game.RoundDelay())
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
}

func TestLoadConfigPartialFileFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
server {
  port = 9999
}

game {
  capacity = 3
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, 3, cfg.Game.Capacity)
	assert.Equal(t, 5, cfg.Game.DicePerPlayer)
	assert.Equal(t, 1500, cfg.Game.BotDelayMs)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, `server { port = `)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"max capacity", func(c *Config) { c.Game.Capacity = 8 }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"capacity one", func(c *Config) { c.Game.Capacity = 1 }, false},
		{"capacity nine", func(c *Config) { c.Game.Capacity = 9 }, false},
		{"no dice", func(c *Config) { c.Game.DicePerPlayer = 0 }, false},
		{"too many dice", func(c *Config) { c.Game.DicePerPlayer = 11 }, false},
		{"negative bot delay", func(c *Config) { c.Game.BotDelayMs = -1 }, false},
		{"negative round delay", func(c *Config) { c.Game.RoundDelayMs = -1 }, false},
		{"zero delays allowed", func(c *Config) { c.Game.BotDelayMs = 0; c.Game.RoundDelayMs = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
