package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration, loadable from an HCL file.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains transport-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the per-session game parameters.
type GameSettings struct {
	Capacity      int `hcl:"capacity,optional"`
	DicePerPlayer int `hcl:"dice_per_player,optional"`
	BotDelayMs    int `hcl:"bot_delay_ms,optional"`
	RoundDelayMs  int `hcl:"round_delay_ms,optional"`
}

// BotDelay is how long the scripted opponent "thinks" before acting.
func (g GameSettings) BotDelay() time.Duration {
	return time.Duration(g.BotDelayMs) * time.Millisecond
}

// RoundDelay is the reveal window between a resolved bluff and the next round.
func (g GameSettings) RoundDelay() time.Duration {
	return time.Duration(g.RoundDelayMs) * time.Millisecond
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			Capacity:      2,
			DicePerPlayer: 5,
			BotDelayMs:    1500,
			RoundDelayMs:  3000,
		},
	}
}

// LoadConfig reads HCL configuration from filename, falling back to defaults
// when the file does not exist. Missing fields take their default values.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.Capacity == 0 {
		config.Game.Capacity = defaults.Game.Capacity
	}
	if config.Game.DicePerPlayer == 0 {
		config.Game.DicePerPlayer = defaults.Game.DicePerPlayer
	}
	if config.Game.BotDelayMs == 0 {
		config.Game.BotDelayMs = defaults.Game.BotDelayMs
	}
	if config.Game.RoundDelayMs == 0 {
		config.Game.RoundDelayMs = defaults.Game.RoundDelayMs
	}

	return &config, nil
}

// Validate checks the configuration for nonsense values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.Capacity < 2 || c.Game.Capacity > 8 {
		return fmt.Errorf("capacity must be between 2 and 8, got %d", c.Game.Capacity)
	}
	if c.Game.DicePerPlayer < 1 || c.Game.DicePerPlayer > 10 {
		return fmt.Errorf("dice per player must be between 1 and 10, got %d", c.Game.DicePerPlayer)
	}
	if c.Game.BotDelayMs < 0 || c.Game.RoundDelayMs < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	return nil
}

// ListenAddr returns the host:port to bind.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
