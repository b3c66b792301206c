package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/liarsdice/cmd/liarsdice/shared"
	"github.com/lox/liarsdice/internal/server"
)

// ServerCmd runs the websocket game server.
type ServerCmd struct {
	Addr         string `kong:"default='',help='Listen address (overrides config)'"`
	Config       string `kong:"default='liarsdice.hcl',help='HCL config file'"`
	Debug        bool   `kong:"help='Enable debug logging'"`
	Seed         *int64 `kong:"help='Deterministic RNG seed (optional)'"`
	Capacity     int    `kong:"default='0',help='Seats per session (overrides config)'"`
	Dice         int    `kong:"default='0',help='Starting dice per player (overrides config)'"`
	BotDelayMs   int    `kong:"default='0',help='Bot thinking delay in ms (overrides config)'"`
	RoundDelayMs int    `kong:"default='0',help='Reveal window in ms (overrides config)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Capacity != 0 {
		cfg.Game.Capacity = c.Capacity
	}
	if c.Dice != 0 {
		cfg.Game.DicePerPlayer = c.Dice
	}
	if c.BotDelayMs != 0 {
		cfg.Game.BotDelayMs = c.BotDelayMs
	}
	if c.RoundDelayMs != 0 {
		cfg.Game.RoundDelayMs = c.RoundDelayMs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info("using random seed", "seed", seed)
	}

	addr := cfg.ListenAddr()
	if c.Addr != "" {
		addr = c.Addr
	}

	registry := server.NewRegistry(*cfg, seed, quartz.NewReal(), logger)
	srv := server.NewServer(registry, logger)

	logger.Info("starting liarsdice server",
		"addr", addr,
		"capacity", cfg.Game.Capacity,
		"dice", cfg.Game.DicePerPlayer,
		"bot_delay", cfg.Game.BotDelay(),
		"round_delay", cfg.Game.RoundDelay())

	ctx := shared.SetupSignalHandler(logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
