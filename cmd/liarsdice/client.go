package main

import (
	"os"
	"strings"

	"github.com/lox/liarsdice/cmd/liarsdice/shared"
	"github.com/lox/liarsdice/internal/tui"
)

// ClientCmd connects an interactive terminal client to a running server.
type ClientCmd struct {
	Server string `kong:"default='ws://localhost:8080/ws',help='WebSocket server URL'"`
	Name   string `kong:"default='',help='Display name (defaults to $USER or \"player\")'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "player"
	}

	logger := shared.SetupLogger("warn", c.Debug)

	return tui.Run(tui.Config{
		ServerURL: strings.TrimSpace(c.Server),
		Name:      name,
	}, logger)
}
