package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/liarsdice/internal/server"
)

// Config for the interactive client.
type Config struct {
	ServerURL string
	Name      string
}

// Run connects, then drives the websocket read loop and the bubbletea
// program together; whichever exits first tears the other down.
func Run(cfg Config, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := Dial(ctx, cfg.ServerURL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	model := NewModel(client, cfg.Name, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := client.ReadLoop(ctx, func(msg *server.Message) {
			program.Send(ServerMsg{Msg: msg})
		})
		program.Send(DisconnectMsg{Err: err})
		return err
	})

	g.Go(func() error {
		_, err := program.Run()
		cancel()
		_ = client.Close() // unblocks the read loop
		return err
	})

	return g.Wait()
}
