package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/liarsdice/internal/server"
)

// Client is a thin websocket wrapper speaking the server's message frames.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger
}

// Dial connects to the server's /ws endpoint.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, logger: logger.WithPrefix("ws")}, nil
}

// Close shuts the websocket down.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one command frame.
func (c *Client) Send(msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	c.logger.Debug("sending", "type", msgType)
	return c.conn.WriteJSON(msg)
}

// ReadLoop decodes inbound frames into deliver until the connection drops or
// ctx is cancelled.
func (c *Client) ReadLoop(ctx context.Context, deliver func(*server.Message)) error {
	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}
		deliver(&msg)
	}
}
