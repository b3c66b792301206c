package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/liarsdice/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings with this period; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size
	maxMessageSize = 4096
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket client. Its id doubles as the opaque
// transport reference the engine stores against the seat; the player and
// session bindings are set once the client creates or joins a game.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	registry  *Registry
	logger    *log.Logger
	playerID  string
	sessionID string
	mu        sync.RWMutex
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewConnection wraps an upgraded websocket.
func NewConnection(id string, conn *websocket.Conn, registry *Registry, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:       id,
		conn:     conn,
		send:     make(chan *Message, 64),
		registry: registry,
		logger:   logger.WithPrefix("conn").With("conn", id),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed when the connection is finished.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close tears the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// ID returns the opaque transport reference for this connection.
func (c *Connection) ID() string { return c.id }

// Send queues a message for the client, dropping the connection if its
// buffer is full rather than blocking the game.
func (c *Connection) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// send closed during shutdown
			c.logger.Debug("send on closed connection", "recover", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) bind(sessionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.playerID = playerID
}

// SessionID returns the bound session id, empty before create/join.
func (c *Connection) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// PlayerID returns the bound player id, empty before create/join.
func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "err", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "err", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one inbound command. Every engine rejection comes
// back to this connection only, as an error frame carrying the class code.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.PlayerID())

	switch msg.Type {
	case MessageTypeCreateSession:
		var data CreateSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse create_session data")
			return
		}
		c.handleCreateSession(data)

	case MessageTypeJoinSession:
		var data JoinSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join_session data")
			return
		}
		c.handleJoinSession(data)

	case MessageTypeAddBot:
		var data AddBotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse add_bot data")
			return
		}
		c.handleGameCommand(data.SessionID, func() error {
			return c.registry.AddBot(data.SessionID)
		})

	case MessageTypeStartSession:
		var data StartSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse start_session data")
			return
		}
		c.handleGameCommand(data.SessionID, func() error {
			return c.registry.Start(data.SessionID)
		})

	case MessageTypePlaceBid:
		var data PlaceBidData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse place_bid data")
			return
		}
		c.handleGameCommand(data.SessionID, func() error {
			return c.registry.PlaceBid(data.SessionID, c.PlayerID(), data.Count, data.Value)
		})

	case MessageTypeCallBluff:
		var data CallBluffData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse call_bluff data")
			return
		}
		c.handleGameCommand(data.SessionID, func() error {
			return c.registry.CallBluff(data.SessionID, c.PlayerID())
		})

	case MessageTypeListSessions:
		c.handleListSessions()

	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleCreateSession(data CreateSessionData) {
	if data.Name == "" {
		c.sendError("invalid_message", "a player name is required")
		return
	}
	if c.SessionID() != "" {
		c.sendError("invalid_state", "already in a game")
		return
	}

	res, err := c.registry.CreateSession(data.Name, c.id)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.bind(res.SessionID, res.PlayerID)
}

func (c *Connection) handleJoinSession(data JoinSessionData) {
	if data.Name == "" {
		c.sendError("invalid_message", "a player name is required")
		return
	}
	if c.SessionID() != "" {
		c.sendError("invalid_state", "already in a game")
		return
	}

	res, err := c.registry.Join(data.SessionID, data.Name, c.id)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.bind(res.SessionID, res.PlayerID)
}

// handleGameCommand guards commands that require an existing seat and
// reports rejections back to this client only.
func (c *Connection) handleGameCommand(sessionID string, run func() error) {
	if c.SessionID() == "" || c.SessionID() != sessionID {
		c.sendError("not_found", "not in that game")
		return
	}
	if err := run(); err != nil {
		c.sendGameError(err)
	}
}

func (c *Connection) handleListSessions() {
	msg, err := NewMessage(MessageTypeSessionList, SessionListData{
		Sessions: c.registry.Summaries(),
	})
	if err != nil {
		c.logger.Error("failed to create session list", "err", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) sendGameError(err error) {
	c.sendError(game.ErrorCode(err), err.Error())
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "err", err)
		return
	}
	_ = c.Send(msg)
}
