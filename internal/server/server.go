package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Server is the websocket gateway. It owns the connections and fans engine
// events out to them; all game logic lives behind the registry.
type Server struct {
	upgrader    websocket.Upgrader
	registry    *Registry
	logger      *log.Logger
	httpServer  *http.Server
	connSeq     int
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewServer wires a server to its registry and registers itself as the
// registry's event sink.
func NewServer(registry *Registry, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			// The browser UI is served from wherever; origin checking is a
			// deployment concern.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry:    registry,
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}
	registry.SetSink(s)
	return s
}

// Start serves websocket upgrades on /ws and a health probe on /health,
// blocking until Shutdown or a listen error.
func (s *Server) Start(addr string) error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	s.logger.Info("starting websocket server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes all connections and stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("client connected", "conn", conn.ID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, known := s.connections[conn]
			delete(s.connections, conn)
			total := len(s.connections)
			s.mu.Unlock()

			if known {
				// Transport teardown is the implicit disconnect command.
				s.registry.Disconnect(conn.ID())
				_ = conn.Close()
				s.logger.Info("client disconnected", "conn", conn.ID(), "total", total)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "err", err)
		return
	}

	s.mu.Lock()
	s.connSeq++
	id := fmt.Sprintf("c%d", s.connSeq)
	s.mu.Unlock()

	conn := NewConnection(id, ws, s.registry, s.logger)
	s.register <- conn
	conn.Start()

	go func() {
		<-conn.Done()
		select {
		case s.unregister <- conn:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// Broadcast implements EventSink: deliver to every connection bound to the
// session.
func (s *Server) Broadcast(sessionID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.SessionID() == sessionID {
			if err := conn.Send(msg); err != nil {
				s.logger.Error("failed to send to client", "conn", conn.ID(), "err", err)
			} else {
				count++
			}
		}
	}
	s.logger.Debug("broadcast", "session", sessionID, "type", msg.Type, "recipients", count)
}

// SendTo implements EventSink: deliver to the one connection with this ref.
func (s *Server) SendTo(connRef string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.ID() == connRef {
			if err := conn.Send(msg); err != nil {
				s.logger.Error("failed to send to client", "conn", connRef, "err", err)
			}
			return
		}
	}
	s.logger.Debug("no connection for ref", "conn", connRef, "type", msg.Type)
}
