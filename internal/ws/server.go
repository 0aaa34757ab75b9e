package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// HandlerFunc processes a client message. Handlers must return promptly —
// long-running work is spawned in a goroutine by the handler itself.
type HandlerFunc func(c *Conn, msg *ClientMessage)

// Server manages WebSocket connections and message dispatch.
type Server struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}

	handlers map[string]HandlerFunc
}

func NewServer() *Server {
	return &Server{
		conns:    make(map[*Conn]struct{}),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for a named event. Not safe to call after the
// server starts accepting connections.
func (s *Server) Handle(event string, fn HandlerFunc) {
	s.handlers[event] = fn
}

// HandleConnect registers a handler that fires when a new connection is
// established, before the read pump starts.
func (s *Server) HandleConnect(fn func(c *Conn)) {
	s.handlers["__connect"] = func(c *Conn, _ *ClientMessage) {
		fn(c)
	}
}

// ServeHTTP upgrades the HTTP request to a WebSocket connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The binary serves the dashboard from the same origin; cross-origin
		// dial is only needed in dev.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("ws accept", "err", err)
		return
	}

	c := newConn(conn, s)
	s.add(c)

	slog.Debug("ws connected", "remote", r.RemoteAddr)

	if h, ok := s.handlers["__connect"]; ok {
		h(c, nil)
	}

	// Block on the read pump — this goroutine is owned by net/http.
	c.readPump(r.Context())
}

// Broadcast marshals the event payload once and pushes the pre-encoded bytes
// to every authenticated connection.
func Broadcast[T any](s *Server, event string, data T) {
	raw, err := json.Marshal(ServerMessage[T]{Event: event, Data: data})
	if err != nil {
		slog.Error("ws marshal broadcast", "err", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.conns {
		if c.UserID() != 0 {
			c.writeRaw(raw)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// DisconnectOthers closes all connections except the given one.
func (s *Server) DisconnectOthers(keep *Conn) {
	s.mu.RLock()
	others := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		if c != keep {
			others = append(others, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range others {
		c.Close()
	}
}

func (s *Server) add(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) remove(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()

	slog.Debug("ws disconnected", "remaining", s.ConnectionCount())
}

func (s *Server) dispatch(c *Conn, msg *ClientMessage) {
	// Each message gets its own goroutine so a slow handler (a scan shells
	// out several times) cannot block the read pump.
	go s.Dispatch(c, msg)
}

// Dispatch looks up and invokes the handler for the given message event.
func (s *Server) Dispatch(c *Conn, msg *ClientMessage) {
	h, ok := s.handlers[msg.Event]
	if !ok {
		slog.Warn("ws unknown event", "event", msg.Event)
		if msg.ID != nil {
			SendAck(c, *msg.ID, ErrorResponse{OK: false, Msg: "unknown event: " + msg.Event})
		}
		return
	}
	h(c, msg)
}
