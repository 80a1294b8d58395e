package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/state"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	errBuffer      = 16
)

// Message types sent to websocket clients.
const (
	MsgTypeState = "state"
	MsgTypeError = "error"
)

// ServerMessage is sent to websocket clients.
type ServerMessage struct {
	Type  string          `json:"type"`
	State *model.AppState `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// client is one websocket connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn

	// states holds at most the latest unsent state.
	states chan model.AppState
	errs   chan string

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:   conn,
		states: make(chan model.AppState, 1),
		errs:   make(chan string, errBuffer),
		done:   make(chan struct{}),
	}
}

// pushState queues s without blocking, replacing any state not yet written.
// Only one goroutine at a time may call it.
func (c *client) pushState(s model.AppState) {
	select {
	case c.states <- s:
		return
	case <-c.done:
		return
	default:
	}
	select {
	case <-c.states:
	default:
	}
	select {
	case c.states <- s:
	default:
	}
}

// pushError queues an error message. A client that lets the queue fill up
// is disconnected.
func (c *client) pushError(msg string) {
	select {
	case c.errs <- msg:
	case <-c.done:
	default:
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) write(msg ServerMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// writePump writes initial, then every queued message, until the client is
// closed or a write fails.
func (c *client) writePump(initial model.AppState, logger *slog.Logger) {
	defer c.close()

	if err := c.write(ServerMessage{Type: MsgTypeState, State: &initial}); err != nil {
		logger.Debug("websocket initial state failed", "error", err)
		return
	}
	for {
		var msg ServerMessage
		select {
		case <-c.done:
			return
		case s := <-c.states:
			msg = ServerMessage{Type: MsgTypeState, State: &s}
		case e := <-c.errs:
			msg = ServerMessage{Type: MsgTypeError, Error: e}
		}
		if err := c.write(msg); err != nil {
			logger.Debug("websocket push failed", "error", err)
			return
		}
	}
}

// hub tracks connected clients so they can be closed on shutdown.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// closeAll sends a close frame to every client and drops them.
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(2*time.Second))
		c.close()
	}
}

// checkOrigin accepts same-origin and loopback origins only.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{
		"http://localhost", "https://localhost",
		"http://127.0.0.1", "https://127.0.0.1",
		"http://[::1]", "https://[::1]",
	} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	s.logger.Warn("websocket connection rejected: invalid origin", "origin", origin)
	return false
}

// handleWS streams every state transition to the client and dispatches the
// action envelopes it sends.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := newClient(conn)
	s.hub.add(c)
	s.logger.Info("websocket client connected", "remoteAddr", r.RemoteAddr)

	initial, unwatch := s.manager.Watch(c.pushState)
	go c.writePump(initial, s.logger)

	defer func() {
		unwatch()
		s.hub.remove(c)
		c.close()
		s.logger.Info("websocket client disconnected", "remoteAddr", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		a, err := state.DecodeAction(data)
		if err == nil {
			_, err = s.manager.Dispatch(a)
		}
		if err != nil {
			c.pushError(err.Error())
		}
	}
}
