// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tombola/internal/room"
	"github.com/sirupsen/logrus"
)

// Envelope wraps direct replies and the welcome message.
type Envelope struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Welcome is the first message a client receives.
type Welcome struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

// Connection is a single live client socket.
type Connection struct {
	ID      string
	OutChan chan interface{}
	Cancel  context.CancelFunc

	mu      sync.Mutex
	lagging bool // a message was lost; the socket is being closed
	closeFn func(code websocket.StatusCode, reason string)
	logger  logrus.FieldLogger
}

// Write pushes msg onto the connection's OutChan without blocking. Room
// events must arrive in order with no gaps, so the first message that does
// not fit closes the socket with SlowConsumerError; the client reconnects and
// re-syncs from a snapshot. Nothing is queued after that.
func (conn *Connection) Write(msg interface{}) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.lagging {
		return
	}

	select {
	case conn.OutChan <- msg:
	default:
		conn.lagging = true
		conn.logger.Warnf("OutChan full, dropped message type '%s'; closing slow consumer", messageType(msg))
		if conn.closeFn != nil {
			go conn.closeFn(SlowConsumerError, "client fell behind, reconnect and re-sync")
		}
	}
}

// WriteError sends a private error notice.
func (conn *Connection) WriteError(msg string) {
	conn.Write(room.Event{Type: room.EventError, Message: msg})
}

func messageType(msg interface{}) string {
	switch m := msg.(type) {
	case room.Event:
		return string(m.Type)
	case Envelope:
		return m.Type
	case Welcome:
		return m.Type
	}
	return "unknown"
}

// Hub tracks live connections by ID and delivers room events to them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	logger logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		logger: logger,
	}
}

// Register adds a connection with an outbound buffer of size buf.
func (h *Hub) Register(id string, buf int, cancel context.CancelFunc, closeFn func(code websocket.StatusCode, reason string)) *Connection {
	conn := &Connection{
		ID:      id,
		OutChan: make(chan interface{}, buf),
		Cancel:  cancel,
		closeFn: closeFn,
		logger:  h.logger.WithField("conn", id),
	}
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return conn
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) Get(id string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Notify implements room.Notifier. Unknown connections are ignored.
func (h *Hub) Notify(connID string, ev room.Event) {
	if conn, ok := h.Get(connID); ok {
		conn.Write(ev)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every socket with ServerShutdownError.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if c.closeFn != nil {
			go c.closeFn(ServerShutdownError, "server shutting down")
		}
		if c.Cancel != nil {
			c.Cancel()
		}
	}
}
