package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBuffer = 32

// Hub fans session events out to every connected screen. Broadcasts never
// block the caller: a connection that can't keep up drops frames.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Connection]struct{}
	logger      zerolog.Logger
}

// NewHub creates a broadcast hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[*Connection]struct{}),
		logger:      logger,
	}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn] = struct{}{}
	h.logger.Info().Int("connections", len(h.connections)).Msg("connection registered")
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn]; ok {
		conn.Close()
		delete(h.connections, conn)
		h.logger.Info().Int("connections", len(h.connections)).Msg("connection unregistered")
	}
}

// Broadcast sends a message to every connection.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections {
		if err := conn.Send(msg); err != nil && err != ErrConnectionClosed {
			h.logger.Warn().Err(err).Msg("broadcast send failed")
		}
	}
}

// Connection wraps a websocket with a buffered send queue and writer pump.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection and starts its writer pump.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	c := &Connection{
		conn:   conn,
		sendCh: make(chan Message, sendBuffer),
		logger: logger,
	}
	go c.writePump()
	return c
}

// Send queues a message; a full queue drops the frame rather than blocking.
// The mutex stays held across the channel send so Close cannot close sendCh
// between the closed check and the select.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		c.logger.Warn().Str("type", msg.Type).Msg("send queue full, dropping frame")
		return nil
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}

func (c *Connection) writePump() {
	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("websocket write failed")
			break
		}
	}
	_ = c.conn.Close()
}
