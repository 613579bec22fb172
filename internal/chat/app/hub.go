package app

import (
	"sync"

	"github.com/gofiber/websocket/v2"

	"pairchat/internal/chat/domain"
	"pairchat/pkg/logger"
)

// Sender delivers events to live connections. The registry and the relays
// only know connection ids, never raw conns.
type Sender interface {
	SendTo(connID string, ev domain.Event) error
	Broadcast(ev domain.Event)
}

// WSConn is the slice of *websocket.Conn the hub writes through
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
}

// hubConn one live connection with its write lock. Writes can come from
// different handlers' goroutines, the conn itself allows one writer at a time.
type hubConn struct {
	mu   sync.Mutex
	conn WSConn
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the connID → live connection table
type Hub struct {
	mu    sync.Mutex
	conns map[string]*hubConn
}

// NewHub create a Hub
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

// Add install a live connection under connID
func (h *Hub) Add(connID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = &hubConn{conn: conn}
}

// Remove drop the connection for connID
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// SendTo deliver one event to one connection. Unknown connIDs are a
// silent no-op so races with disconnect stay harmless.
func (h *Hub) SendTo(connID string, ev domain.Event) error {
	h.mu.Lock()
	c, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return c.write(data)
}

// Broadcast deliver one event to every live connection
func (h *Hub) Broadcast(ev domain.Event) {
	data, err := ev.Encode()
	if err != nil {
		logger.Log.Errorf("broadcast encode error:", err)
		return
	}

	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			logger.Log.Errorf("broadcast write error:", err)
		}
	}
}
