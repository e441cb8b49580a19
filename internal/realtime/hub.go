package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/statuspulse/statuspulse/internal/pkg/metrics"
)

const clientSendBuffer = 64

// client is one connected subscriber. Writes go through the send channel so
// the broadcaster never blocks on a slow socket.
type client struct {
	conn  *websocket.Conn
	send  chan []byte
	orgID string
}

// Hub is the subscriber registry. Broadcast delivers an event to every
// client registered for the event's organization; a failed or slow client
// is pruned without affecting the others.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Register adds a connection as a subscriber for one organization and
// starts its pumps. It returns once the pumps are running.
func (h *Hub) Register(conn *websocket.Conn, orgID string) {
	c := &client{
		conn:  conn,
		send:  make(chan []byte, clientSendBuffer),
		orgID: orgID,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(float64(n))

	go c.writePump()
	go c.readPump(h)
}

// Broadcast sends the event to all subscribers of the event's organization.
// Send failures are isolated per subscriber.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("realtime: marshal event", "type", evt.Type, "error", err)
		return
	}

	// Sends happen under the read lock: unregister takes the write lock
	// before closing a send channel, so no send can race a close.
	h.mu.RLock()
	var dead []*client
	for c := range h.clients {
		if c.orgID != evt.OrgID {
			continue
		}
		select {
		case c.send <- data:
			metrics.BroadcastsSent.WithLabelValues(string(evt.Type)).Inc()
		default:
			// Buffer full means the client stopped draining; drop it.
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dead {
		slog.Debug("realtime: dropping slow client", "org_id", c.orgID)
		h.unregister(c)
	}
}

// ClientCount returns the number of connected subscribers, optionally
// filtered by organization (empty orgID counts everyone).
func (h *Hub) ClientCount(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if orgID == "" {
		return len(h.clients)
	}
	n := 0
	for c := range h.clients {
		if c.orgID == orgID {
			n++
		}
	}
	return n
}

// Close disconnects every subscriber. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	metrics.WebsocketClients.Set(0)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		metrics.WebsocketClients.Set(float64(n))
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	// Send channel closed: the hub dropped us, say goodbye politely.
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	// Clients never send anything meaningful; the read loop only detects
	// disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
