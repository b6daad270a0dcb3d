package notification

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"workfit-event-service-golang/internal/store"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway terminates auth before traffic reaches this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn is the slice of *websocket.Conn the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client wraps one socket. gorilla conns support a single concurrent
// writer, so every write goes through the per-client mutex.
type client struct {
	conn wsConn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans in-app notifications out to connected websocket clients, keyed by
// recipient email. Delivery is best-effort: a recipient without an open
// socket simply reads the record later from the store.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*client
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*client)}
}

// Push sends the notification to every open connection of the recipient.
// Safe for concurrent use: consumer workers on different topics can push to
// the same recipient at once.
func (h *Hub) Push(email string, n *store.Notification) {
	h.mu.RLock()
	conns := h.conns[email]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("[Realtime] marshal failed for event %s: %v", n.EventID, err)
		return
	}

	for _, c := range conns {
		if err := c.write(payload); err != nil {
			log.Printf("[Realtime] push failed for %s: %v", email, err)
			h.remove(email, c)
		}
	}
}

// ServeWS upgrades an HTTP request and registers the connection under the
// email query parameter until the peer disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "email query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] upgrade failed: %v", err)
		return
	}

	cl := &client{conn: conn}
	h.add(email, cl)
	log.Printf("[Realtime] client connected for %s", email)

	go func() {
		defer func() {
			h.remove(email, cl)
			conn.Close()
			log.Printf("[Realtime] client disconnected for %s", email)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(email string, c *client) {
	h.mu.Lock()
	h.conns[email] = append(h.conns[email], c)
	h.mu.Unlock()
}

func (h *Hub) remove(email string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Rebuild instead of splicing in place: Push goroutines may still be
	// ranging over the old slice.
	conns := h.conns[email]
	next := make([]*client, 0, len(conns))
	for _, existing := range conns {
		if existing != c {
			next = append(next, existing)
		}
	}
	if len(next) == 0 {
		delete(h.conns, email)
		return
	}
	h.conns[email] = next
}
