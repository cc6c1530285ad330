// Package broadcast fans agent frames out to websocket subscribers.
package broadcast

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	sendBuffer  = 8
	maxReadSize = 64 * 1024
)

type Hub struct {
	token    string
	max      int
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub accepts at most maxClients subscribers. An empty token disables
// authentication.
func NewHub(token string, maxClients int, logger *slog.Logger) *Hub {
	if maxClients < 1 {
		maxClients = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		token: token,
		max:   maxClients,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logger,
		clients: map[*client]struct{}{},
	}
}

// TokenValid compares in constant time.
func (h *Hub) TokenValid(provided string) bool {
	if h.token == "" {
		return true
	}
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) == 1
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "WebSocket handshake must use GET.", http.StatusMethodNotAllowed)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected WebSocket upgrade request.", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(maxReadSize)

	if !h.TokenValid(r.URL.Query().Get("token")) {
		h.log.Warn("rejected websocket client", "reason", "invalid token", "remote", r.RemoteAddr)
		reject(conn, websocket.ClosePolicyViolation, "Missing or invalid token")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		h.log.Warn("rejected websocket client", "reason", "too many sessions", "remote", r.RemoteAddr)
		reject(conn, websocket.CloseTryAgainLater, "Server busy")
		return
	}
	h.log.Info("websocket client connected", "remote", r.RemoteAddr, "clients", h.Len())
	go h.writeLoop(c)
	h.readLoop(c)
}

func reject(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = conn.Close()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) >= h.max {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// readLoop discards inbound messages and returns once the peer goes away.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("websocket send failed", "err", err)
			h.unregister(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// Broadcast queues frame for every subscriber. Subscribers that cannot keep
// up are disconnected.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()
	for _, c := range slow {
		h.log.Warn("dropping slow websocket client")
		h.unregister(c)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}
