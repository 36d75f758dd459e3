package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
)

// WebSocket timing constants.
const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 50 * time.Second

	wsReadLimit    = 512

	// wsSendBuffer is the per-client outbound queue. A client that
	// cannot keep up is dropped rather than backing up the hub.
	wsSendBuffer = 16
)

// event is the JSON envelope broadcast to clients.
type event struct {
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// WSHub fans events out to connected WebSocket clients. It implements
// the Broadcaster interface the display controller and hub expect.
type WSHub struct {
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	pingInterval time.Duration
	pongTimeout  time.Duration
	readLimit    int64
}

// NewWSHub creates an empty hub.
func NewWSHub(logger *logging.Logger) *WSHub {
	return &WSHub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast sends an event to every connected client. Non-blocking:
// clients with a full send queue are disconnected.
func (h *WSHub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(event{
		Channel:   channel,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Warn("encoding websocket event failed", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Used on shutdown.
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *WSHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *WSHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-LAN deployment; origin enforcement is left to the reverse
	// proxy when exposed further.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and attaches it to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	wsCfg := s.cfg.WebSocket
	client := &wsClient{
		conn:         conn,
		send:         make(chan []byte, wsSendBuffer),
		pingInterval: wsPingInterval,
		pongTimeout:  wsPongTimeout,
		readLimit:    wsReadLimit,
	}
	if wsCfg.PingInterval > 0 {
		client.pingInterval = time.Duration(wsCfg.PingInterval) * time.Second
	}
	if wsCfg.PongTimeout > 0 {
		client.pongTimeout = time.Duration(wsCfg.PongTimeout) * time.Second
	}
	if wsCfg.MaxMessageSize > 0 {
		client.readLimit = int64(wsCfg.MaxMessageSize)
	}
	if !s.ws.register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s.ws)
}

// writePump drains the send queue to the connection and keeps the
// connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages (the stream is one-way) and
// detects disconnects.
func (c *wsClient) readPump(h *WSHub) {
	defer h.unregister(c)

	c.conn.SetReadLimit(c.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
