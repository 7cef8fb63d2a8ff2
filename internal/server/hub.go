package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/riichiscore/internal/feed"
	"github.com/lox/riichiscore/internal/match"
)

// EventSnapshot is sent once to each new websocket client with the current
// state.
const EventSnapshot match.EventType = "snapshot"

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512

	sendBuffer = 64
)

// Hub streams match events to websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	current  func() match.Snapshot
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub. current supplies the snapshot sent on connect.
func NewHub(current func() match.Snapshot, logger *log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The scoreboard is viewed from other devices on the table's LAN.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		current: current,
		logger:  logger.WithPrefix("hub"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and starts streaming.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}

	s := h.current()
	first, err := json.Marshal(feed.Message{
		Type:      EventSnapshot,
		MatchID:   s.MatchID,
		Time:      time.Now(),
		Players:   s.Players,
		Round:     s.Round,
		IsEnded:   s.IsEnded,
		EndReason: s.EndReason,
	})
	if err != nil {
		h.logger.Error("Failed to encode snapshot", "error", err)
		conn.Close()
		return
	}
	c.send <- first

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Client connected", "remote", r.RemoteAddr, "total", total)

	go c.writePump()
	go c.readPump()
}

// OnEvent implements match.Subscriber by broadcasting to every client.
// Clients whose buffer is full are dropped.
func (h *Hub) OnEvent(e match.Event) {
	data, err := json.Marshal(feed.NewMessage(e))
	if err != nil {
		h.logger.Error("Failed to encode event", "event", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			count++
		default:
			h.logger.Warn("Client send buffer full, closing connection")
			go c.close()
		}
	}
	h.logger.Debug("Broadcast event", "event", e.Type, "recipients", count)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info("Client disconnected", "total", total)
	}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		_ = c.conn.Close()
	})
}

// readPump discards client frames; it exists to process pongs and notice
// disconnects.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
