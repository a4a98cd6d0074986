// server/internal/socket/hub.go
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// Client là một kết nối WebSocket; gorilla chỉ cho phép một writer tại một thời điểm.
type Client struct {
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *Client) WriteMessage(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Client) WriteJSON(v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(message)
}

// Hub quản lý tất cả các client WebSocket; một user có thể mở nhiều tab.
type Hub struct {
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	c := &Client{UserID: userID, conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	log.Debug().Str("user", userID).Int("connections", len(h.clients[userID])).Msg("WebSocket client registered")
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	log.Debug().Str("user", c.UserID).Msg("WebSocket client unregistered")
}

// Send gửi tin nhắn đến mọi kết nối của một user. User offline không phải là lỗi.
func (h *Hub) Send(userID string, message []byte) error {
	var firstErr error
	for _, c := range h.snapshot(userID) {
		if err := c.WriteMessage(message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Broadcast sends message to every connected client, logging failed writes.
func (h *Hub) Broadcast(message []byte) {
	for _, c := range h.snapshot("") {
		if err := c.WriteMessage(message); err != nil {
			log.Debug().Err(err).Str("user", c.UserID).Msg("broadcast write failed")
		}
	}
}

func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// snapshot copies the clients of userID, or of everyone when userID is empty.
func (h *Hub) snapshot(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Client
	for uid, conns := range h.clients {
		if userID != "" && uid != userID {
			continue
		}
		for c := range conns {
			out = append(out, c)
		}
	}
	return out
}
