package websockets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub keeps the dashboard connections of the local server and broadcasts to them directly.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*websocket.Conn)}
}

// Register adds a live connection.
func (h *Hub) Register(connectionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connectionID] = conn
}

// Unregister drops a connection.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connectionID)
}

// Len is the number of registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Publish writes message to every registered connection. Connections that fail are dropped.
func (h *Hub) Publish(ctx context.Context, message Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(message); err != nil {
			slog.Error("failed to write to local connection, dropping it", "connectionId", id, "error", err)
			_ = conn.Close()
			delete(h.conns, id)
		}
	}
	return nil
}
