package websockets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wattbase/wattledger/pkg/models"
)

const writeWait = 5 * time.Second

// Hub tracks live client connections and fans committed journal entries
// out to them.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
	}
}

// Make sure we conform to the interfaces
var (
	_ ConnectionManager = (*Hub)(nil)
	_ Publisher         = (*Hub)(nil)
)

// AddConnection registers a client connection with the hub.
func (h *Hub) AddConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// RemoveConnection drops a client connection from the hub.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ConnectionCount reports how many clients are currently connected.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Publish sends the journal entry to every connected client. Clients that
// cannot be written to are closed and dropped.
func (h *Hub) Publish(entry models.JournalEntry) {
	payload, err := json.Marshal(Message{Type: MessageTypeJournalEntry, Payload: entry})
	if err != nil {
		h.log.Error("failed to marshal journal entry for broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("dropping unreachable websocket client", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
