package websockets

import (
	"github.com/gorilla/websocket"

	"github.com/wattbase/wattledger/pkg/models"
)

// ConnectionManager defines the interface for managing WebSocket connections.
type ConnectionManager interface {
	AddConnection(conn *websocket.Conn)
	RemoveConnection(conn *websocket.Conn)
}

// Publisher defines the interface for broadcasting journal entries to
// WebSocket clients.
type Publisher interface {
	Publish(entry models.JournalEntry)
}
