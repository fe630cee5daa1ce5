package websockets

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wattbase/wattledger/pkg/websockets"
)

// WebsocketsHandler subscribes clients to the live journal broadcast.
type WebsocketsHandler struct {
	Manager websockets.ConnectionManager
}

// NewWebsocketsHandler creates a new WebsocketsHandler.
func NewWebsocketsHandler(manager websockets.ConnectionManager) *WebsocketsHandler {
	return &WebsocketsHandler{Manager: manager}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks happen at the authenticating gateway in front of
		// the service.
		return true
	},
}

// Stream upgrades the request and keeps the connection registered with the
// hub until the client disconnects.
func (h *WebsocketsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.New().String()
	slog.Info("journal stream client connected", "connection_id", connectionID)

	h.Manager.AddConnection(conn)
	defer func() {
		h.Manager.RemoveConnection(conn)
		slog.Info("journal stream client disconnected", "connection_id", connectionID)
	}()

	// Clients only listen. The read loop exists to notice the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("unexpected close error", "error", err)
			}
			break
		}
	}
}
