package websockets

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattbase/wattledger/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dial stands up a server that registers upgraded connections with the hub
// and returns a connected client.
func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(conn)
	}))
	t.Cleanup(srv.Close)

	// Registration happens on the server goroutine after the handshake,
	// so wait for the hub to see the connection.
	want := hub.ConnectionCount() + 1
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.Eventually(t, func() bool { return hub.ConnectionCount() >= want }, time.Second, 5*time.Millisecond)
	return client
}

func readEntry(t *testing.T, client *websocket.Conn) (MessageType, models.JournalEntry) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    MessageType         `json:"type"`
		Payload models.JournalEntry `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg.Type, msg.Payload
}

func TestHub(t *testing.T) {
	entry := models.JournalEntry{EntryID: "entry-1", Kind: models.KindSale, Amount: "100"}

	t.Run("Broadcasts To Every Connected Client", func(t *testing.T) {
		hub := NewHub(testLogger())
		first := dial(t, hub)
		second := dial(t, hub)

		hub.Publish(entry)

		for _, client := range []*websocket.Conn{first, second} {
			kind, got := readEntry(t, client)
			assert.Equal(t, MessageTypeJournalEntry, kind)
			assert.Equal(t, "entry-1", got.EntryID)
			assert.Equal(t, models.KindSale, got.Kind)
		}
	})

	t.Run("Removed Connection Stops Receiving", func(t *testing.T) {
		hub := NewHub(testLogger())
		client := dial(t, hub)

		hub.mu.Lock()
		require.Len(t, hub.conns, 1)
		var server *websocket.Conn
		for conn := range hub.conns {
			server = conn
		}
		hub.mu.Unlock()

		hub.RemoveConnection(server)
		hub.Publish(entry)

		require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := client.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("Unreachable Client Is Pruned", func(t *testing.T) {
		hub := NewHub(testLogger())
		first := dial(t, hub)
		second := dial(t, hub)

		// Close one server-side connection so the next write to it fails.
		hub.mu.Lock()
		require.Len(t, hub.conns, 2)
		var victim *websocket.Conn
		for conn := range hub.conns {
			victim = conn
			break
		}
		hub.mu.Unlock()
		victim.Close()

		hub.Publish(entry)

		hub.mu.Lock()
		remaining := len(hub.conns)
		hub.mu.Unlock()
		assert.Equal(t, 1, remaining)

		// Exactly one of the two clients is still served.
		received := 0
		for _, client := range []*websocket.Conn{first, second} {
			client.SetReadDeadline(time.Now().Add(time.Second))
			if _, _, err := client.ReadMessage(); err == nil {
				received++
			}
		}
		assert.Equal(t, 1, received)
	})
}
