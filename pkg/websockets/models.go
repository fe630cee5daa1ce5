package websockets

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeJournalEntry is for messages that carry a committed journal entry.
	MessageTypeJournalEntry MessageType = "journalEntry"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}
