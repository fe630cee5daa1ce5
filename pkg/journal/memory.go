package journal

import (
	"context"
	"sync"

	"github.com/wattbase/wattledger/pkg/models"
)

// DefaultMemoryCapacity bounds the in-process journal when no capacity is
// configured.
const DefaultMemoryCapacity = 1024

// Memory keeps the most recent entries in process. It backs tests, local
// runs, and the events API when no DynamoDB table is configured.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.JournalEntry
}

// NewMemory creates a recorder retaining at most capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

var _ Recorder = (*Memory)(nil)

// Record appends entries, dropping the oldest beyond capacity.
func (m *Memory) Record(_ context.Context, entries ...models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	if excess := len(m.entries) - m.capacity; excess > 0 {
		m.entries = append([]models.JournalEntry(nil), m.entries[excess:]...)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (m *Memory) ListRecent(_ context.Context, limit int32) ([]models.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.entries)
	if limit > 0 && int(limit) < n {
		n = int(limit)
	}
	out := make([]models.JournalEntry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
