package websockets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/models"
)

type capturingPublisher struct {
	entries []models.JournalEntry
}

func (p *capturingPublisher) Publish(entry models.JournalEntry) {
	p.entries = append(p.entries, entry)
}

type failingRecorder struct{}

func (failingRecorder) Record(ctx context.Context, entries ...models.JournalEntry) error {
	return errors.New("journal unavailable")
}

func (failingRecorder) ListRecent(ctx context.Context, limit int32) ([]models.JournalEntry, error) {
	return nil, errors.New("journal unavailable")
}

func TestRecorder(t *testing.T) {
	t.Run("Broadcasts After The Write Commits", func(t *testing.T) {
		publisher := &capturingPublisher{}
		rec := NewRecorder(journal.NewMemory(8), publisher)

		err := rec.Record(context.Background(),
			models.JournalEntry{EntryID: "entry-1", Kind: models.KindReading},
			models.JournalEntry{EntryID: "entry-2", Kind: models.KindIssuance},
		)

		require.NoError(t, err)
		require.Len(t, publisher.entries, 2)
		assert.Equal(t, "entry-1", publisher.entries[0].EntryID)
		assert.Equal(t, "entry-2", publisher.entries[1].EntryID)

		listed, err := rec.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("No Broadcast When The Write Fails", func(t *testing.T) {
		publisher := &capturingPublisher{}
		rec := NewRecorder(failingRecorder{}, publisher)

		err := rec.Record(context.Background(), models.JournalEntry{EntryID: "entry-1"})

		assert.Error(t, err)
		assert.Empty(t, publisher.entries)
	})
}
