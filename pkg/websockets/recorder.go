package websockets

import (
	"context"

	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/models"
)

// Recorder decorates a journal recorder with a live broadcast. Entries
// reach the publisher only after the wrapped recorder accepts them.
type Recorder struct {
	inner     journal.Recorder
	publisher Publisher
}

// NewRecorder wraps inner so that accepted entries also reach the publisher.
func NewRecorder(inner journal.Recorder, publisher Publisher) *Recorder {
	return &Recorder{inner: inner, publisher: publisher}
}

// Make sure we conform to the interface
var _ journal.Recorder = (*Recorder)(nil)

// Record persists the entries and then broadcasts them.
func (r *Recorder) Record(ctx context.Context, entries ...models.JournalEntry) error {
	if err := r.inner.Record(ctx, entries...); err != nil {
		return err
	}
	for _, entry := range entries {
		r.publisher.Publish(entry)
	}
	return nil
}

// ListRecent serves reads from the wrapped recorder.
func (r *Recorder) ListRecent(ctx context.Context, limit int32) ([]models.JournalEntry, error) {
	return r.inner.ListRecent(ctx, limit)
}
