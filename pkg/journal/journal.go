// Package journal records ledger events in an append-only audit trail. The
// journal mirrors committed ledger state: recording happens after an
// operation commits and is advisory, so a journal failure never rolls back
// the ledger.
package journal

import (
	"context"

	"github.com/wattbase/wattledger/pkg/models"
)

// Recorder persists journal entries and serves them back newest first.
type Recorder interface {
	Record(ctx context.Context, entries ...models.JournalEntry) error
	ListRecent(ctx context.Context, limit int32) ([]models.JournalEntry, error)
}
