// Package events serves the audit journal endpoints.
package events

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/mapping"
	"github.com/wattbase/wattledger/pkg/models"
)

// Service is the slice of the ledger engine these handlers depend on.
type Service interface {
	Events(ctx context.Context, limit int32) ([]models.JournalEntry, error)
	AuditInvariants() ledger.AuditReport
}

// EventsHandler holds the dependencies for journal-related handlers.
type EventsHandler struct {
	Ledger Service
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(svc Service) *EventsHandler {
	return &EventsHandler{Ledger: svc}
}

// ListEvents handles the logic for retrieving recent journal entries,
// newest first.
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := int32(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = int32(n)
	}

	domainEntries, err := h.Ledger.Events(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to retrieve ledger events", http.StatusInternalServerError)
		return
	}

	apiEvents := make([]api.Event, len(domainEntries))
	for i, entry := range domainEntries {
		apiEvents[i] = mapping.ToApiEvent(entry)
	}

	api.WriteJSON(w, http.StatusOK, apiEvents)
}

// GetAudit re-derives the ledger's invariants and reports any violations.
// A violation is an engine bug, not a caller problem, so the response is
// always 200 with the findings in the body.
func (h *EventsHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	report := h.Ledger.AuditInvariants()
	api.WriteJSON(w, http.StatusOK, mapping.ToApiAuditReport(report))
}
