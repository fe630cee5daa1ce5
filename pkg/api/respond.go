package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wattbase/wattledger/pkg/models"
)

// CallerHeader carries the wallet identity of the requester.
const CallerHeader = "X-Wallet-Address"

// Caller identifies the requesting wallet from the caller header.
func Caller(r *http.Request) (models.Address, error) {
	h := r.Header.Get(CallerHeader)
	if h == "" {
		return "", fmt.Errorf("%w: %s header is required", models.ErrValidation, CallerHeader)
	}
	return models.ParseAddress(h)
}

// WriteJSON renders v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// WriteError maps a domain error onto its HTTP status. Unknown entities
// are 404 on reads and 409 on mutations: a missing listing is an absent
// resource to a reader but a state conflict to a buyer.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrPaymentMismatch):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, models.ErrArithmetic):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrState):
		if r.Method == http.MethodGet {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusConflict)
		}
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
