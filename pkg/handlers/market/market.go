// Package market serves the marketplace endpoints.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/escrow"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/mapping"
	"github.com/wattbase/wattledger/pkg/metrics"
	"github.com/wattbase/wattledger/pkg/models"
)

// Service is the slice of the ledger engine these handlers depend on.
type Service interface {
	CreateListing(ctx context.Context, caller models.Address, amount, price *uint256.Int) (*models.Listing, error)
	BuyNow(ctx context.Context, caller models.Address, listingID uint64, payment *uint256.Int) (*escrow.Settlement, error)
	MakeOffer(ctx context.Context, caller models.Address, listingID uint64, amount, price, payment *uint256.Int) (*models.Offer, error)
	AcceptOffer(ctx context.Context, caller models.Address, offerID uint64) (*escrow.Settlement, error)
	Listing(id uint64) (*models.Listing, error)
	ActiveListings() []*models.Listing
	Offer(caller models.Address, id uint64) (*models.Offer, error)
	Market() ledger.MarketStats
	PayoutBalance(addr models.Address) *uint256.Int
}

// MarketHandler holds the dependencies for marketplace handlers.
type MarketHandler struct {
	Ledger Service
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(svc Service) *MarketHandler {
	return &MarketHandler{Ledger: svc}
}

// CreateListing handles the logic for listing tokens for sale.
func (h *MarketHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.NewListing
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	price, err := mapping.ToDomainAmount(req.Price)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	lst, err := h.Ledger.CreateListing(r.Context(), caller, amount, price)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, mapping.ToApiListing(lst))
}

// ListListings handles the logic for retrieving all active listings.
func (h *MarketHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	domainListings := h.Ledger.ActiveListings()

	apiListings := make([]*api.Listing, len(domainListings))
	for i, lst := range domainListings {
		apiListings[i] = mapping.ToApiListing(lst)
	}

	api.WriteJSON(w, http.StatusOK, apiListings)
}

// GetListingById handles the logic for retrieving a listing by its ID.
func (h *MarketHandler) GetListingById(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "listingId")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	lst, err := h.Ledger.Listing(id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiListing(lst))
}

// BuyListing handles the logic for purchasing a listing outright.
func (h *MarketHandler) BuyListing(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, "listingId")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	payment, err := mapping.ToDomainAmount(req.Payment)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	stl, err := h.Ledger.BuyNow(r.Context(), caller, id, payment)
	metrics.RecordSettlement("buy_now", err)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiSettlement(stl))
}

// CreateOffer handles the logic for placing an escrowed offer on a listing.
func (h *MarketHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, "listingId")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.NewOffer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	price, err := mapping.ToDomainAmount(req.Price)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	payment, err := mapping.ToDomainAmount(req.Payment)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	off, err := h.Ledger.MakeOffer(r.Context(), caller, id, amount, price, payment)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, mapping.ToApiOffer(off))
}

// GetOfferById handles the logic for retrieving an offer. Offers are
// visible only to the buyer and the listing's seller.
func (h *MarketHandler) GetOfferById(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, "offerId")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	off, err := h.Ledger.Offer(caller, id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiOffer(off))
}

// AcceptOffer handles the logic for a seller accepting an offer.
func (h *MarketHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	id, err := pathID(r, "offerId")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	stl, err := h.Ledger.AcceptOffer(r.Context(), caller, id)
	metrics.RecordSettlement("accept_offer", err)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiSettlement(stl))
}

// GetStats handles the logic for summarizing marketplace state.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, mapping.ToApiMarketStats(h.Ledger.Market()))
}

// GetPayout handles the logic for reading a seller's accumulated proceeds.
func (h *MarketHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Payout{
		Address: addr.String(),
		Amount:  mapping.FormatAmount(h.Ledger.PayoutBalance(addr)),
	})
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed %s %q", models.ErrValidation, name, raw)
	}
	return id, nil
}
