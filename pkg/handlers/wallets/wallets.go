// Package wallets serves the wallet summary and valuation endpoints.
package wallets

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/mapping"
	"github.com/wattbase/wattledger/pkg/models"
)

// Service is the slice of the ledger engine these handlers depend on.
type Service interface {
	Wallet(addr models.Address) ledger.WalletSummary
	OffsetValueUSD(ctx context.Context, addr models.Address) (*uint256.Int, models.PriceQuote, error)
}

// WalletsHandler holds the dependencies for wallet-related handlers.
type WalletsHandler struct {
	Ledger Service
}

// NewWalletsHandler creates a new WalletsHandler.
func NewWalletsHandler(svc Service) *WalletsHandler {
	return &WalletsHandler{Ledger: svc}
}

// GetWalletByAddress handles the logic for retrieving a wallet's combined
// accrual and holdings view.
func (h *WalletsHandler) GetWalletByAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	summary := h.Ledger.Wallet(addr)
	// A wallet the ledger has never seen reports zeros; fill in the
	// requested address so the response still names it.
	summary.Wallet = addr

	api.WriteJSON(w, http.StatusOK, mapping.ToApiWalletSummary(summary))
}

// GetWalletValue handles the logic for valuing a wallet's verified
// production in USD.
func (h *WalletsHandler) GetWalletValue(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	value, quote, err := h.Ledger.OffsetValueUSD(r.Context(), addr)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiOffsetValue(addr, value, quote))
}
