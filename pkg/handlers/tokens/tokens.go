// Package tokens serves the fungible token endpoints.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
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
	Mint(ctx context.Context, caller, to models.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, caller, to models.Address, amount *uint256.Int) error
	Approve(ctx context.Context, caller, spender models.Address, amount *uint256.Int) error
	TransferFrom(ctx context.Context, caller, from, to models.Address, amount *uint256.Int) error
	SetIssuer(ctx context.Context, caller, next models.Address) error
	BalanceOf(addr models.Address) *uint256.Int
	Allowance(owner, spender models.Address) *uint256.Int
	Token() ledger.TokenInfo
}

// TokensHandler holds the dependencies for token-related handlers.
type TokensHandler struct {
	Ledger Service
}

// NewTokensHandler creates a new TokensHandler.
func NewTokensHandler(svc Service) *TokensHandler {
	return &TokensHandler{Ledger: svc}
}

// GetToken handles the logic for describing the token.
func (h *TokensHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, mapping.ToApiTokenInfo(h.Ledger.Token()))
}

// Mint handles the logic for issuing new tokens.
func (h *TokensHandler) Mint(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	to, err := models.ParseAddress(req.To)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.Ledger.Mint(r.Context(), caller, to, amount); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Balance{
		Address: to.String(),
		Balance: mapping.FormatAmount(h.Ledger.BalanceOf(to)),
	})
}

// Transfer handles the logic for moving the caller's tokens.
func (h *TokensHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	to, err := models.ParseAddress(req.To)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.Ledger.Transfer(r.Context(), caller, to, amount); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Balance{
		Address: caller.String(),
		Balance: mapping.FormatAmount(h.Ledger.BalanceOf(caller)),
	})
}

// Approve handles the logic for setting a spender allowance.
func (h *TokensHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	spender, err := models.ParseAddress(req.Spender)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.Ledger.Approve(r.Context(), caller, spender, amount); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Allowance{
		Owner:   caller.String(),
		Spender: spender.String(),
		Amount:  mapping.FormatAmount(h.Ledger.Allowance(caller, spender)),
	})
}

// TransferFrom handles the logic for a delegated transfer within the
// caller's allowance.
func (h *TokensHandler) TransferFrom(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.TransferFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	from, err := models.ParseAddress(req.From)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	to, err := models.ParseAddress(req.To)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	amount, err := mapping.ToDomainAmount(req.Amount)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.Ledger.TransferFrom(r.Context(), caller, from, to, amount); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Balance{
		Address: to.String(),
		Balance: mapping.FormatAmount(h.Ledger.BalanceOf(to)),
	})
}

// SetIssuer handles the logic for reassigning issuance.
func (h *TokensHandler) SetIssuer(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.SetIssuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	next, err := models.ParseAddress(req.Issuer)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.Ledger.SetIssuer(r.Context(), caller, next); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiTokenInfo(h.Ledger.Token()))
}

// GetBalance handles the logic for reading a holder's balance.
func (h *TokensHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Balance{
		Address: addr.String(),
		Balance: mapping.FormatAmount(h.Ledger.BalanceOf(addr)),
	})
}

// GetAllowance handles the logic for reading a spender allowance.
func (h *TokensHandler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := models.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	spender, err := models.ParseAddress(chi.URLParam(r, "spender"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Allowance{
		Owner:   owner.String(),
		Spender: spender.String(),
		Amount:  mapping.FormatAmount(h.Ledger.Allowance(owner, spender)),
	})
}
