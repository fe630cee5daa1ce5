// Package api defines the wire types of the HTTP API. Token amounts and
// native payments travel as decimal strings so 256-bit values survive
// JSON round-trips.
package api

import "time"

// RegisterDeviceRequest registers a generation device for a wallet.
type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Wallet   string `json:"wallet"`
}

// Device is a registered generation device.
type Device struct {
	DeviceID     string    `json:"device_id"`
	Wallet       string    `json:"wallet"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewReading submits a verified production reading for a device.
type NewReading struct {
	DeviceID    string `json:"device_id"`
	EnergyMilli uint64 `json:"energy_milli"`
}

// ReadingResult reports what a reading did to the ledger.
type ReadingResult struct {
	DeviceID     string `json:"device_id"`
	EnergyMilli  uint64 `json:"energy_milli"`
	MintedTokens string `json:"minted_tokens"`
}

// TokenInfo describes the fungible token.
type TokenInfo struct {
	Decimals    uint8  `json:"decimals"`
	Issuer      string `json:"issuer"`
	TotalSupply string `json:"total_supply"`
}

// MintRequest issues new tokens. Only the issuer may call it.
type MintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TransferRequest moves tokens from the caller to another holder.
type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// ApproveRequest sets the caller's allowance for a spender.
type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// TransferFromRequest moves tokens on behalf of a holder, within the
// caller's allowance.
type TransferFromRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// SetIssuerRequest reassigns issuance. Only the administrator may call it.
type SetIssuerRequest struct {
	Issuer string `json:"issuer"`
}

// Balance is a holder's token balance.
type Balance struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// Allowance is the amount a spender may move on an owner's behalf.
type Allowance struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// NewListing puts tokens up for sale at a native-currency price.
type NewListing struct {
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

// Listing is a marketplace listing.
type Listing struct {
	ID        uint64    `json:"id"`
	Seller    string    `json:"seller"`
	Amount    string    `json:"amount"`
	Price     string    `json:"price"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// BuyRequest purchases a listing outright at its asking price.
type BuyRequest struct {
	Payment string `json:"payment"`
}

// NewOffer places an escrowed offer against a listing.
type NewOffer struct {
	Amount  string `json:"amount"`
	Price   string `json:"price"`
	Payment string `json:"payment"`
}

// Offer is an escrowed offer against a listing.
type Offer struct {
	ID        uint64    `json:"id"`
	ListingID uint64    `json:"listing_id"`
	Buyer     string    `json:"buyer"`
	Amount    string    `json:"amount"`
	Price     string    `json:"price"`
	Escrow    string    `json:"escrow"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Settlement reports a completed sale.
type Settlement struct {
	ListingID   uint64 `json:"listing_id"`
	OfferID     uint64 `json:"offer_id,omitempty"`
	Seller      string `json:"seller"`
	Buyer       string `json:"buyer"`
	Amount      string `json:"amount"`
	BuyerTokens string `json:"buyer_tokens"`
	FeeTokens   string `json:"fee_tokens"`
	Payment     string `json:"payment"`
}

// MarketStats summarizes marketplace state.
type MarketStats struct {
	Listings   uint64 `json:"listings"`
	Offers     uint64 `json:"offers"`
	EscrowHeld string `json:"escrow_held"`
}

// Payout is a seller's accumulated native-currency proceeds.
type Payout struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// WalletSummary aggregates a wallet's accrual totals and holdings.
type WalletSummary struct {
	Address            string `json:"address"`
	TotalEnergyMilli   uint64 `json:"total_energy_milli"`
	PendingEnergyMilli uint64 `json:"pending_energy_milli"`
	ImpactMicro        uint64 `json:"impact_micro"`
	MintedTokens       uint64 `json:"minted_tokens"`
	TokenBalance       string `json:"token_balance"`
	Payout             string `json:"payout"`
}

// OffsetValue is the USD valuation of a wallet's verified generation.
type OffsetValue struct {
	Address       string    `json:"address"`
	ValueUSD      string    `json:"value_usd"`
	Price         int64     `json:"price"`
	PriceDecimals uint8     `json:"price_decimals"`
	QuotedAt      time.Time `json:"quoted_at"`
	Valid         bool      `json:"valid"`
}

// Event is one audit journal entry.
type Event struct {
	EntryID     string    `json:"entry_id"`
	Kind        string    `json:"kind"`
	Actor       string    `json:"actor,omitempty"`
	Device      string    `json:"device,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Payment     string    `json:"payment,omitempty"`
	EnergyMilli uint64    `json:"energy_milli,omitempty"`
	ListingID   uint64    `json:"listing_id,omitempty"`
	OfferID     uint64    `json:"offer_id,omitempty"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditReport is the outcome of one invariant audit pass.
type AuditReport struct {
	CheckedAt  time.Time `json:"checked_at"`
	Clean      bool      `json:"clean"`
	Violations []string  `json:"violations,omitempty"`
}
