package models

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// Address identifies a wallet on the ledger: 20 bytes, hex encoded with a
// 0x prefix, normalized to lower case.
type Address string

// ZeroAddress is the null address. It can never hold a balance, receive a
// mint, or be granted an authority.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes a wallet address.
func ParseAddress(s string) (Address, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(t, "0x") || len(t) != 42 {
		return "", fmt.Errorf("%w: malformed address %q", ErrValidation, s)
	}
	if _, err := hex.DecodeString(t[2:]); err != nil {
		return "", fmt.Errorf("%w: malformed address %q", ErrValidation, s)
	}
	return Address(t), nil
}

// IsZero reports whether the address is the null address or empty.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// DeviceID is the opaque 32-byte identifier assigned to a generation device
// by the verification pipeline, hex encoded with a 0x prefix.
type DeviceID string

// ParseDeviceID validates and normalizes a device identifier.
func ParseDeviceID(s string) (DeviceID, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(t, "0x") || len(t) != 66 {
		return "", fmt.Errorf("%w: malformed device id %q", ErrValidation, s)
	}
	if _, err := hex.DecodeString(t[2:]); err != nil {
		return "", fmt.Errorf("%w: malformed device id %q", ErrValidation, s)
	}
	return DeviceID(t), nil
}

func (d DeviceID) String() string {
	return string(d)
}

// Device is a registered generation device. Deactivation is one-way: a
// device never returns to the active state.
type Device struct {
	ID           DeviceID  `json:"device_id"`
	Wallet       Address   `json:"wallet"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// WalletTotals aggregates a wallet's lifetime accrual counters. Energy is
// in milli-units (mWh), impact in micro-units of avoided CO2.
type WalletTotals struct {
	Wallet             Address
	TotalEnergyMilli   uint64
	PendingEnergyMilli uint64
	ImpactMicro        uint64
	MintedTokens       uint64
}

// Listing is a marketplace sell order. Tokens are not escrowed at listing
// time; the seller keeps custody and grants the marketplace an allowance.
type Listing struct {
	ID        uint64
	Seller    Address
	Amount    *uint256.Int
	Price     *uint256.Int
	Active    bool
	CreatedAt time.Time
}

// Offer is a buyer's counter-proposal against a listing. The offered
// payment is escrowed inside the offer while it is active.
type Offer struct {
	ID        uint64
	ListingID uint64
	Buyer     Address
	Amount    *uint256.Int
	Price     *uint256.Int
	Escrow    *uint256.Int
	Active    bool
	CreatedAt time.Time
}

// PriceQuote is a point-in-time USD price from the oracle. Price is scaled
// by 10^Decimals; a non-positive price means no valid quote.
type PriceQuote struct {
	Price     int64
	Decimals  uint8
	Timestamp time.Time
}

// Valid reports whether the quote carries a usable price.
func (q PriceQuote) Valid() bool {
	return q.Price > 0
}
