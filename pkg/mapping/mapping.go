// Package mapping converts between the HTTP wire types and the domain
// models, including decimal-string encoding of 256-bit amounts.
package mapping

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/escrow"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/models"
)

// ToDomainAmount parses a decimal string into a 256-bit amount.
func ToDomainAmount(s string) (*uint256.Int, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, fmt.Errorf("%w: amount is required", models.ErrValidation)
	}
	v, err := uint256.FromDecimal(t)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed amount %q", models.ErrValidation, s)
	}
	return v, nil
}

// FormatAmount renders a 256-bit amount as a decimal string.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// ToApiDevice converts a domain Device model to an API Device model.
func ToApiDevice(d *models.Device) *api.Device {
	return &api.Device{
		DeviceID:     d.ID.String(),
		Wallet:       d.Wallet.String(),
		Active:       d.Active,
		RegisteredAt: d.RegisteredAt,
	}
}

// ToApiListing converts a domain Listing model to an API Listing model.
func ToApiListing(lst *models.Listing) *api.Listing {
	return &api.Listing{
		ID:        lst.ID,
		Seller:    lst.Seller.String(),
		Amount:    FormatAmount(lst.Amount),
		Price:     FormatAmount(lst.Price),
		Active:    lst.Active,
		CreatedAt: lst.CreatedAt,
	}
}

// ToApiOffer converts a domain Offer model to an API Offer model.
func ToApiOffer(off *models.Offer) *api.Offer {
	return &api.Offer{
		ID:        off.ID,
		ListingID: off.ListingID,
		Buyer:     off.Buyer.String(),
		Amount:    FormatAmount(off.Amount),
		Price:     FormatAmount(off.Price),
		Escrow:    FormatAmount(off.Escrow),
		Active:    off.Active,
		CreatedAt: off.CreatedAt,
	}
}

// ToApiSettlement converts a settlement result to its API model.
func ToApiSettlement(stl *escrow.Settlement) *api.Settlement {
	return &api.Settlement{
		ListingID:   stl.ListingID,
		OfferID:     stl.OfferID,
		Seller:      stl.Seller.String(),
		Buyer:       stl.Buyer.String(),
		Amount:      FormatAmount(stl.Amount),
		BuyerTokens: FormatAmount(stl.BuyerTokens),
		FeeTokens:   FormatAmount(stl.FeeTokens),
		Payment:     FormatAmount(stl.Payment),
	}
}

// ToApiTokenInfo converts the token description to its API model.
func ToApiTokenInfo(info ledger.TokenInfo) *api.TokenInfo {
	return &api.TokenInfo{
		Decimals:    info.Decimals,
		Issuer:      info.Issuer.String(),
		TotalSupply: FormatAmount(info.TotalSupply),
	}
}

// ToApiMarketStats converts marketplace statistics to their API model.
func ToApiMarketStats(stats ledger.MarketStats) *api.MarketStats {
	return &api.MarketStats{
		Listings:   stats.Listings,
		Offers:     stats.Offers,
		EscrowHeld: FormatAmount(stats.EscrowHeld),
	}
}

// ToApiWalletSummary converts a wallet summary to its API model.
func ToApiWalletSummary(s ledger.WalletSummary) *api.WalletSummary {
	return &api.WalletSummary{
		Address:            s.Wallet.String(),
		TotalEnergyMilli:   s.TotalEnergyMilli,
		PendingEnergyMilli: s.PendingEnergyMilli,
		ImpactMicro:        s.ImpactMicro,
		MintedTokens:       s.MintedTokens,
		TokenBalance:       FormatAmount(s.TokenBalance),
		Payout:             FormatAmount(s.Payout),
	}
}

// ToApiOffsetValue converts a wallet valuation to its API model.
func ToApiOffsetValue(addr models.Address, value *uint256.Int, quote models.PriceQuote) *api.OffsetValue {
	return &api.OffsetValue{
		Address:       addr.String(),
		ValueUSD:      FormatAmount(value),
		Price:         quote.Price,
		PriceDecimals: quote.Decimals,
		QuotedAt:      quote.Timestamp,
		Valid:         quote.Valid(),
	}
}

// ToApiEvent converts a journal entry to its API model.
func ToApiEvent(e models.JournalEntry) api.Event {
	return api.Event{
		EntryID:     e.EntryID,
		Kind:        string(e.Kind),
		Actor:       e.Actor,
		Device:      e.Device,
		From:        e.From,
		To:          e.To,
		Amount:      e.Amount,
		Payment:     e.Payment,
		EnergyMilli: e.EnergyMilli,
		ListingID:   e.ListingID,
		OfferID:     e.OfferID,
		Note:        e.Note,
		Timestamp:   e.Timestamp,
	}
}

// ToApiAuditReport converts an invariant audit report to its API model.
func ToApiAuditReport(report ledger.AuditReport) *api.AuditReport {
	return &api.AuditReport{
		CheckedAt:  report.CheckedAt,
		Clean:      report.Clean(),
		Violations: report.Violations,
	}
}
