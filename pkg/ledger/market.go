package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/escrow"
	"github.com/wattbase/wattledger/pkg/models"
)

// MarketStats are the public marketplace counters. Offer contents are not
// part of them; only the parties of an offer may read it.
type MarketStats struct {
	Listings   uint64
	Offers     uint64
	EscrowHeld *uint256.Int
}

// CreateListing records a sell order for the caller.
func (l *Ledger) CreateListing(ctx context.Context, caller models.Address, amount, price *uint256.Int) (*models.Listing, error) {
	l.mu.Lock()
	lst, err := l.market.CreateListing(caller, amount, price)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:      models.KindListingCreated,
		Actor:     caller.String(),
		ListingID: lst.ID,
		Amount:    lst.Amount.Dec(),
		Payment:   lst.Price.Dec(),
	})
	return lst, nil
}

// BuyNow settles a listing at its asking price for the caller.
func (l *Ledger) BuyNow(ctx context.Context, caller models.Address, listingID uint64, payment *uint256.Int) (*escrow.Settlement, error) {
	l.mu.Lock()
	stl, err := l.market.BuyNow(caller, listingID, payment)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:      models.KindSale,
		Actor:     caller.String(),
		From:      stl.Seller.String(),
		To:        stl.Buyer.String(),
		ListingID: stl.ListingID,
		Amount:    stl.Amount.Dec(),
		Payment:   stl.Payment.Dec(),
		Note:      fmt.Sprintf("fee %s to treasury", stl.FeeTokens.Dec()),
	})
	return stl, nil
}

// MakeOffer records a counter-proposal by the caller and escrows the
// payment.
func (l *Ledger) MakeOffer(ctx context.Context, caller models.Address, listingID uint64, amount, price, payment *uint256.Int) (*models.Offer, error) {
	l.mu.Lock()
	off, err := l.market.MakeOffer(caller, listingID, amount, price, payment)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:      models.KindOfferCreated,
		Actor:     caller.String(),
		ListingID: off.ListingID,
		OfferID:   off.ID,
		Amount:    off.Amount.Dec(),
		Payment:   off.Escrow.Dec(),
	})
	return off, nil
}

// AcceptOffer settles an offer for the caller, who must be the seller of
// the target listing.
func (l *Ledger) AcceptOffer(ctx context.Context, caller models.Address, offerID uint64) (*escrow.Settlement, error) {
	l.mu.Lock()
	stl, err := l.market.AcceptOffer(caller, offerID)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:      models.KindOfferAccepted,
		Actor:     caller.String(),
		From:      stl.Seller.String(),
		To:        stl.Buyer.String(),
		ListingID: stl.ListingID,
		OfferID:   stl.OfferID,
		Amount:    stl.Amount.Dec(),
		Payment:   stl.Payment.Dec(),
		Note:      fmt.Sprintf("fee %s to treasury", stl.FeeTokens.Dec()),
	})
	return stl, nil
}

// Listing returns the listing record.
func (l *Ledger) Listing(id uint64) (*models.Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.market.Listing(id)
}

// ActiveListings returns every active listing, ordered by id.
func (l *Ledger) ActiveListings() []*models.Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.market.ActiveListings()
}

// Offer returns the offer record to one of its parties: the buyer who made
// it or the seller of the target listing.
func (l *Ledger) Offer(caller models.Address, id uint64) (*models.Offer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	off, err := l.market.Offer(id)
	if err != nil {
		return nil, err
	}
	lst, err := l.market.Listing(off.ListingID)
	if err != nil {
		return nil, err
	}
	if caller != off.Buyer && caller != lst.Seller {
		return nil, fmt.Errorf("%w: offer %d is only visible to its parties", models.ErrUnauthorized, id)
	}
	return off, nil
}

// Market returns the public marketplace counters.
func (l *Ledger) Market() MarketStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return MarketStats{
		Listings:   l.market.ListingCount(),
		Offers:     l.market.OfferCount(),
		EscrowHeld: l.market.EscrowHeld(),
	}
}

// PayoutBalance returns the native currency released to the wallet by
// settled sales.
func (l *Ledger) PayoutBalance(addr models.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.market.PayoutBalance(addr)
}
