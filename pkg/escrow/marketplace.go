// Package escrow implements the token marketplace: listings, escrowed
// offers, and atomic settlement with the treasury fee split.
package escrow

import (
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// Seller share of every settlement; the treasury fee takes the remainder,
// including the rounding remainder, in tokens.
const (
	sellerShareNumerator = 95
	shareDenominator     = 100
)

// TokenMover is the slice of the token ledger the marketplace depends on:
// the delegated settlement path. The spender identity is bound by the
// adapter behind this interface.
type TokenMover interface {
	SettleSale(seller, buyer, treasury models.Address, buyerAmount, feeAmount *uint256.Int) error
}

// Settlement summarizes one completed marketplace settlement.
type Settlement struct {
	ListingID   uint64
	OfferID     uint64 // zero when settled by direct purchase
	Seller      models.Address
	Buyer       models.Address
	Amount      *uint256.Int
	BuyerTokens *uint256.Int
	FeeTokens   *uint256.Int
	Payment     *uint256.Int
}

// Marketplace holds listings, offers, escrowed offer payments, and the
// native-currency payout balances credited to sellers on settlement. It is
// not safe for concurrent use on its own; the owning engine serializes
// every call.
type Marketplace struct {
	treasury models.Address
	mover    TokenMover

	listings      map[uint64]*models.Listing
	offers        map[uint64]*models.Offer
	nextListingID uint64
	nextOfferID   uint64
	payouts       map[models.Address]*uint256.Int
}

// New creates an empty marketplace paying fees to the treasury wallet.
func New(treasury models.Address, mover TokenMover) (*Marketplace, error) {
	if treasury.IsZero() {
		return nil, fmt.Errorf("%w: treasury wallet is null", models.ErrValidation)
	}
	if mover == nil {
		return nil, fmt.Errorf("%w: token mover is missing", models.ErrValidation)
	}
	return &Marketplace{
		treasury:      treasury,
		mover:         mover,
		listings:      make(map[uint64]*models.Listing),
		offers:        make(map[uint64]*models.Offer),
		nextListingID: 1,
		nextOfferID:   1,
		payouts:       make(map[models.Address]*uint256.Int),
	}, nil
}

// CreateListing records a sell order. No tokens move at listing time; the
// seller keeps custody and must hold an allowance for the marketplace
// covering at least the listed amount by settlement time.
func (m *Marketplace) CreateListing(seller models.Address, amount, price *uint256.Int) (*models.Listing, error) {
	if seller.IsZero() {
		return nil, fmt.Errorf("%w: seller is null", models.ErrValidation)
	}
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: listing amount is zero", models.ErrValidation)
	}
	if price == nil || price.IsZero() {
		return nil, fmt.Errorf("%w: listing price is zero", models.ErrValidation)
	}
	lst := &models.Listing{
		ID:        m.nextListingID,
		Seller:    seller,
		Amount:    amount.Clone(),
		Price:     price.Clone(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	m.nextListingID++
	m.listings[lst.ID] = lst
	return cloneListing(lst), nil
}

// BuyNow settles a listing at its asking price. The listing is deactivated
// before any value moves; a settlement failure after that point reports
// the error, moves nothing, and does not resurrect the listing.
func (m *Marketplace) BuyNow(buyer models.Address, listingID uint64, payment *uint256.Int) (*Settlement, error) {
	if buyer.IsZero() {
		return nil, fmt.Errorf("%w: buyer is null", models.ErrValidation)
	}
	lst, ok := m.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown listing %d", models.ErrState, listingID)
	}
	if !lst.Active {
		return nil, fmt.Errorf("%w: listing %d is no longer active", models.ErrState, listingID)
	}
	if payment == nil || !payment.Eq(lst.Price) {
		return nil, fmt.Errorf("%w: listing %d costs exactly %s", models.ErrPaymentMismatch, listingID, lst.Price)
	}
	newPayout, carry := new(uint256.Int).AddOverflow(m.payout(lst.Seller), payment)
	if carry {
		return nil, fmt.Errorf("%w: payout overflow for %s", models.ErrArithmetic, lst.Seller)
	}

	buyerTokens, feeTokens := splitFee(lst.Amount)

	// Mark the listing consumed before moving value. The order is a
	// protocol invariant: a listing must never be purchasable twice.
	lst.Active = false
	if err := m.mover.SettleSale(lst.Seller, buyer, m.treasury, buyerTokens, feeTokens); err != nil {
		// The listing stays consumed: losing it is the accepted outcome
		// of a settlement the seller can no longer cover.
		return nil, fmt.Errorf("settling listing %d: %w", listingID, err)
	}
	m.payouts[lst.Seller] = newPayout

	return &Settlement{
		ListingID:   listingID,
		Seller:      lst.Seller,
		Buyer:       buyer,
		Amount:      lst.Amount.Clone(),
		BuyerTokens: buyerTokens,
		FeeTokens:   feeTokens,
		Payment:     payment.Clone(),
	}, nil
}

// MakeOffer records a counter-proposal against an active listing and takes
// the offered payment into escrow. The payment must equal the offered
// price exactly.
func (m *Marketplace) MakeOffer(buyer models.Address, listingID uint64, amount, price, payment *uint256.Int) (*models.Offer, error) {
	if buyer.IsZero() {
		return nil, fmt.Errorf("%w: buyer is null", models.ErrValidation)
	}
	lst, ok := m.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown listing %d", models.ErrState, listingID)
	}
	if !lst.Active {
		return nil, fmt.Errorf("%w: listing %d is no longer active", models.ErrState, listingID)
	}
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: offer amount is zero", models.ErrValidation)
	}
	if price == nil || price.IsZero() {
		return nil, fmt.Errorf("%w: offer price is zero", models.ErrValidation)
	}
	if payment == nil || !payment.Eq(price) {
		return nil, fmt.Errorf("%w: offer escrow must equal the offered price %s", models.ErrPaymentMismatch, price)
	}
	off := &models.Offer{
		ID:        m.nextOfferID,
		ListingID: listingID,
		Buyer:     buyer,
		Amount:    amount.Clone(),
		Price:     price.Clone(),
		Escrow:    payment.Clone(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	m.nextOfferID++
	m.offers[off.ID] = off
	return cloneOffer(off), nil
}

// AcceptOffer settles an active offer. Only the seller of the target
// listing may accept, and the listing state is re-checked at acceptance
// because a direct purchase may have consumed it since the offer was made.
// Listing and offer are deactivated before any value moves, under the same
// no-resurrection policy as BuyNow.
func (m *Marketplace) AcceptOffer(caller models.Address, offerID uint64) (*Settlement, error) {
	off, ok := m.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown offer %d", models.ErrState, offerID)
	}
	if !off.Active {
		return nil, fmt.Errorf("%w: offer %d is no longer active", models.ErrState, offerID)
	}
	lst, ok := m.listings[off.ListingID]
	if !ok {
		return nil, fmt.Errorf("%w: offer %d targets unknown listing %d", models.ErrState, offerID, off.ListingID)
	}
	if caller != lst.Seller {
		return nil, fmt.Errorf("%w: %s is not the seller of listing %d", models.ErrUnauthorized, caller, lst.ID)
	}
	if !lst.Active {
		return nil, fmt.Errorf("%w: listing %d is no longer active", models.ErrState, lst.ID)
	}
	newPayout, carry := new(uint256.Int).AddOverflow(m.payout(lst.Seller), off.Escrow)
	if carry {
		return nil, fmt.Errorf("%w: payout overflow for %s", models.ErrArithmetic, lst.Seller)
	}

	buyerTokens, feeTokens := splitFee(off.Amount)
	payment := off.Escrow.Clone()

	lst.Active = false
	off.Active = false
	if err := m.mover.SettleSale(lst.Seller, off.Buyer, m.treasury, buyerTokens, feeTokens); err != nil {
		return nil, fmt.Errorf("settling offer %d: %w", offerID, err)
	}
	off.Escrow = new(uint256.Int)
	m.payouts[lst.Seller] = newPayout

	return &Settlement{
		ListingID:   lst.ID,
		OfferID:     offerID,
		Seller:      lst.Seller,
		Buyer:       off.Buyer,
		Amount:      off.Amount.Clone(),
		BuyerTokens: buyerTokens,
		FeeTokens:   feeTokens,
		Payment:     payment,
	}, nil
}

// Listing returns a copy of the listing record.
func (m *Marketplace) Listing(id uint64) (*models.Listing, error) {
	lst, ok := m.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown listing %d", models.ErrState, id)
	}
	return cloneListing(lst), nil
}

// Offer returns a copy of the offer record. Visibility restrictions are
// enforced by the caller.
func (m *Marketplace) Offer(id uint64) (*models.Offer, error) {
	off, ok := m.offers[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown offer %d", models.ErrState, id)
	}
	return cloneOffer(off), nil
}

// ActiveListings returns copies of every active listing, ordered by id.
func (m *Marketplace) ActiveListings() []*models.Listing {
	var out []*models.Listing
	for _, lst := range m.listings {
		if lst.Active {
			out = append(out, cloneListing(lst))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListingCount returns how many listings have ever been created.
func (m *Marketplace) ListingCount() uint64 {
	return m.nextListingID - 1
}

// OfferCount returns how many offers have ever been created.
func (m *Marketplace) OfferCount() uint64 {
	return m.nextOfferID - 1
}

// PayoutBalance returns a copy of the native-currency balance released to
// the wallet by settled sales.
func (m *Marketplace) PayoutBalance(addr models.Address) *uint256.Int {
	return m.payout(addr).Clone()
}

// EscrowHeld sums the escrowed payments of every active offer.
func (m *Marketplace) EscrowHeld() *uint256.Int {
	sum := new(uint256.Int)
	for _, off := range m.offers {
		if off.Active {
			sum.Add(sum, off.Escrow)
		}
	}
	return sum
}

// Audit re-derives the marketplace's structural invariants and returns a
// description of each violation found.
func (m *Marketplace) Audit() []string {
	var violations []string
	for id, off := range m.offers {
		if _, ok := m.listings[off.ListingID]; !ok {
			violations = append(violations,
				fmt.Sprintf("offer %d targets unknown listing %d", id, off.ListingID))
		}
		if off.Active && off.Escrow.IsZero() {
			violations = append(violations,
				fmt.Sprintf("offer %d is active with no escrowed payment", id))
		}
	}
	for id, lst := range m.listings {
		if lst.Active && (lst.Amount.IsZero() || lst.Price.IsZero()) {
			violations = append(violations,
				fmt.Sprintf("listing %d is active with a zero amount or price", id))
		}
	}
	return violations
}

// splitFee divides a sale amount into the buyer's share and the treasury
// fee. Division rounds down and the fee absorbs the remainder, so the two
// parts always rebuild the full amount.
func splitFee(amount *uint256.Int) (buyerTokens, feeTokens *uint256.Int) {
	buyerTokens, _ = new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(sellerShareNumerator), uint256.NewInt(shareDenominator))
	feeTokens = new(uint256.Int).Sub(amount, buyerTokens)
	return buyerTokens, feeTokens
}

func (m *Marketplace) payout(addr models.Address) *uint256.Int {
	if p, ok := m.payouts[addr]; ok {
		return p
	}
	return new(uint256.Int)
}

func cloneListing(l *models.Listing) *models.Listing {
	c := *l
	c.Amount = l.Amount.Clone()
	c.Price = l.Price.Clone()
	return &c
}

func cloneOffer(o *models.Offer) *models.Offer {
	c := *o
	c.Amount = o.Amount.Clone()
	c.Price = o.Price.Clone()
	c.Escrow = o.Escrow.Clone()
	return &c
}
