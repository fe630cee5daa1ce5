package escrow

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattbase/wattledger/pkg/models"
)

var (
	seller   = models.Address("0x00000000000000000000000000000000000000f1")
	buyer    = models.Address("0x00000000000000000000000000000000000000f2")
	rival    = models.Address("0x00000000000000000000000000000000000000f3")
	treasury = models.Address("0x00000000000000000000000000000000000000f9")
)

type settleCall struct {
	seller, buyer, treasury models.Address
	buyerAmount, feeAmount  *uint256.Int
}

type fakeMover struct {
	settleErr error
	calls     []settleCall
}

func (f *fakeMover) SettleSale(seller, buyer, treasury models.Address, buyerAmount, feeAmount *uint256.Int) error {
	if f.settleErr != nil {
		return f.settleErr
	}
	f.calls = append(f.calls, settleCall{seller, buyer, treasury, buyerAmount.Clone(), feeAmount.Clone()})
	return nil
}

func newMarket(t *testing.T) (*Marketplace, *fakeMover) {
	t.Helper()
	mover := &fakeMover{}
	m, err := New(treasury, mover)
	require.NoError(t, err)
	return m, mover
}

func listFixture(t *testing.T, m *Marketplace, amount, price uint64) *models.Listing {
	t.Helper()
	lst, err := m.CreateListing(seller, uint256.NewInt(amount), uint256.NewInt(price))
	require.NoError(t, err)
	return lst
}

func TestCreateListing(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		m, _ := newMarket(t)

		lst, err := m.CreateListing(seller, uint256.NewInt(100), uint256.NewInt(1000))

		assert.NoError(t, err)
		assert.Equal(t, uint64(1), lst.ID)
		assert.True(t, lst.Active)
		assert.Equal(t, uint64(1), m.ListingCount())
	})

	t.Run("Sequential IDs", func(t *testing.T) {
		m, _ := newMarket(t)

		first := listFixture(t, m, 100, 1000)
		second := listFixture(t, m, 200, 2000)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
	})

	t.Run("Zero Amount", func(t *testing.T) {
		m, _ := newMarket(t)

		_, err := m.CreateListing(seller, uint256.NewInt(0), uint256.NewInt(1000))

		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("Zero Price", func(t *testing.T) {
		m, _ := newMarket(t)

		_, err := m.CreateListing(seller, uint256.NewInt(100), nil)

		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("Null Seller", func(t *testing.T) {
		m, _ := newMarket(t)

		_, err := m.CreateListing(models.ZeroAddress, uint256.NewInt(100), uint256.NewInt(1000))

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestBuyNow(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 100, 1000)

		stl, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(1000))

		assert.NoError(t, err)
		assert.Equal(t, uint256.NewInt(95), stl.BuyerTokens)
		assert.Equal(t, uint256.NewInt(5), stl.FeeTokens)
		assert.Equal(t, uint256.NewInt(1000), stl.Payment)

		require.Len(t, mover.calls, 1)
		assert.Equal(t, seller, mover.calls[0].seller)
		assert.Equal(t, buyer, mover.calls[0].buyer)
		assert.Equal(t, treasury, mover.calls[0].treasury)
		assert.Equal(t, uint256.NewInt(95), mover.calls[0].buyerAmount)
		assert.Equal(t, uint256.NewInt(5), mover.calls[0].feeAmount)

		got, err := m.Listing(lst.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, uint256.NewInt(1000), m.PayoutBalance(seller))
	})

	t.Run("Fee Absorbs Rounding", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 101, 1000)

		stl, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(1000))

		assert.NoError(t, err)
		assert.Equal(t, uint256.NewInt(95), stl.BuyerTokens)
		assert.Equal(t, uint256.NewInt(6), stl.FeeTokens)
		require.Len(t, mover.calls, 1)
	})

	t.Run("Payment Mismatch", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 100, 1000)

		_, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(999))

		assert.ErrorIs(t, err, models.ErrPaymentMismatch)
		assert.Empty(t, mover.calls)
		got, lerr := m.Listing(lst.ID)
		require.NoError(t, lerr)
		assert.True(t, got.Active)
	})

	t.Run("Already Sold", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		_, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(1000))
		require.NoError(t, err)

		_, err = m.BuyNow(rival, lst.ID, uint256.NewInt(1000))

		assert.ErrorIs(t, err, models.ErrState)
	})

	t.Run("Unknown Listing", func(t *testing.T) {
		m, _ := newMarket(t)

		_, err := m.BuyNow(buyer, 42, uint256.NewInt(1000))

		assert.ErrorIs(t, err, models.ErrState)
	})

	t.Run("Settlement Failure Consumes Listing", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		mover.settleErr = models.ErrArithmetic

		_, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(1000))

		assert.ErrorIs(t, err, models.ErrArithmetic)
		got, lerr := m.Listing(lst.ID)
		require.NoError(t, lerr)
		assert.False(t, got.Active)
		assert.True(t, m.PayoutBalance(seller).IsZero())
	})
}

func TestMakeOffer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)

		off, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(100), uint256.NewInt(800), uint256.NewInt(800))

		assert.NoError(t, err)
		assert.Equal(t, uint64(1), off.ID)
		assert.True(t, off.Active)
		assert.Equal(t, uint256.NewInt(800), off.Escrow)
		assert.Equal(t, uint256.NewInt(800), m.EscrowHeld())
		assert.Equal(t, uint64(1), m.OfferCount())
	})

	t.Run("Payment Mismatch", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)

		_, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(100), uint256.NewInt(800), uint256.NewInt(750))

		assert.ErrorIs(t, err, models.ErrPaymentMismatch)
		assert.True(t, m.EscrowHeld().IsZero())
	})

	t.Run("Inactive Listing", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		_, err := m.BuyNow(buyer, lst.ID, uint256.NewInt(1000))
		require.NoError(t, err)

		_, err = m.MakeOffer(rival, lst.ID, uint256.NewInt(100), uint256.NewInt(800), uint256.NewInt(800))

		assert.ErrorIs(t, err, models.ErrState)
	})

	t.Run("Zero Amount", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)

		_, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(0), uint256.NewInt(800), uint256.NewInt(800))

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestAcceptOffer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		off, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)

		stl, err := m.AcceptOffer(seller, off.ID)

		assert.NoError(t, err)
		assert.Equal(t, uint256.NewInt(57), stl.BuyerTokens)
		assert.Equal(t, uint256.NewInt(3), stl.FeeTokens)
		assert.Equal(t, uint256.NewInt(700), stl.Payment)

		require.Len(t, mover.calls, 1)
		assert.Equal(t, uint256.NewInt(57), mover.calls[0].buyerAmount)
		assert.Equal(t, uint256.NewInt(3), mover.calls[0].feeAmount)

		gotLst, err := m.Listing(lst.ID)
		require.NoError(t, err)
		assert.False(t, gotLst.Active)
		gotOff, err := m.Offer(off.ID)
		require.NoError(t, err)
		assert.False(t, gotOff.Active)
		assert.True(t, m.EscrowHeld().IsZero())
		assert.Equal(t, uint256.NewInt(700), m.PayoutBalance(seller))
	})

	t.Run("Not The Seller", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		off, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)

		_, err = m.AcceptOffer(rival, off.ID)

		assert.ErrorIs(t, err, models.ErrUnauthorized)
		gotOff, oerr := m.Offer(off.ID)
		require.NoError(t, oerr)
		assert.True(t, gotOff.Active)
	})

	t.Run("Sold Listing Strands Offer", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		off, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)
		_, err = m.BuyNow(rival, lst.ID, uint256.NewInt(1000))
		require.NoError(t, err)

		_, err = m.AcceptOffer(seller, off.ID)

		assert.ErrorIs(t, err, models.ErrState)
		// The stranded offer keeps its escrow; no operation refunds it.
		gotOff, oerr := m.Offer(off.ID)
		require.NoError(t, oerr)
		assert.True(t, gotOff.Active)
		assert.Equal(t, uint256.NewInt(700), m.EscrowHeld())
	})

	t.Run("Acceptance Strands Remaining Offers", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		first, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)
		second, err := m.MakeOffer(rival, lst.ID, uint256.NewInt(80), uint256.NewInt(900), uint256.NewInt(900))
		require.NoError(t, err)

		_, err = m.AcceptOffer(seller, first.ID)
		require.NoError(t, err)

		gotSecond, err := m.Offer(second.ID)
		require.NoError(t, err)
		assert.True(t, gotSecond.Active)
		assert.Equal(t, uint256.NewInt(900), m.EscrowHeld())

		_, err = m.AcceptOffer(seller, second.ID)
		assert.ErrorIs(t, err, models.ErrState)
	})

	t.Run("Unknown Offer", func(t *testing.T) {
		m, _ := newMarket(t)

		_, err := m.AcceptOffer(seller, 7)

		assert.ErrorIs(t, err, models.ErrState)
	})

	t.Run("Settlement Failure Consumes Both", func(t *testing.T) {
		m, mover := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		off, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)
		mover.settleErr = models.ErrArithmetic

		_, err = m.AcceptOffer(seller, off.ID)

		assert.ErrorIs(t, err, models.ErrArithmetic)
		gotLst, lerr := m.Listing(lst.ID)
		require.NoError(t, lerr)
		assert.False(t, gotLst.Active)
		gotOff, oerr := m.Offer(off.ID)
		require.NoError(t, oerr)
		assert.False(t, gotOff.Active)
		assert.True(t, m.PayoutBalance(seller).IsZero())
	})
}

func TestSplitFee(t *testing.T) {
	cases := []struct {
		amount, buyer, fee uint64
	}{
		{100, 95, 5},
		{101, 95, 6},
		{20, 19, 1},
		{1, 0, 1},
	}
	for _, c := range cases {
		buyerTokens, feeTokens := splitFee(uint256.NewInt(c.amount))
		assert.Equal(t, uint256.NewInt(c.buyer), buyerTokens, "amount %d", c.amount)
		assert.Equal(t, uint256.NewInt(c.fee), feeTokens, "amount %d", c.amount)
		total := new(uint256.Int).Add(buyerTokens, feeTokens)
		assert.Equal(t, uint256.NewInt(c.amount), total)
	}
}

func TestAudit(t *testing.T) {
	t.Run("Clean Marketplace", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		_, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)

		assert.Empty(t, m.Audit())
	})

	t.Run("Reports Dangling Offer", func(t *testing.T) {
		m, _ := newMarket(t)
		lst := listFixture(t, m, 100, 1000)
		_, err := m.MakeOffer(buyer, lst.ID, uint256.NewInt(60), uint256.NewInt(700), uint256.NewInt(700))
		require.NoError(t, err)

		delete(m.listings, lst.ID)

		assert.Len(t, m.Audit(), 1)
	})
}
