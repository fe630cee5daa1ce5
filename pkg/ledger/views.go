package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// WalletSummary joins a wallet's accrual counters with its token balance
// and the native currency released to it by settled sales.
type WalletSummary struct {
	models.WalletTotals
	TokenBalance *uint256.Int
	Payout       *uint256.Int
}

// Wallet returns the wallet's combined view. A wallet the ledger has never
// seen reports zeros everywhere.
func (l *Ledger) Wallet(addr models.Address) WalletSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return WalletSummary{
		WalletTotals: l.accrual.WalletTotals(addr),
		TokenBalance: l.tokens.BalanceOf(addr),
		Payout:       l.market.PayoutBalance(addr),
	}
}

// OffsetValueUSD values the wallet's verified production in USD, scaled by
// the token's decimals. The whole-token count derives from lifetime
// verified energy, not from the wallet's current token balance, so tokens
// sold or transferred away still count toward the producer's offset value.
// The value is zero when no whole token's worth of energy has accrued or
// the oracle has no valid price.
func (l *Ledger) OffsetValueUSD(ctx context.Context, addr models.Address) (*uint256.Int, models.PriceQuote, error) {
	l.mu.RLock()
	totals := l.accrual.WalletTotals(addr)
	decimals := l.tokens.Decimals()
	threshold := l.cfg.EnergyPerTokenMilli
	l.mu.RUnlock()

	// The oracle round-trip stays outside the ledger lock.
	quote, err := l.prices.LatestPrice(ctx)
	if err != nil {
		return nil, models.PriceQuote{}, fmt.Errorf("reading oracle price: %w", err)
	}

	wholeTokens := totals.TotalEnergyMilli / threshold
	if wholeTokens == 0 || !quote.Valid() {
		return new(uint256.Int), quote, nil
	}

	value := new(uint256.Int).Mul(uint256.NewInt(wholeTokens), pow10(uint64(decimals)))
	value.Mul(value, uint256.NewInt(uint64(quote.Price)))
	value.Div(value, pow10(uint64(quote.Decimals)))
	return value, quote, nil
}

func pow10(n uint64) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(n))
}
