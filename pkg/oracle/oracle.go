// Package oracle provides read-only USD price sources for reward token
// valuation. The ledger only ever reads prices; it never writes them.
package oracle

import (
	"context"
	"time"

	"github.com/wattbase/wattledger/pkg/models"
)

// PriceSource yields the latest token USD price.
type PriceSource interface {
	LatestPrice(ctx context.Context) (models.PriceQuote, error)
}

// Static serves a fixed quote, for deployments priced by configuration and
// for tests. A non-positive price is passed through unchanged; consumers
// decide what an invalid quote means for them.
type Static struct {
	price    int64
	decimals uint8
}

// NewStatic creates a source always quoting the given price.
func NewStatic(price int64, decimals uint8) *Static {
	return &Static{price: price, decimals: decimals}
}

var _ PriceSource = (*Static)(nil)

func (s *Static) LatestPrice(_ context.Context) (models.PriceQuote, error) {
	return models.PriceQuote{
		Price:     s.price,
		Decimals:  s.decimals,
		Timestamp: time.Now().UTC(),
	}, nil
}
