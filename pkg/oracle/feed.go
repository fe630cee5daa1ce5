package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wattbase/wattledger/pkg/models"
)

// feedResponse is the wire shape of the upstream price endpoint.
type feedResponse struct {
	Price    int64 `json:"price"`
	Decimals uint8 `json:"decimals"`
}

// Feed reads quotes from an external JSON price endpoint of the form
// {"price": 123450000, "decimals": 8}. Successful responses are cached for
// the freshness window; when the upstream is down the last good quote is
// served until a refresh succeeds.
type Feed struct {
	url    string
	client *http.Client
	maxAge time.Duration
	log    *slog.Logger

	mu       sync.Mutex
	cached   models.PriceQuote
	hasQuote bool
}

// NewFeed creates a feed polling the given endpoint.
func NewFeed(url string, maxAge time.Duration, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		maxAge: maxAge,
		log:    log,
	}
}

var _ PriceSource = (*Feed)(nil)

// LatestPrice returns the cached quote while it is fresh and refreshes it
// otherwise. A refresh failure falls back to the last good quote; the call
// fails only when no quote was ever fetched.
func (f *Feed) LatestPrice(ctx context.Context) (models.PriceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hasQuote && time.Since(f.cached.Timestamp) < f.maxAge {
		return f.cached, nil
	}

	quote, err := f.fetch(ctx)
	if err != nil {
		if f.hasQuote {
			f.log.Warn("price feed refresh failed, serving last quote",
				"url", f.url, "error", err, "quote_age", time.Since(f.cached.Timestamp).String())
			return f.cached, nil
		}
		return models.PriceQuote{}, fmt.Errorf("fetching price quote: %w", err)
	}
	f.cached = quote
	f.hasQuote = true
	return quote, nil
}

func (f *Feed) fetch(ctx context.Context) (models.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return models.PriceQuote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.PriceQuote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PriceQuote{}, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.PriceQuote{}, fmt.Errorf("decoding price response: %w", err)
	}
	return models.PriceQuote{
		Price:     body.Price,
		Decimals:  body.Decimals,
		Timestamp: time.Now().UTC(),
	}, nil
}
