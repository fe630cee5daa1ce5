package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/handlers"
	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/models"
	"github.com/wattbase/wattledger/pkg/oracle"
	"github.com/wattbase/wattledger/pkg/websockets"
)

var (
	admin    = models.Address("0x00000000000000000000000000000000000000a1")
	backend  = models.Address("0x00000000000000000000000000000000000000a2")
	treasury = models.Address("0x00000000000000000000000000000000000000a3")
	seller   = models.Address("0x00000000000000000000000000000000000000b1")
	buyer    = models.Address("0x00000000000000000000000000000000000000b2")

	deviceA = models.DeviceID("0x" + strings.Repeat("aa", 32))
)

func newServer(t *testing.T) (http.Handler, *websockets.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := websockets.NewHub(logger)
	eng, err := ledger.New(ledger.Config{
		Admin:               admin,
		Backend:             backend,
		Treasury:            treasury,
		TokenDecimals:       18,
		EnergyPerTokenMilli: 2500,
		GridIntensityMicro:  400000,
	}, oracle.NewStatic(200000000, 8), websockets.NewRecorder(journal.NewMemory(256), hub), logger)
	require.NoError(t, err)

	return handlers.NewRouter(eng, hub, logger), hub
}

func do(t *testing.T, router http.Handler, method, path string, caller models.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(api.CallerHeader, caller.String())
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// TestSettlementStory drives the whole produce-and-trade flow through the
// public API.
func TestSettlementStory(t *testing.T) {
	router, _ := newServer(t)

	// The admin registers the seller's device.
	rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
		DeviceID: deviceA.String(),
		Wallet:   seller.String(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	// The verification backend submits 5000 mWh; two tokens are minted.
	rr = do(t, router, http.MethodPost, "/v1/readings", backend, api.NewReading{
		DeviceID:    deviceA.String(),
		EnergyMilli: 5000,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var reading api.ReadingResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&reading))
	require.Equal(t, "2000000000000000000", reading.MintedTokens)

	// The seller approves the marketplace and lists one token.
	rr = do(t, router, http.MethodPost, "/v1/token/approve", seller, api.ApproveRequest{
		Spender: ledger.MarketplaceSpender.String(),
		Amount:  "1000000000000000000",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodPost, "/v1/market/listings", seller, api.NewListing{
		Amount: "1000000000000000000",
		Price:  "500",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var lst api.Listing
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&lst))

	// The marketplace shows the listing.
	rr = do(t, router, http.MethodGet, "/v1/market/listings", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var open []api.Listing
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&open))
	require.Len(t, open, 1)

	// The buyer purchases it at the asking price.
	rr = do(t, router, http.MethodPost, "/v1/market/listings/1/buy", buyer, api.BuyRequest{
		Payment: "500",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var stl api.Settlement
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stl))
	assert.Equal(t, "950000000000000000", stl.BuyerTokens)
	assert.Equal(t, "50000000000000000", stl.FeeTokens)

	// Balances, payout, and valuation reflect the settlement.
	rr = do(t, router, http.MethodGet, "/v1/token/balances/"+buyer.String(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var bal api.Balance
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&bal))
	assert.Equal(t, "950000000000000000", bal.Balance)

	rr = do(t, router, http.MethodGet, "/v1/market/payouts/"+seller.String(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var payout api.Payout
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payout))
	assert.Equal(t, "500", payout.Amount)

	rr = do(t, router, http.MethodGet, "/v1/wallets/"+seller.String()+"/value", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var value api.OffsetValue
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&value))
	// The sale does not reduce the seller's verified-production value.
	assert.Equal(t, "4000000000000000000", value.ValueUSD)

	// The journal recorded the whole story.
	rr = do(t, router, http.MethodGet, "/v1/ledger/events?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var events []api.Event
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&events))
	require.NotEmpty(t, events)
	assert.Equal(t, string(models.KindSale), events[0].Kind)
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newServer(t)

	t.Run("Healthz", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "wattledger_")
	})

	t.Run("Audit", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/v1/ledger/audit", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var report api.AuditReport
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
		assert.True(t, report.Clean)
		assert.Empty(t, report.Violations)
	})
}

func TestErrorStatuses(t *testing.T) {
	router, _ := newServer(t)

	t.Run("Unknown Route", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/v1/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Forbidden Without Authority", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/v1/devices", buyer, api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   seller.String(),
		})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/token/transfer", strings.NewReader("{"))
		req.Header.Set(api.CallerHeader, seller.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

// TestJournalStream subscribes a websocket client and watches a committed
// operation arrive over the live feed.
func TestJournalStream(t *testing.T) {
	router, hub := newServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ledger/stream", nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
		DeviceID: deviceA.String(),
		Wallet:   seller.String(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string    `json:"type"`
		Payload api.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "journalEntry", msg.Type)
	assert.Equal(t, string(models.KindDeviceRegistered), msg.Payload.Kind)
	assert.Equal(t, deviceA.String(), msg.Payload.Device)
}
