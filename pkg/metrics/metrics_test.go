package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/v1/devices", "/v1/devices"},
		{"/v1/devices/0xabc", "/v1/devices/:id"},
		{"/v1/wallets/0xabc", "/v1/wallets/:addr"},
		{"/v1/wallets/0xabc/value", "/v1/wallets/:addr/value"},
		{"/v1/market/listings", "/v1/market/listings"},
		{"/v1/market/listings/42", "/v1/market/listings/:id"},
		{"/v1/market/listings/42/buy", "/v1/market/listings/:id/buy"},
		{"/v1/market/offers/7", "/v1/market/offers/:id"},
		{"/v1/token/transfer", "/v1/token/transfer"},
		{"/v1/ledger/events", "/v1/ledger/events"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, canonicalPath(tc.raw), tc.raw)
	}
}

func TestInstrumentHandler(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/devices/0xabc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)

	families, err := Registry.Gather()
	assert.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "wattledger_http_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}
