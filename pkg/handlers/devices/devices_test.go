package devices_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/handlers/devices"
	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/models"
	"github.com/wattbase/wattledger/pkg/oracle"
)

var (
	admin   = models.Address("0x00000000000000000000000000000000000000a1")
	backend = models.Address("0x00000000000000000000000000000000000000a2")
	owner   = models.Address("0x00000000000000000000000000000000000000b1")

	deviceA = models.DeviceID("0x" + strings.Repeat("aa", 32))
)

func newRouter(t *testing.T) (*ledger.Ledger, http.Handler) {
	t.Helper()
	eng, err := ledger.New(ledger.Config{
		Admin:               admin,
		Backend:             backend,
		Treasury:            models.Address("0x00000000000000000000000000000000000000a3"),
		TokenDecimals:       18,
		EnergyPerTokenMilli: 2500,
		GridIntensityMicro:  400000,
	}, oracle.NewStatic(0, 8), journal.NewMemory(64), nil)
	require.NoError(t, err)

	h := devices.NewDevicesHandler(eng)
	r := chi.NewRouter()
	r.Post("/v1/devices", h.RegisterDevice)
	r.Get("/v1/devices/{deviceId}", h.GetDeviceById)
	r.Post("/v1/devices/{deviceId}/deactivate", h.DeactivateDevice)
	r.Post("/v1/readings", h.CreateReading)
	return eng, r
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

func registerDevice(t *testing.T, router http.Handler) {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
		DeviceID: deviceA.String(),
		Wallet:   owner.String(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestRegisterDevice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		_, router := newRouter(t)

		rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   owner.String(),
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var dev api.Device
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dev))
		assert.Equal(t, deviceA.String(), dev.DeviceID)
		assert.Equal(t, owner.String(), dev.Wallet)
		assert.True(t, dev.Active)
	})

	t.Run("Missing Caller Header", func(t *testing.T) {
		_, router := newRouter(t)

		rr := do(t, router, http.MethodPost, "/v1/devices", "", api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   owner.String(),
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Not The Admin", func(t *testing.T) {
		_, router := newRouter(t)

		rr := do(t, router, http.MethodPost, "/v1/devices", owner, api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   owner.String(),
		})

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Malformed Wallet", func(t *testing.T) {
		_, router := newRouter(t)

		rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   "0x123",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Duplicate Device", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodPost, "/v1/devices", admin, api.RegisterDeviceRequest{
			DeviceID: deviceA.String(),
			Wallet:   owner.String(),
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestGetDeviceById(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodGet, "/v1/devices/"+deviceA.String(), "", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Unknown Device", func(t *testing.T) {
		_, router := newRouter(t)

		rr := do(t, router, http.MethodGet, "/v1/devices/0x"+strings.Repeat("bb", 32), "", nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeactivateDevice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodPost, "/v1/devices/"+deviceA.String()+"/deactivate", admin, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var dev api.Device
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dev))
		assert.False(t, dev.Active)
	})

	t.Run("Already Inactive", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)
		do(t, router, http.MethodPost, "/v1/devices/"+deviceA.String()+"/deactivate", admin, nil)

		rr := do(t, router, http.MethodPost, "/v1/devices/"+deviceA.String()+"/deactivate", admin, nil)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestCreateReading(t *testing.T) {
	t.Run("Success Mints Reward", func(t *testing.T) {
		eng, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodPost, "/v1/readings", backend, api.NewReading{
			DeviceID:    deviceA.String(),
			EnergyMilli: 5000,
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var res api.ReadingResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "2000000000000000000", res.MintedTokens)
		assert.Equal(t, "2000000000000000000", eng.BalanceOf(owner).Dec())
	})

	t.Run("Below Threshold Mints Nothing", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodPost, "/v1/readings", backend, api.NewReading{
			DeviceID:    deviceA.String(),
			EnergyMilli: 100,
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var res api.ReadingResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "0", res.MintedTokens)
	})

	t.Run("Not The Backend", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)

		rr := do(t, router, http.MethodPost, "/v1/readings", owner, api.NewReading{
			DeviceID:    deviceA.String(),
			EnergyMilli: 5000,
		})

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Inactive Device", func(t *testing.T) {
		_, router := newRouter(t)
		registerDevice(t, router)
		do(t, router, http.MethodPost, "/v1/devices/"+deviceA.String()+"/deactivate", admin, nil)

		rr := do(t, router, http.MethodPost, "/v1/readings", backend, api.NewReading{
			DeviceID:    deviceA.String(),
			EnergyMilli: 5000,
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
