// Package devices serves the device registry and reading submission
// endpoints.
package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/mapping"
	"github.com/wattbase/wattledger/pkg/metrics"
	"github.com/wattbase/wattledger/pkg/models"
)

// Service is the slice of the ledger engine these handlers depend on.
type Service interface {
	RegisterDevice(ctx context.Context, caller models.Address, id models.DeviceID, wallet models.Address) (*models.Device, error)
	DeactivateDevice(ctx context.Context, caller models.Address, id models.DeviceID) (*models.Device, error)
	RecordVerifiedReading(ctx context.Context, caller models.Address, id models.DeviceID, energyMilli uint64) (*uint256.Int, error)
	Device(id models.DeviceID) (*models.Device, error)
}

// DevicesHandler holds the dependencies for device-related handlers.
type DevicesHandler struct {
	Ledger Service
}

// NewDevicesHandler creates a new DevicesHandler.
func NewDevicesHandler(svc Service) *DevicesHandler {
	return &DevicesHandler{Ledger: svc}
}

// RegisterDevice handles the logic for registering a generation device.
func (h *DevicesHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	id, err := models.ParseDeviceID(req.DeviceID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	wallet, err := models.ParseAddress(req.Wallet)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	dev, err := h.Ledger.RegisterDevice(r.Context(), caller, id, wallet)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, mapping.ToApiDevice(dev))
}

// GetDeviceById handles the logic for retrieving a device by its identifier.
func (h *DevicesHandler) GetDeviceById(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseDeviceID(chi.URLParam(r, "deviceId"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	dev, err := h.Ledger.Device(id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiDevice(dev))
}

// DeactivateDevice handles the logic for permanently deactivating a device.
func (h *DevicesHandler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	id, err := models.ParseDeviceID(chi.URLParam(r, "deviceId"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	dev, err := h.Ledger.DeactivateDevice(r.Context(), caller, id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, mapping.ToApiDevice(dev))
}

// CreateReading handles the logic for applying a verified production
// reading to the ledger.
func (h *DevicesHandler) CreateReading(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.NewReading
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	id, err := models.ParseDeviceID(req.DeviceID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	minted, err := h.Ledger.RecordVerifiedReading(r.Context(), caller, id, req.EnergyMilli)
	metrics.RecordReading(err, minted != nil && !minted.IsZero())
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.ReadingResult{
		DeviceID:     id.String(),
		EnergyMilli:  req.EnergyMilli,
		MintedTokens: mapping.FormatAmount(minted),
	})
}
