package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// RegisterDevice adds a generation device for the given owner wallet. Only
// the administrative authority may register devices.
func (l *Ledger) RegisterDevice(ctx context.Context, caller models.Address, id models.DeviceID, wallet models.Address) (*models.Device, error) {
	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	l.mu.Lock()
	dev, err := l.accrual.RegisterDevice(id, wallet)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindDeviceRegistered,
		Actor:  caller.String(),
		Device: id.String(),
		To:     wallet.String(),
	})
	return dev, nil
}

// DeactivateDevice retires a device. Only the administrative authority may
// deactivate, and deactivation is one-way.
func (l *Ledger) DeactivateDevice(ctx context.Context, caller models.Address, id models.DeviceID) (*models.Device, error) {
	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	l.mu.Lock()
	dev, err := l.accrual.DeactivateDevice(id)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindDeviceDeactivated,
		Actor:  caller.String(),
		Device: id.String(),
	})
	return dev, nil
}

// RecordVerifiedReading applies a verified energy reading from the
// verification backend to the device's owner wallet. Accrual counters and
// any reward mint commit as one unit; the minted base units are returned.
func (l *Ledger) RecordVerifiedReading(ctx context.Context, caller models.Address, id models.DeviceID, energyMilli uint64) (*uint256.Int, error) {
	if err := l.requireBackend(caller); err != nil {
		return nil, err
	}
	l.mu.Lock()
	minted, err := l.accrual.RecordReading(id, energyMilli)
	var wallet models.Address
	if err == nil {
		if dev, derr := l.accrual.Device(id); derr == nil {
			wallet = dev.Wallet
		}
	}
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries := []models.JournalEntry{{
		Kind:        models.KindReading,
		Actor:       caller.String(),
		Device:      id.String(),
		To:          wallet.String(),
		EnergyMilli: energyMilli,
	}}
	if !minted.IsZero() {
		entries = append(entries, models.JournalEntry{
			Kind:   models.KindIssuance,
			Actor:  AccrualAuthority.String(),
			Device: id.String(),
			To:     wallet.String(),
			Amount: minted.Dec(),
			Note:   "energy reward",
		})
	}
	l.record(ctx, entries...)
	return minted, nil
}

// Device returns the device record.
func (l *Ledger) Device(id models.DeviceID) (*models.Device, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accrual.Device(id)
}
