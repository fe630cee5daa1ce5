// Package accrual tracks verified energy production per device and wallet
// and converts accumulated energy into minted reward tokens.
package accrual

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// MilliPerUnit converts milli-units of energy to whole units.
const MilliPerUnit = 1000

// Minter is the slice of the token ledger the accrual ledger depends on:
// the issuance path and the token's decimal scale.
type Minter interface {
	Mint(to models.Address, amount *uint256.Int) error
	Decimals() uint8
}

// Params fixes the accrual constants for the life of the ledger.
type Params struct {
	// EnergyPerTokenMilli is the mint threshold: verified energy, in
	// milli-units, that earns one whole token.
	EnergyPerTokenMilli uint64
	// GridIntensityMicro is the avoided-CO2 factor: micro-units of CO2 per
	// whole unit of verified energy.
	GridIntensityMicro uint64
}

// Ledger holds the device registry and per-wallet accrual counters. It is
// not safe for concurrent use on its own; the owning engine serializes
// every call.
type Ledger struct {
	params  Params
	minter  Minter
	devices map[models.DeviceID]*models.Device
	wallets map[models.Address]*models.WalletTotals
}

// New creates an empty accrual ledger minting through the given minter.
func New(params Params, minter Minter) (*Ledger, error) {
	if params.EnergyPerTokenMilli == 0 {
		return nil, fmt.Errorf("%w: energy per token is zero", models.ErrValidation)
	}
	if minter == nil {
		return nil, fmt.Errorf("%w: minter is missing", models.ErrValidation)
	}
	return &Ledger{
		params:  params,
		minter:  minter,
		devices: make(map[models.DeviceID]*models.Device),
		wallets: make(map[models.Address]*models.WalletTotals),
	}, nil
}

// RegisterDevice adds a generation device owned by the given wallet. A
// device id registers at most once, ever.
func (l *Ledger) RegisterDevice(id models.DeviceID, wallet models.Address) (*models.Device, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: device id is empty", models.ErrValidation)
	}
	if wallet.IsZero() {
		return nil, fmt.Errorf("%w: owner wallet is null", models.ErrValidation)
	}
	if _, exists := l.devices[id]; exists {
		return nil, fmt.Errorf("%w: device %s already registered", models.ErrState, id)
	}
	dev := &models.Device{
		ID:           id,
		Wallet:       wallet,
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}
	l.devices[id] = dev
	return cloneDevice(dev), nil
}

// DeactivateDevice retires a device. Deactivation is one-way.
func (l *Ledger) DeactivateDevice(id models.DeviceID) (*models.Device, error) {
	dev, ok := l.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown device %s", models.ErrState, id)
	}
	if !dev.Active {
		return nil, fmt.Errorf("%w: device %s already inactive", models.ErrState, id)
	}
	dev.Active = false
	return cloneDevice(dev), nil
}

// RecordReading applies a verified energy reading, in milli-units, to the
// device's owner wallet: lifetime totals and avoided impact grow, the
// carry-forward accumulates, and every full mint threshold crossed issues
// one whole token. It returns the minted amount in base units (zero when
// the threshold was not crossed). A mint failure aborts the whole reading.
func (l *Ledger) RecordReading(id models.DeviceID, energyMilli uint64) (*uint256.Int, error) {
	dev, ok := l.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown device %s", models.ErrState, id)
	}
	if !dev.Active {
		return nil, fmt.Errorf("%w: device %s is inactive", models.ErrState, id)
	}
	if energyMilli == 0 {
		return nil, fmt.Errorf("%w: energy reading is zero", models.ErrValidation)
	}

	w := l.wallets[dev.Wallet]
	if w == nil {
		w = &models.WalletTotals{Wallet: dev.Wallet}
	}

	// 1. Work out every new counter before touching any state.
	newTotal := new(uint256.Int).AddUint64(uint256.NewInt(w.TotalEnergyMilli), energyMilli)
	if !newTotal.IsUint64() {
		return nil, fmt.Errorf("%w: lifetime energy overflow for %s", models.ErrArithmetic, dev.Wallet)
	}

	impactDelta := new(uint256.Int).Mul(uint256.NewInt(energyMilli), uint256.NewInt(l.params.GridIntensityMicro))
	impactDelta.Div(impactDelta, uint256.NewInt(MilliPerUnit))
	newImpact := new(uint256.Int).Add(uint256.NewInt(w.ImpactMicro), impactDelta)
	if !newImpact.IsUint64() {
		return nil, fmt.Errorf("%w: impact overflow for %s", models.ErrArithmetic, dev.Wallet)
	}

	pending := w.PendingEnergyMilli + energyMilli
	tokensToMint := pending / l.params.EnergyPerTokenMilli
	pending %= l.params.EnergyPerTokenMilli

	minted := new(uint256.Int)
	if tokensToMint > 0 {
		scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(l.minter.Decimals())))
		minted.Mul(uint256.NewInt(tokensToMint), scale)
	}

	// 2. Issue the reward first: the mint is all-or-nothing inside the
	// token ledger, and the accrual commit below cannot fail after it.
	if !minted.IsZero() {
		if err := l.minter.Mint(dev.Wallet, minted); err != nil {
			return nil, fmt.Errorf("minting reward for %s: %w", dev.Wallet, err)
		}
	}

	// 3. Commit the accrual counters.
	w.TotalEnergyMilli = newTotal.Uint64()
	w.ImpactMicro = newImpact.Uint64()
	w.PendingEnergyMilli = pending
	w.MintedTokens += tokensToMint
	l.wallets[dev.Wallet] = w
	return minted, nil
}

// Device returns a copy of the device record.
func (l *Ledger) Device(id models.DeviceID) (*models.Device, error) {
	dev, ok := l.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown device %s", models.ErrState, id)
	}
	return cloneDevice(dev), nil
}

// WalletTotals returns a copy of the wallet's accrual counters. A wallet
// that never accrued reports all zeros.
func (l *Ledger) WalletTotals(wallet models.Address) models.WalletTotals {
	if w, ok := l.wallets[wallet]; ok {
		return *w
	}
	return models.WalletTotals{Wallet: wallet}
}

// Params returns the accrual constants.
func (l *Ledger) Params() Params {
	return l.params
}

// Audit re-derives the carry-forward invariants for every wallet and
// returns a description of each violation found.
func (l *Ledger) Audit() []string {
	var violations []string
	for addr, w := range l.wallets {
		if w.PendingEnergyMilli >= l.params.EnergyPerTokenMilli {
			violations = append(violations,
				fmt.Sprintf("wallet %s: pending energy %d reached the mint threshold %d",
					addr, w.PendingEnergyMilli, l.params.EnergyPerTokenMilli))
		}
		if w.MintedTokens*l.params.EnergyPerTokenMilli+w.PendingEnergyMilli != w.TotalEnergyMilli {
			violations = append(violations,
				fmt.Sprintf("wallet %s: minted %d and pending %d do not account for lifetime energy %d",
					addr, w.MintedTokens, w.PendingEnergyMilli, w.TotalEnergyMilli))
		}
	}
	return violations
}

func cloneDevice(d *models.Device) *models.Device {
	c := *d
	return &c
}
