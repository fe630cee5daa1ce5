// Package ledger composes the token ledger, the accrual ledger, and the
// marketplace behind a single serialization point, enforces the caller
// authorities, and journals every committed operation.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/accrual"
	"github.com/wattbase/wattledger/pkg/escrow"
	"github.com/wattbase/wattledger/pkg/journal"
	"github.com/wattbase/wattledger/pkg/metrics"
	"github.com/wattbase/wattledger/pkg/models"
	"github.com/wattbase/wattledger/pkg/oracle"
	"github.com/wattbase/wattledger/pkg/token"
)

// AccrualAuthority is the identity the accrual engine presents to the
// token ledger when minting rewards. Reassigning issuance away from it
// stops reading-driven minting until issuance is assigned back.
const AccrualAuthority = models.Address("0x000000000000000000000000000000000000ac01")

// MarketplaceSpender is the spender identity sellers approve so the
// marketplace can settle their listings.
const MarketplaceSpender = models.Address("0x000000000000000000000000000000000000e5c1")

// maxTokenDecimals keeps mint amounts representable in 256 bits for any
// uint64 whole-token count.
const maxTokenDecimals = 18

// Config fixes the engine's authorities and economic constants.
type Config struct {
	// Admin registers and deactivates devices and reassigns issuance.
	Admin models.Address
	// Backend is the verification pipeline identity allowed to submit
	// readings.
	Backend models.Address
	// Treasury receives the token fee of every settlement.
	Treasury models.Address

	TokenDecimals       uint8
	EnergyPerTokenMilli uint64
	GridIntensityMicro  uint64
}

// Ledger is the engine. All state lives in memory behind one lock: writes
// are exclusive, read-only views are shared, and every operation is
// all-or-nothing inside its critical section.
type Ledger struct {
	mu  sync.RWMutex
	cfg Config

	tokens  *token.Ledger
	accrual *accrual.Ledger
	market  *escrow.Marketplace
	prices  oracle.PriceSource
	journal journal.Recorder
	log     *slog.Logger
}

// New wires the engine from validated configuration.
func New(cfg Config, prices oracle.PriceSource, recorder journal.Recorder, log *slog.Logger) (*Ledger, error) {
	if cfg.Backend.IsZero() {
		return nil, fmt.Errorf("%w: backend authority is null", models.ErrValidation)
	}
	if cfg.TokenDecimals > maxTokenDecimals {
		return nil, fmt.Errorf("%w: token decimals %d exceed %d", models.ErrValidation, cfg.TokenDecimals, maxTokenDecimals)
	}
	if prices == nil {
		return nil, fmt.Errorf("%w: price source is missing", models.ErrValidation)
	}
	if recorder == nil {
		return nil, fmt.Errorf("%w: journal recorder is missing", models.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	tokens, err := token.New(cfg.Admin, AccrualAuthority, cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}
	book, err := accrual.New(accrual.Params{
		EnergyPerTokenMilli: cfg.EnergyPerTokenMilli,
		GridIntensityMicro:  cfg.GridIntensityMicro,
	}, minterAdapter{tokens})
	if err != nil {
		return nil, err
	}
	market, err := escrow.New(cfg.Treasury, moverAdapter{tokens})
	if err != nil {
		return nil, err
	}

	return &Ledger{
		cfg:     cfg,
		tokens:  tokens,
		accrual: book,
		market:  market,
		prices:  prices,
		journal: recorder,
		log:     log,
	}, nil
}

// minterAdapter lets the accrual ledger mint as the accrual authority.
type minterAdapter struct {
	tokens *token.Ledger
}

// Make sure we conform to the interface
var _ accrual.Minter = minterAdapter{}

func (a minterAdapter) Mint(to models.Address, amount *uint256.Int) error {
	return a.tokens.Mint(AccrualAuthority, to, amount)
}

func (a minterAdapter) Decimals() uint8 {
	return a.tokens.Decimals()
}

// moverAdapter binds the marketplace spender identity to the token ledger.
type moverAdapter struct {
	tokens *token.Ledger
}

// Make sure we conform to the interface
var _ escrow.TokenMover = moverAdapter{}

func (a moverAdapter) SettleSale(seller, buyer, treasury models.Address, buyerAmount, feeAmount *uint256.Int) error {
	return a.tokens.SettleSale(MarketplaceSpender, seller, buyer, treasury, buyerAmount, feeAmount)
}

func (l *Ledger) requireAdmin(caller models.Address) error {
	if caller != l.cfg.Admin {
		return fmt.Errorf("%w: %s is not the administrative authority", models.ErrUnauthorized, caller)
	}
	return nil
}

func (l *Ledger) requireBackend(caller models.Address) error {
	if caller != l.cfg.Backend {
		return fmt.Errorf("%w: %s is not the verification backend", models.ErrUnauthorized, caller)
	}
	return nil
}

// record appends entries to the audit journal after the operation has
// committed. Failures are logged, never propagated: the journal mirrors
// the ledger, it does not gate it.
func (l *Ledger) record(ctx context.Context, entries ...models.JournalEntry) {
	now := time.Now().UTC()
	for i := range entries {
		entries[i].EntryID = uuid.New().String()
		entries[i].Timestamp = now
	}
	if err := l.journal.Record(ctx, entries...); err != nil {
		metrics.RecordJournalFailure()
		l.log.Error("CRITICAL: ledger state committed but journal write failed",
			"error", err, "entries", len(entries))
	}
}

// Events returns the most recent journal entries, newest first.
func (l *Ledger) Events(ctx context.Context, limit int32) ([]models.JournalEntry, error) {
	return l.journal.ListRecent(ctx, limit)
}
