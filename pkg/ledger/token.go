package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// TokenInfo describes the reward token.
type TokenInfo struct {
	Decimals    uint8
	Issuer      models.Address
	TotalSupply *uint256.Int
}

// Mint issues tokens directly. The token ledger rejects any caller other
// than the current issuance authority.
func (l *Ledger) Mint(ctx context.Context, caller, to models.Address, amount *uint256.Int) error {
	l.mu.Lock()
	err := l.tokens.Mint(caller, to, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindIssuance,
		Actor:  caller.String(),
		To:     to.String(),
		Amount: amount.Dec(),
	})
	return nil
}

// Transfer moves the caller's tokens to another wallet.
func (l *Ledger) Transfer(ctx context.Context, caller, to models.Address, amount *uint256.Int) error {
	l.mu.Lock()
	err := l.tokens.Transfer(caller, to, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindTransfer,
		From:   caller.String(),
		To:     to.String(),
		Amount: amount.Dec(),
	})
	return nil
}

// Approve sets the spender's allowance over the caller's balance.
func (l *Ledger) Approve(ctx context.Context, caller, spender models.Address, amount *uint256.Int) error {
	l.mu.Lock()
	err := l.tokens.Approve(caller, spender, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindApproval,
		From:   caller.String(),
		To:     spender.String(),
		Amount: amount.Dec(),
	})
	return nil
}

// TransferFrom moves tokens from a holder using the caller's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to models.Address, amount *uint256.Int) error {
	l.mu.Lock()
	err := l.tokens.TransferFrom(caller, from, to, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.record(ctx, models.JournalEntry{
		Kind:   models.KindTransfer,
		Actor:  caller.String(),
		From:   from.String(),
		To:     to.String(),
		Amount: amount.Dec(),
	})
	return nil
}

// SetIssuer reassigns the issuance authority. Only the administrative
// authority may call it.
func (l *Ledger) SetIssuer(ctx context.Context, caller, next models.Address) error {
	l.mu.Lock()
	err := l.tokens.SetIssuer(caller, next)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.record(ctx, models.JournalEntry{
		Kind:  models.KindIssuerChange,
		Actor: caller.String(),
		To:    next.String(),
	})
	return nil
}

// BalanceOf returns the wallet's token balance.
func (l *Ledger) BalanceOf(addr models.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens.BalanceOf(addr)
}

// Allowance returns the spender's remaining allowance from owner.
func (l *Ledger) Allowance(owner, spender models.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens.Allowance(owner, spender)
}

// Token describes the reward token's current shape.
func (l *Ledger) Token() TokenInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return TokenInfo{
		Decimals:    l.tokens.Decimals(),
		Issuer:      l.tokens.Issuer(),
		TotalSupply: l.tokens.TotalSupply(),
	}
}
