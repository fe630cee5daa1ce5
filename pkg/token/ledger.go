// Package token implements the fungible reward token ledger: balances,
// allowances, and issuance restricted to a single authority.
package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/models"
)

// Ledger holds the token state. It is not safe for concurrent use on its
// own; the owning engine serializes every call.
type Ledger struct {
	decimals uint8
	admin    models.Address
	issuer   models.Address
	supply   *uint256.Int

	balances   map[models.Address]*uint256.Int
	allowances map[models.Address]map[models.Address]*uint256.Int
}

// New creates an empty ledger. The admin authority is fixed for the life of
// the ledger; the issuance authority starts as issuer and may be reassigned
// by the admin.
func New(admin, issuer models.Address, decimals uint8) (*Ledger, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("%w: admin authority is null", models.ErrValidation)
	}
	if issuer.IsZero() {
		return nil, fmt.Errorf("%w: issuance authority is null", models.ErrValidation)
	}
	return &Ledger{
		decimals:   decimals,
		admin:      admin,
		issuer:     issuer,
		supply:     new(uint256.Int),
		balances:   make(map[models.Address]*uint256.Int),
		allowances: make(map[models.Address]map[models.Address]*uint256.Int),
	}, nil
}

// Mint credits newly issued tokens to a wallet and grows the total supply.
// Only the current issuance authority may mint.
func (l *Ledger) Mint(caller, to models.Address, amount *uint256.Int) error {
	if caller != l.issuer {
		return fmt.Errorf("%w: %s is not the issuance authority", models.ErrUnauthorized, caller)
	}
	if to.IsZero() {
		return fmt.Errorf("%w: mint to the null address", models.ErrValidation)
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: mint amount is zero", models.ErrValidation)
	}

	// Supply bounds every balance, so checking supply overflow covers both.
	newSupply, carry := new(uint256.Int).AddOverflow(l.supply, amount)
	if carry {
		return fmt.Errorf("%w: total supply overflow", models.ErrArithmetic)
	}
	l.supply = newSupply
	l.credit(to, amount)
	return nil
}

// Transfer moves tokens between wallets. Supply is conserved.
func (l *Ledger) Transfer(from, to models.Address, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer involving the null address", models.ErrValidation)
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: transfer amount is zero", models.ErrValidation)
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient balance", models.ErrArithmetic)
	}
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// Approve sets (not adds to) the spender's allowance over the owner's
// balance. A zero amount clears the allowance.
func (l *Ledger) Approve(owner, spender models.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return fmt.Errorf("%w: approval involving the null address", models.ErrValidation)
	}
	if amount == nil {
		return fmt.Errorf("%w: approval amount is missing", models.ErrValidation)
	}
	grants := l.allowances[owner]
	if grants == nil {
		grants = make(map[models.Address]*uint256.Int)
		l.allowances[owner] = grants
	}
	grants[spender] = new(uint256.Int).Set(amount)
	return nil
}

// TransferFrom moves tokens from a holder using the caller's allowance.
// Validation covers both the allowance and the holder balance before any
// mutation; the allowance decrement is applied before the balance moves.
func (l *Ledger) TransferFrom(spender, from, to models.Address, amount *uint256.Int) error {
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer involving the null address", models.ErrValidation)
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: transfer amount is zero", models.ErrValidation)
	}
	if err := l.checkDelegated(spender, from, amount); err != nil {
		return err
	}
	l.spendAllowance(from, spender, amount)
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// SettleSale executes a marketplace settlement: buyerAmount to the buyer
// and feeAmount to the treasury, both drawn from the seller under the
// spender's allowance. The two movements validate as one unit and apply
// together or not at all.
func (l *Ledger) SettleSale(spender, seller, buyer, treasury models.Address, buyerAmount, feeAmount *uint256.Int) error {
	if spender.IsZero() || seller.IsZero() || buyer.IsZero() || treasury.IsZero() {
		return fmt.Errorf("%w: settlement involving the null address", models.ErrValidation)
	}
	if buyerAmount == nil || feeAmount == nil {
		return fmt.Errorf("%w: settlement amount is missing", models.ErrValidation)
	}
	total, carry := new(uint256.Int).AddOverflow(buyerAmount, feeAmount)
	if carry {
		return fmt.Errorf("%w: settlement amount overflow", models.ErrArithmetic)
	}
	if total.IsZero() {
		return fmt.Errorf("%w: settlement amount is zero", models.ErrValidation)
	}
	if err := l.checkDelegated(spender, seller, total); err != nil {
		return err
	}
	l.spendAllowance(seller, spender, total)
	l.debit(seller, total)
	if !buyerAmount.IsZero() {
		l.credit(buyer, buyerAmount)
	}
	if !feeAmount.IsZero() {
		l.credit(treasury, feeAmount)
	}
	return nil
}

// SetIssuer reassigns the issuance authority. Only the admin authority may
// call it, and the next issuer must be non-null.
func (l *Ledger) SetIssuer(caller, next models.Address) error {
	if caller != l.admin {
		return fmt.Errorf("%w: %s is not the administrative authority", models.ErrUnauthorized, caller)
	}
	if next.IsZero() {
		return fmt.Errorf("%w: next issuer is null", models.ErrValidation)
	}
	l.issuer = next
	return nil
}

// BalanceOf returns a copy of the wallet's balance.
func (l *Ledger) BalanceOf(addr models.Address) *uint256.Int {
	return new(uint256.Int).Set(l.balance(addr))
}

// Allowance returns a copy of the spender's remaining allowance from owner.
func (l *Ledger) Allowance(owner, spender models.Address) *uint256.Int {
	return new(uint256.Int).Set(l.allowance(owner, spender))
}

// TotalSupply returns a copy of the total supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.supply)
}

// Decimals returns the token's decimal scale.
func (l *Ledger) Decimals() uint8 {
	return l.decimals
}

// Issuer returns the current issuance authority.
func (l *Ledger) Issuer() models.Address {
	return l.issuer
}

// Admin returns the administrative authority.
func (l *Ledger) Admin() models.Address {
	return l.admin
}

// BalancesSum adds up every holder balance. At every quiescent point it
// equals the total supply.
func (l *Ledger) BalancesSum() *uint256.Int {
	sum := new(uint256.Int)
	for _, bal := range l.balances {
		sum.Add(sum, bal)
	}
	return sum
}

func (l *Ledger) checkDelegated(spender, from models.Address, amount *uint256.Int) error {
	if l.allowance(from, spender).Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient allowance", models.ErrArithmetic)
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient balance", models.ErrArithmetic)
	}
	return nil
}

func (l *Ledger) balance(addr models.Address) *uint256.Int {
	if bal, ok := l.balances[addr]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (l *Ledger) allowance(owner, spender models.Address) *uint256.Int {
	if grants, ok := l.allowances[owner]; ok {
		if rem, ok := grants[spender]; ok {
			return rem
		}
	}
	return new(uint256.Int)
}

func (l *Ledger) spendAllowance(owner, spender models.Address, amount *uint256.Int) {
	grants := l.allowances[owner]
	if grants == nil {
		grants = make(map[models.Address]*uint256.Int)
		l.allowances[owner] = grants
	}
	grants[spender] = new(uint256.Int).Sub(l.allowance(owner, spender), amount)
}

func (l *Ledger) credit(addr models.Address, amount *uint256.Int) {
	l.balances[addr] = new(uint256.Int).Add(l.balance(addr), amount)
}

func (l *Ledger) debit(addr models.Address, amount *uint256.Int) {
	l.balances[addr] = new(uint256.Int).Sub(l.balance(addr), amount)
}
