package models

import "errors"

// Error kinds surfaced by ledger operations. Every failure returned by the
// engine wraps exactly one of these with a human-readable reason, so
// callers classify with errors.Is.
var (
	// ErrUnauthorized rejects a caller lacking the required authority.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation rejects a zero, null, or malformed argument.
	ErrValidation = errors.New("validation failed")
	// ErrState rejects an operation against an entity in the wrong state.
	ErrState = errors.New("state conflict")
	// ErrArithmetic rejects an operation that would overflow or overdraw.
	ErrArithmetic = errors.New("arithmetic failure")
	// ErrPaymentMismatch rejects a payment that does not equal the price.
	ErrPaymentMismatch = errors.New("payment mismatch")
)
