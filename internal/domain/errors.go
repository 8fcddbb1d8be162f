package domain

import "errors"

// Error kinds returned by the engine. Callers classify failures with
// errors.Is; every operation either completes fully or returns one of these
// with no state modified.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrState             = errors.New("invalid state")
	ErrUnauthorized      = errors.New("unauthorized")
)
