package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when a deduction asks for more units
	// than the wallet holds. No partial state change occurs.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidUnits is returned when units <= 0 (or a zero adjustment delta).
	ErrInvalidUnits = errors.New("invalid units: must be greater than 0")

	// ErrUnknownOwner is returned when the referenced owner has no wallet.
	ErrUnknownOwner = errors.New("unknown owner")

	// ErrInactiveWallet is returned when operating on a deactivated wallet.
	ErrInactiveWallet = errors.New("wallet is deactivated")

	ErrInternal = errors.New("internal error")
)
