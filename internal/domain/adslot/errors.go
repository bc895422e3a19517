package adslot

import "errors"

var (
	// ErrSlotConflict is returned when the placement is already occupied or
	// the admin's concurrent grant ceiling is reached. No state is mutated.
	ErrSlotConflict = errors.New("ad slot conflict")

	// ErrUnknownGrant is returned when a referenced grant does not exist.
	ErrUnknownGrant = errors.New("unknown ad grant")

	ErrInvalidSlot   = errors.New("invalid slot name")
	ErrInvalidPeriod = errors.New("invalid grant period")
	ErrInternal      = errors.New("internal error")
)
