package ledger

import "errors"

var (
	// ErrLedgerWrite is returned when the append to the ledger fails; the
	// enclosing transaction must roll back everything else it did.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrBrokenChain is returned by verification when consecutive entries for
	// the same (owner, credit_type) do not chain balance_before/balance_after.
	ErrBrokenChain = errors.New("ledger entries do not chain")

	ErrInternal = errors.New("internal error")
)
