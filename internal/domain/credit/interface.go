package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

// Coordinator is the only component allowed to mutate wallet balances. Every
// operation runs as one all-or-nothing transaction that locks the wallet row,
// applies the balance change and appends exactly one ledger entry.
type Coordinator interface {
	// Purchase credits units to the owner's wallet and, for merchant
	// purchases, writes the commission wallet transactions for the
	// introducing admin and the platform in the same transaction.
	Purchase(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units, unitPrice int64) (*ledger.Entry, commission.Split, error)

	// Deduct consumes units. Returns ErrInsufficientCredits when the locked
	// balance is below the requested amount.
	Deduct(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error)

	// DeductTx is Deduct composed into an external transaction. Used when the
	// deduction must be atomic with another write (ad slot grant, coupon
	// batch creation). The caller commits or rolls back.
	DeductTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related) (*ledger.Entry, error)

	// Refund returns units to the owner. Always succeeds for units > 0.
	Refund(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error)

	// RefundTx is Refund composed into an external transaction.
	RefundTx(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, units int64, related *ledger.Related, reason string) (*ledger.Entry, error)

	// Adjust applies a signed administrative delta. balance_after >= 0 is
	// enforced for merchants and admins; the platform wallet may go negative
	// to represent float.
	Adjust(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, delta int64, reason string) (*ledger.Entry, error)

	// CheckCredits is the read-only fast-fail pre-check. The authoritative
	// check is still re-performed inside Deduct under the row lock.
	CheckCredits(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType, units int64) (sufficient bool, available int64, err error)

	// Balances returns every credit-type balance for the owner.
	Balances(ctx context.Context, owner ledger.Owner) (map[ledger.CreditType]int64, error)
}

// MerchantInfo is what the coordinator needs to know about a purchasing
// merchant to split commission.
type MerchantInfo struct {
	Tier             commission.Tier
	IntroducingAdmin *uuid.UUID
}

// MerchantDirectory resolves merchant tier and introducing admin. Implemented
// by the merchant domain; missing merchants surface as ErrUnknownOwner.
type MerchantDirectory interface {
	Lookup(ctx context.Context, merchantID uuid.UUID) (MerchantInfo, error)
}

// RateSource supplies the current commission splitter. Implemented by the
// settings domain so operator rate changes take effect without restart.
type RateSource interface {
	Splitter(ctx context.Context) (*commission.Splitter, error)
}
