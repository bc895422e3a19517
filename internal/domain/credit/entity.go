package credit

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

// Wallet is the per-owner account row. Credit-unit balances live in separate
// wallet_credits rows (one per credit type) so locking scopes to exactly the
// contended key; the monetary fields here are used by admin and platform
// wallets for commission accounting.
type Wallet struct {
	OwnerType     ledger.OwnerType `db:"owner_type" json:"owner_type"`
	OwnerID       uuid.UUID        `db:"owner_id" json:"owner_id"`
	Balance       int64            `db:"balance" json:"balance"`
	TotalEarnings int64            `db:"total_earnings" json:"total_earnings"`
	TotalSpent    int64            `db:"total_spent" json:"total_spent"`
	PendingAmount int64            `db:"pending_amount" json:"pending_amount"`
	IsActive      bool             `db:"is_active" json:"is_active"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// WalletTransactionType classifies a monetary wallet movement.
type WalletTransactionType string

const (
	WalletTxCommission WalletTransactionType = "commission"
	WalletTxPurchase   WalletTransactionType = "purchase"
	WalletTxPayout     WalletTransactionType = "payout"
)

// WalletTransactionStatus is the lifecycle of a monetary movement. Unlike
// ledger entries these rows are mutable until completed.
type WalletTransactionStatus string

const (
	WalletTxPending   WalletTransactionStatus = "pending"
	WalletTxCompleted WalletTransactionStatus = "completed"
	WalletTxFailed    WalletTransactionStatus = "failed"
	WalletTxCancelled WalletTransactionStatus = "cancelled"
)

// WalletTransaction records money (not credit-unit) movements: commission
// shares and subscription payments. Money and credit units are parallel
// ledgers that must stay reconcilable but are not the same unit.
type WalletTransaction struct {
	ID                uuid.UUID               `db:"id" json:"id"`
	OwnerType         ledger.OwnerType        `db:"owner_type" json:"owner_type"`
	OwnerID           uuid.UUID               `db:"owner_id" json:"owner_id"`
	Type              WalletTransactionType   `db:"type" json:"type"`
	Amount            int64                   `db:"amount" json:"amount"`
	Status            WalletTransactionStatus `db:"status" json:"status"`
	BalanceBefore     int64                   `db:"balance_before" json:"balance_before"`
	BalanceAfter      int64                   `db:"balance_after" json:"balance_after"`
	RelatedEntityType *string                 `db:"related_entity_type" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID              `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Metadata          ledger.Metadata         `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time               `db:"created_at" json:"created_at"`
	CompletedAt       sql.NullTime            `db:"completed_at" json:"completed_at,omitempty"`
}
