package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
)

const queryTimeout = 3 * time.Second

// Repository owns the wallets, wallet_credits and wallet_transactions tables.
// Methods taking a *sqlx.Tx never commit or roll back; the coordinator does.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureWallet creates the owner's wallet row if it does not exist yet.
// Called when the owner entity is created; wallets are never deleted.
func (r *Repository) EnsureWallet(ctx context.Context, owner ledger.Owner) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (owner_type, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_type, owner_id) DO NOTHING
	`, owner.Type, owner.ID)
	if err != nil {
		return fmt.Errorf("%w: ensure wallet: %v", ErrInternal, err)
	}
	return nil
}

// Deactivate marks a wallet inactive. The row and its ledger history remain.
func (r *Repository) Deactivate(ctx context.Context, owner ledger.Owner) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallets SET is_active = false, updated_at = now()
		WHERE owner_type = $1 AND owner_id = $2
	`, owner.Type, owner.ID)
	if err != nil {
		return fmt.Errorf("%w: deactivate wallet: %v", ErrInternal, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrInternal, err)
	}
	if rows == 0 {
		return ErrUnknownOwner
	}
	return nil
}

// assertActive rejects movements against a deactivated wallet. A missing row
// is not an error: wallet credit rows are provisioned lazily on first
// movement, and a wallet without a row has never been deactivated.
func (r *Repository) assertActive(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner) error {
	var active bool
	err := tx.QueryRowContext(ctx, `
		SELECT is_active FROM wallets WHERE owner_type = $1 AND owner_id = $2
	`, owner.Type, owner.ID).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("%w: wallet active check: %v", ErrInternal, err)
	}
	if !active {
		return ErrInactiveWallet
	}
	return nil
}

// GetWallet returns the owner's wallet row.
func (r *Repository) GetWallet(ctx context.Context, owner ledger.Owner) (*Wallet, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var w Wallet
	err := r.db.GetContext(ctx2, &w, `
		SELECT owner_type, owner_id, balance, total_earnings, total_spent,
		       pending_amount, is_active, created_at, updated_at
		FROM wallets
		WHERE owner_type = $1 AND owner_id = $2
	`, owner.Type, owner.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownOwner
		}
		return nil, fmt.Errorf("%w: get wallet: %v", ErrInternal, err)
	}
	return &w, nil
}

// lockCredit takes the FOR UPDATE lock on exactly one (owner, credit_type)
// balance row and returns the current balance. The row is created lazily so
// first-ever movements do not need a separate provisioning step. Contention
// on other owners or other credit types of the same owner is unaffected.
func (r *Repository) lockCredit(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_credits (owner_type, owner_id, credit_type, balance)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (owner_type, owner_id, credit_type) DO NOTHING
	`, owner.Type, owner.ID, creditType); err != nil {
		return 0, fmt.Errorf("%w: ensure credit row: %v", ErrInternal, err)
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `
		SELECT balance FROM wallet_credits
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
		FOR UPDATE
	`, owner.Type, owner.ID, creditType).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("%w: lock credit row: %v", ErrInternal, err)
	}
	return balance, nil
}

func (r *Repository) setCredit(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, creditType ledger.CreditType, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_credits SET balance = $4, updated_at = now()
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
	`, owner.Type, owner.ID, creditType, balance)
	if err != nil {
		return fmt.Errorf("%w: update credit balance: %v", ErrInternal, err)
	}
	return nil
}

// GetCredit returns the cached balance for one credit type, zero if the pair
// has never moved.
func (r *Repository) GetCredit(ctx context.Context, owner ledger.Owner, creditType ledger.CreditType) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := r.db.GetContext(ctx2, &balance, `
		SELECT balance FROM wallet_credits
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
	`, owner.Type, owner.ID, creditType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get credit balance: %v", ErrInternal, err)
	}
	return balance, nil
}

// Balances returns every credit-type balance for the owner. Types the owner
// never touched report zero.
func (r *Repository) Balances(ctx context.Context, owner ledger.Owner) (map[ledger.CreditType]int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows := make([]struct {
		CreditType ledger.CreditType `db:"credit_type"`
		Balance    int64             `db:"balance"`
	}, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT credit_type, balance FROM wallet_credits
		WHERE owner_type = $1 AND owner_id = $2
	`, owner.Type, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list balances: %v", ErrInternal, err)
	}

	balances := make(map[ledger.CreditType]int64, len(ledger.AllCreditTypes))
	for _, ct := range ledger.AllCreditTypes {
		balances[ct] = 0
	}
	for _, row := range rows {
		balances[row.CreditType] = row.Balance
	}
	return balances, nil
}

// creditMonetary locks the owner's wallet row, applies a monetary delta and
// returns the before/after balances for the wallet transaction record.
// asEarnings additionally bumps total_earnings (commission income).
func (r *Repository) creditMonetary(ctx context.Context, tx *sqlx.Tx, owner ledger.Owner, amount int64, asEarnings bool) (before, after int64, err error) {
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (owner_type, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_type, owner_id) DO NOTHING
	`, owner.Type, owner.ID); err != nil {
		return 0, 0, fmt.Errorf("%w: ensure wallet: %v", ErrInternal, err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM wallets
		WHERE owner_type = $1 AND owner_id = $2
		FOR UPDATE
	`, owner.Type, owner.ID).Scan(&before)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: lock wallet row: %v", ErrInternal, err)
	}

	after = before + amount
	earningsDelta := int64(0)
	if asEarnings && amount > 0 {
		earningsDelta = amount
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $3, total_earnings = total_earnings + $4, updated_at = now()
		WHERE owner_type = $1 AND owner_id = $2
	`, owner.Type, owner.ID, after, earningsDelta); err != nil {
		return 0, 0, fmt.Errorf("%w: update wallet: %v", ErrInternal, err)
	}

	return before, after, nil
}

// insertWalletTransaction appends one monetary movement row; ID and CreatedAt
// come back from the database.
func (r *Repository) insertWalletTransaction(ctx context.Context, tx *sqlx.Tx, wt *WalletTransaction) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO wallet_transactions (
			owner_type, owner_id, type, amount, status,
			balance_before, balance_after, related_entity_type, related_entity_id,
			metadata, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`,
		wt.OwnerType, wt.OwnerID, wt.Type, wt.Amount, wt.Status,
		wt.BalanceBefore, wt.BalanceAfter, wt.RelatedEntityType, wt.RelatedEntityID,
		wt.Metadata, wt.CompletedAt,
	).Scan(&wt.ID, &wt.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert wallet transaction: %v", ErrInternal, err)
	}
	return nil
}

// ListWalletTransactions returns the owner's monetary movements, newest first.
func (r *Repository) ListWalletTransactions(ctx context.Context, owner ledger.Owner, limit, offset int) ([]WalletTransaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	txs := make([]WalletTransaction, 0)
	err := r.db.SelectContext(ctx2, &txs, `
		SELECT id, owner_type, owner_id, type, amount, status,
		       balance_before, balance_after, related_entity_type, related_entity_id,
		       metadata, created_at, completed_at
		FROM wallet_transactions
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, owner.Type, owner.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list wallet transactions: %v", ErrInternal, err)
	}
	return txs, nil
}

// SumCompleted returns the summed amount of completed wallet transactions of
// one type that reference a given entity. Used by reconciliation.
func (r *Repository) SumCompleted(ctx context.Context, owner ledger.Owner, txType WalletTransactionType, relatedEntityType string, relatedEntityID uuid.UUID) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int64
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE owner_type = $1 AND owner_id = $2 AND type = $3 AND status = $4
		  AND related_entity_type = $5 AND related_entity_id = $6
	`, owner.Type, owner.ID, txType, WalletTxCompleted, relatedEntityType, relatedEntityID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum wallet transactions: %v", ErrInternal, err)
	}
	return sum, nil
}
