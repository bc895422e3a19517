package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const entryColumns = `id, owner_type, owner_id, credit_type, action, amount,
	balance_before, balance_after, related_entity_type, related_entity_id,
	description, metadata, created_at`

// Repository is the append-only ledger store. Inserts only ever happen inside
// the coordinator's transaction; reads go through the pooled connection.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one entry within the caller's transaction. The entry must
// already carry balance_before/balance_after captured under the wallet row
// lock; ID and CreatedAt are filled in from the database.
func (r *Repository) Insert(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	if e.BalanceAfter != e.BalanceBefore+e.Amount {
		return fmt.Errorf("%w: balance_after %d != balance_before %d + amount %d",
			ErrLedgerWrite, e.BalanceAfter, e.BalanceBefore, e.Amount)
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (
			owner_type, owner_id, credit_type, action, amount,
			balance_before, balance_after, related_entity_type, related_entity_id,
			description, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`,
		e.OwnerType, e.OwnerID, e.CreditType, e.Action, e.Amount,
		e.BalanceBefore, e.BalanceAfter, e.RelatedEntityType, e.RelatedEntityID,
		e.Description, e.Metadata,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert entry: %v", ErrLedgerWrite, err)
	}

	return nil
}

// Latest returns the most recent entry for (owner, credit_type), or nil if the
// pair has never moved.
func (r *Repository) Latest(ctx context.Context, owner Owner, creditType CreditType) (*Entry, error) {
	return r.latestBefore(ctx, owner, creditType, nil, false)
}

// LatestBefore returns the most recent entry strictly before the given time,
// or nil if none exists.
func (r *Repository) LatestBefore(ctx context.Context, owner Owner, creditType CreditType, before time.Time) (*Entry, error) {
	return r.latestBefore(ctx, owner, creditType, &before, false)
}

// LatestThrough returns the most recent entry created at or before the given
// time, or nil if none exists. Statement closing balances use this so a
// movement landing exactly on the window end is counted.
func (r *Repository) LatestThrough(ctx context.Context, owner Owner, creditType CreditType, asOf time.Time) (*Entry, error) {
	return r.latestBefore(ctx, owner, creditType, &asOf, true)
}

func (r *Repository) latestBefore(ctx context.Context, owner Owner, creditType CreditType, before *time.Time, inclusive bool) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3`
	args := []interface{}{owner.Type, owner.ID, creditType}
	if before != nil {
		op := " AND created_at < $4"
		if inclusive {
			op = " AND created_at <= $4"
		}
		query += op
		args = append(args, *before)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var e Entry
	if err := r.db.GetContext(ctx2, &e, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: latest entry: %v", ErrInternal, err)
	}

	return &e, nil
}

// Movements returns all entries for the owner in [start, end], oldest first.
func (r *Repository) Movements(ctx context.Context, owner Owner, start, end time.Time) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE owner_type = $1 AND owner_id = $2
		  AND created_at >= $3 AND created_at <= $4
		ORDER BY created_at ASC, id ASC
	`, owner.Type, owner.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: movements: %v", ErrInternal, err)
	}

	return entries, nil
}

// SumRange returns the signed sum of amounts for (owner, credit_type) in
// [start, end].
func (r *Repository) SumRange(ctx context.Context, owner Owner, creditType CreditType, start, end time.Time) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int64
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
		  AND created_at >= $4 AND created_at <= $5
	`, owner.Type, owner.ID, creditType, start, end)
	if err != nil {
		return 0, fmt.Errorf("%w: sum range: %v", ErrInternal, err)
	}

	return sum, nil
}

// Replay reconstructs the current balance for (owner, credit_type) by summing
// every entry from zero. The wallet row must always agree with this value.
func (r *Repository) Replay(ctx context.Context, owner Owner, creditType CreditType) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int64
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
	`, owner.Type, owner.ID, creditType)
	if err != nil {
		return 0, fmt.Errorf("%w: replay: %v", ErrInternal, err)
	}

	return sum, nil
}

// VerifyChain checks that consecutive entries for (owner, credit_type) form a
// strict running total. Used by reconciliation and tests.
func (r *Repository) VerifyChain(ctx context.Context, owner Owner, creditType CreditType) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE owner_type = $1 AND owner_id = $2 AND credit_type = $3
		ORDER BY created_at ASC, id ASC
	`, owner.Type, owner.ID, creditType)
	if err != nil {
		return fmt.Errorf("%w: verify chain: %v", ErrInternal, err)
	}

	return CheckChain(entries)
}

// CheckChain validates the chaining invariant over an ordered slice of entries
// belonging to one (owner, credit_type).
func CheckChain(entries []Entry) error {
	var prev int64
	for i, e := range entries {
		if e.BalanceAfter != e.BalanceBefore+e.Amount {
			return fmt.Errorf("%w: entry %s amount mismatch", ErrBrokenChain, e.ID)
		}
		if i > 0 && e.BalanceBefore != prev {
			return fmt.Errorf("%w: entry %s balance_before %d, want %d",
				ErrBrokenChain, e.ID, e.BalanceBefore, prev)
		}
		prev = e.BalanceAfter
	}
	return nil
}

// Search returns filtered entries for admin reporting, newest first.
func (r *Repository) Search(ctx context.Context, filters SearchFilters) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	base := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	add := func(clause string, v interface{}) {
		base += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}

	if filters.OwnerType != nil {
		add(" AND owner_type = $%d", *filters.OwnerType)
	}
	if filters.OwnerID != nil && *filters.OwnerID != uuid.Nil {
		add(" AND owner_id = $%d", *filters.OwnerID)
	}
	if filters.CreditType != nil {
		add(" AND credit_type = $%d", *filters.CreditType)
	}
	if filters.Action != nil {
		add(" AND action = $%d", *filters.Action)
	}
	if filters.DateFrom != nil {
		add(" AND created_at >= $%d", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		add(" AND created_at <= $%d", *filters.DateTo)
	}
	if filters.RelatedEntityType != nil && *filters.RelatedEntityType != "" {
		add(" AND related_entity_type = $%d", *filters.RelatedEntityType)
	}
	if filters.RelatedEntityID != nil && *filters.RelatedEntityID != uuid.Nil {
		add(" AND related_entity_id = $%d", *filters.RelatedEntityID)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	base += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filters.Offset)

	entries := make([]Entry, 0)
	if err := r.db.SelectContext(ctx2, &entries, base, args...); err != nil {
		return nil, fmt.Errorf("%w: search entries: %v", ErrInternal, err)
	}

	return entries, nil
}
