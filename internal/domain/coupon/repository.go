package coupon

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

const batchColumns = `id, merchant_id, quantity, status, start_at, end_at, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) insertBatch(ctx context.Context, tx *sqlx.Tx, b *Batch) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO coupon_batches (id, merchant_id, quantity, status, start_at, end_at)
		VALUES (gen_random_uuid(), $1, $2, 'active', $3, $4)
		RETURNING id, status, created_at, updated_at
	`, b.MerchantID, b.Quantity, b.StartAt, b.EndAt).
		Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert coupon batch: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) insertUnits(ctx context.Context, tx *sqlx.Tx, batchID uuid.UUID, codes []string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO coupons (id, batch_id, code, status)
		VALUES (gen_random_uuid(), $1, $2, 'created')
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare coupon insert: %v", ErrInternal, err)
	}
	defer stmt.Close()

	for _, code := range codes {
		if _, err := stmt.ExecContext(ctx, batchID, code); err != nil {
			return fmt.Errorf("%w: insert coupon: %v", ErrInternal, err)
		}
	}
	return nil
}

// GetBatch returns one batch.
func (r *Repository) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b Batch
	err := r.db.GetContext(ctx2, &b, `
		SELECT `+batchColumns+` FROM coupon_batches WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("%w: get coupon batch: %v", ErrInternal, err)
	}
	return &b, nil
}

// LockBatch loads the batch FOR UPDATE inside the caller's transaction so
// expiry and cancellation cannot race each other.
func (r *Repository) LockBatch(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Batch, error) {
	var b Batch
	err := tx.GetContext(ctx, &b, `
		SELECT `+batchColumns+` FROM coupon_batches WHERE id = $1 FOR UPDATE
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("%w: lock coupon batch: %v", ErrInternal, err)
	}
	return &b, nil
}

// CountCreatedTx counts the batch's units still in created state.
func (r *Repository) CountCreatedTx(ctx context.Context, tx *sqlx.Tx, batchID uuid.UUID) (int64, error) {
	var count int64
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM coupons WHERE batch_id = $1 AND status = 'created'
	`, batchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count created coupons: %v", ErrInternal, err)
	}
	return count, nil
}

// ExpireUnitsTx flips the batch's created units to expired. Issued units are
// untouched.
func (r *Repository) ExpireUnitsTx(ctx context.Context, tx *sqlx.Tx, batchID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE coupons SET status = 'expired'
		WHERE batch_id = $1 AND status = 'created'
	`, batchID)
	if err != nil {
		return fmt.Errorf("%w: expire coupons: %v", ErrInternal, err)
	}
	return nil
}

// SetBatchStatusTx transitions the batch within the caller's transaction.
func (r *Repository) SetBatchStatusTx(ctx context.Context, tx *sqlx.Tx, batchID uuid.UUID, status BatchStatus) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE coupon_batches SET status = $2, updated_at = now() WHERE id = $1
	`, batchID, status)
	if err != nil {
		return fmt.Errorf("%w: set batch status: %v", ErrInternal, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrInternal, err)
	}
	if rows == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// ListExpirable returns active batches whose end time has passed.
func (r *Repository) ListExpirable(ctx context.Context, now time.Time) ([]Batch, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	batches := make([]Batch, 0)
	err := r.db.SelectContext(ctx2, &batches, `
		SELECT `+batchColumns+` FROM coupon_batches
		WHERE status = 'active' AND end_at <= $1
		ORDER BY end_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("%w: list expirable batches: %v", ErrInternal, err)
	}
	return batches, nil
}

// GetUnitByCode returns one coupon by its redemption code.
func (r *Repository) GetUnitByCode(ctx context.Context, code string) (*Unit, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u Unit
	err := r.db.GetContext(ctx2, &u, `
		SELECT id, batch_id, code, status, issued_to, issued_at
		FROM coupons WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("%w: get coupon: %v", ErrInternal, err)
	}
	return &u, nil
}

// IssueUnit flips one created unit to issued. The conditional UPDATE makes
// double-issue of the same code lose cleanly.
func (r *Repository) IssueUnit(ctx context.Context, unitID uuid.UUID, issuedTo string, now time.Time) (*Unit, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u Unit
	err := r.db.GetContext(ctx2, &u, `
		UPDATE coupons
		SET status = 'issued', issued_to = $2, issued_at = $3
		WHERE id = $1 AND status = 'created'
		RETURNING id, batch_id, code, status, issued_to, issued_at
	`, unitID, issuedTo, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotIssuable
		}
		return nil, fmt.Errorf("%w: issue coupon: %v", ErrInternal, err)
	}
	return &u, nil
}

// ListUnits returns the batch's units.
func (r *Repository) ListUnits(ctx context.Context, batchID uuid.UUID) ([]Unit, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	units := make([]Unit, 0)
	err := r.db.SelectContext(ctx2, &units, `
		SELECT id, batch_id, code, status, issued_to, issued_at
		FROM coupons WHERE batch_id = $1
		ORDER BY code ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: list coupons: %v", ErrInternal, err)
	}
	return units, nil
}

// ListBatchesByMerchant returns the merchant's batches, newest first.
func (r *Repository) ListBatchesByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Batch, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	batches := make([]Batch, 0)
	err := r.db.SelectContext(ctx2, &batches, `
		SELECT `+batchColumns+` FROM coupon_batches
		WHERE merchant_id = $1
		ORDER BY created_at DESC
	`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: list merchant batches: %v", ErrInternal, err)
	}
	return batches, nil
}
