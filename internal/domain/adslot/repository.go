package adslot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const grantColumns = `id, merchant_id, admin_id, slot, start_at, end_at, status, created_at, updated_at`

// Repository handles paid ad grant persistence. A partial unique index on
// (slot) WHERE status = 'active' is the system-wide exclusivity guard; a
// racing insert surfaces as a unique violation and becomes ErrSlotConflict.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// lockAdmin serializes grant creation per admin so the concurrent-grant
// ceiling cannot be raced past.
func (r *Repository) lockAdmin(ctx context.Context, tx *sqlx.Tx, adminID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM admins WHERE id = $1 FOR UPDATE`, adminID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownGrant
		}
		return fmt.Errorf("%w: lock admin row: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) countActiveByAdmin(ctx context.Context, tx *sqlx.Tx, adminID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM paid_ad_grants
		WHERE admin_id = $1 AND status = 'active' AND end_at > $2
	`, adminID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count active grants: %v", ErrInternal, err)
	}
	return count, nil
}

// lapsedOnSlot returns the active grant still holding the slot past its end
// time, locked for update, or nil when no lapsed holder exists. The partial
// unique index guarantees at most one active grant per slot.
func (r *Repository) lapsedOnSlot(ctx context.Context, tx *sqlx.Tx, slot Slot, now time.Time) (*Grant, error) {
	var g Grant
	err := tx.GetContext(ctx, &g, `
		SELECT `+grantColumns+` FROM paid_ad_grants
		WHERE slot = $1 AND status = 'active' AND end_at <= $2
		FOR UPDATE
	`, slot, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lock lapsed grant: %v", ErrInternal, err)
	}
	return &g, nil
}

func (r *Repository) insertGrant(ctx context.Context, tx *sqlx.Tx, g *Grant) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO paid_ad_grants (id, merchant_id, admin_id, slot, start_at, end_at, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, 'active')
		RETURNING id, status, created_at, updated_at
	`, g.MerchantID, g.AdminID, g.Slot, g.StartAt, g.EndAt).
		Scan(&g.ID, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSlotConflict
		}
		return fmt.Errorf("%w: insert grant: %v", ErrInternal, err)
	}
	return nil
}

// GetByID returns one grant.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Grant, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var g Grant
	err := r.db.GetContext(ctx2, &g, `
		SELECT `+grantColumns+` FROM paid_ad_grants WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownGrant
		}
		return nil, fmt.Errorf("%w: get grant: %v", ErrInternal, err)
	}
	return &g, nil
}

// OccupiedSlots returns the slots held by non-expired active grants. With a
// scope admin the scan is filtered to that admin's grants.
func (r *Repository) OccupiedSlots(ctx context.Context, scopeAdminID *uuid.UUID, now time.Time) ([]Slot, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT DISTINCT slot FROM paid_ad_grants
		WHERE status = 'active' AND end_at > $1`
	args := []interface{}{now}
	if scopeAdminID != nil {
		query += ` AND admin_id = $2`
		args = append(args, *scopeAdminID)
	}

	slots := make([]Slot, 0, len(AllSlots))
	if err := r.db.SelectContext(ctx2, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("%w: occupied slots: %v", ErrInternal, err)
	}
	return slots, nil
}

// ListExpirable returns active grants whose end time has passed.
func (r *Repository) ListExpirable(ctx context.Context, now time.Time) ([]Grant, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	grants := make([]Grant, 0)
	err := r.db.SelectContext(ctx2, &grants, `
		SELECT `+grantColumns+` FROM paid_ad_grants
		WHERE status = 'active' AND end_at <= $1
		ORDER BY end_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("%w: list expirable grants: %v", ErrInternal, err)
	}
	return grants, nil
}

// ExpireTx marks one grant expired within the caller's transaction. Returns
// false when the grant was no longer active, which makes re-runs no-ops.
func (r *Repository) ExpireTx(ctx context.Context, tx *sqlx.Tx, grantID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE paid_ad_grants
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status = 'active'
	`, grantID)
	if err != nil {
		return false, fmt.Errorf("%w: expire grant: %v", ErrInternal, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrInternal, err)
	}
	return rows > 0, nil
}

// HasOtherActiveForMerchant reports whether the merchant still holds another
// active grant, used to decide whether paid_ads flips off at expiry.
func (r *Repository) HasOtherActiveForMerchant(ctx context.Context, tx *sqlx.Tx, merchantID, excludeGrantID uuid.UUID, now time.Time) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM paid_ad_grants
		WHERE merchant_id = $1 AND id <> $2 AND status = 'active' AND end_at > $3
	`, merchantID, excludeGrantID, now).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: count merchant grants: %v", ErrInternal, err)
	}
	return count > 0, nil
}

// ListByMerchant returns the merchant's grants, newest first.
func (r *Repository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]Grant, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	grants := make([]Grant, 0)
	err := r.db.SelectContext(ctx2, &grants, `
		SELECT `+grantColumns+` FROM paid_ad_grants
		WHERE merchant_id = $1
		ORDER BY created_at DESC
	`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: list merchant grants: %v", ErrInternal, err)
	}
	return grants, nil
}
