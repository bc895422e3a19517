package merchant

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

// Repository handles merchant and merchant settings persistence.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the merchant and its settings row in one transaction.
func (r *Repository) Create(ctx context.Context, m *Merchant) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx2, `
		INSERT INTO merchants (id, name, tier, admin_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, paid_ads, is_active, created_at, updated_at
	`, m.Name, m.Tier, m.AdminID).Scan(&m.ID, &m.PaidAds, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert merchant: %v", ErrInternal, err)
	}

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO merchant_settings (merchant_id) VALUES ($1)
	`, m.ID); err != nil {
		return fmt.Errorf("%w: insert merchant settings: %v", ErrInternal, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// GetByID returns one merchant.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var m Merchant
	err := r.db.GetContext(ctx2, &m, `
		SELECT id, name, tier, admin_id, paid_ads, is_active, created_at, updated_at
		FROM merchants
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMerchantNotFound
		}
		return nil, fmt.Errorf("%w: get merchant: %v", ErrInternal, err)
	}
	return &m, nil
}

// GetSettings returns the merchant's settings row.
func (r *Repository) GetSettings(ctx context.Context, merchantID uuid.UUID) (*Settings, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Settings
	err := r.db.GetContext(ctx2, &s, `
		SELECT merchant_id, paid_ads, notify_low_credits, updated_at
		FROM merchant_settings
		WHERE merchant_id = $1
	`, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMerchantNotFound
		}
		return nil, fmt.Errorf("%w: get merchant settings: %v", ErrInternal, err)
	}
	return &s, nil
}

// SetPaidAdsTx flips the paid_ads flag on both the merchant row and its
// settings, within the caller's transaction. Used when an ad grant is
// approved and when the reclaimer expires one.
func (r *Repository) SetPaidAdsTx(ctx context.Context, tx *sqlx.Tx, merchantID uuid.UUID, enabled bool) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE merchants SET paid_ads = $2, updated_at = now() WHERE id = $1
	`, merchantID, enabled)
	if err != nil {
		return fmt.Errorf("%w: update merchant paid_ads: %v", ErrInternal, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrInternal, err)
	}
	if rows == 0 {
		return ErrMerchantNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE merchant_settings SET paid_ads = $2, updated_at = now() WHERE merchant_id = $1
	`, merchantID, enabled); err != nil {
		return fmt.Errorf("%w: update settings paid_ads: %v", ErrInternal, err)
	}
	return nil
}

// Deactivate marks a merchant inactive; the wallet stays.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE merchants SET is_active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: deactivate merchant: %v", ErrInternal, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrInternal, err)
	}
	if rows == 0 {
		return ErrMerchantNotFound
	}
	return nil
}

// ListByAdmin returns the merchants introduced by one admin.
func (r *Repository) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]Merchant, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	merchants := make([]Merchant, 0)
	err := r.db.SelectContext(ctx2, &merchants, `
		SELECT id, name, tier, admin_id, paid_ads, is_active, created_at, updated_at
		FROM merchants
		WHERE admin_id = $1
		ORDER BY created_at DESC
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("%w: list merchants: %v", ErrInternal, err)
	}
	return merchants, nil
}
