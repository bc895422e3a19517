package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository reads and writes the singleton platform settings row.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the settings row, inserting defaults on first access.
func (r *Repository) Get(ctx context.Context) (*Settings, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Settings
	err := r.db.GetContext(ctx2, &s, `
		SELECT id, temporary_commission_pct, annual_commission_pct, ad_grant_ceiling, updated_at
		FROM platform_settings
		WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.db.ExecContext(ctx2, `
			INSERT INTO platform_settings (id) VALUES (1)
			ON CONFLICT (id) DO NOTHING
		`); err != nil {
			return nil, fmt.Errorf("%w: seed settings: %v", ErrInternal, err)
		}
		err = r.db.GetContext(ctx2, &s, `
			SELECT id, temporary_commission_pct, annual_commission_pct, ad_grant_ceiling, updated_at
			FROM platform_settings
			WHERE id = 1
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get settings: %v", ErrInternal, err)
	}

	return &s, nil
}

// Update overwrites the configurable fields of the settings row.
func (r *Repository) Update(ctx context.Context, s *Settings) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		UPDATE platform_settings
		SET temporary_commission_pct = $1, annual_commission_pct = $2,
		    ad_grant_ceiling = $3, updated_at = now()
		WHERE id = 1
	`, s.TemporaryCommissionPct, s.AnnualCommissionPct, s.AdGrantCeiling)
	if err != nil {
		return fmt.Errorf("%w: update settings: %v", ErrInternal, err)
	}
	return nil
}
