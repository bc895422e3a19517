package admin

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

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *Admin) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx2, `
		INSERT INTO admins (id, name, email)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, is_active, created_at, updated_at
	`, a.Name, a.Email).Scan(&a.ID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert admin: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Admin
	err := r.db.GetContext(ctx2, &a, `
		SELECT id, name, email, is_active, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("%w: get admin: %v", ErrInternal, err)
	}
	return &a, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Admin, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	admins := make([]Admin, 0)
	err := r.db.SelectContext(ctx2, &admins, `
		SELECT id, name, email, is_active, created_at, updated_at
		FROM admins
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list admins: %v", ErrInternal, err)
	}
	return admins, nil
}
