package admin

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a reseller account: it onboards merchants and earns a commission
// share on their credit purchases.
type Admin struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Earnings summarises an admin's commission income from its wallet.
type Earnings struct {
	Balance       int64 `json:"balance"`
	TotalEarnings int64 `json:"total_earnings"`
	PendingAmount int64 `json:"pending_amount"`
}
