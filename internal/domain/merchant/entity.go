package merchant

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
)

// Merchant is a selling account onboarded by an admin (reseller). The tier
// drives commission rates; temporary merchants are short-lived accounts.
type Merchant struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Tier      commission.Tier `db:"tier" json:"tier"`
	AdminID   uuid.NullUUID   `db:"admin_id" json:"admin_id,omitempty"`
	PaidAds   bool            `db:"paid_ads" json:"paid_ads"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Settings mirrors merchant-facing toggles. paid_ads is kept in sync with the
// merchant row and flipped off when the last ad grant expires.
type Settings struct {
	MerchantID       uuid.UUID `db:"merchant_id" json:"merchant_id"`
	PaidAds          bool      `db:"paid_ads" json:"paid_ads"`
	NotifyLowCredits bool      `db:"notify_low_credits" json:"notify_low_credits"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
