package settings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the platform operator's single configuration row. The
// commission percentages here are the authoritative rate source; per-tier
// values are percent of gross.
type Settings struct {
	ID                     int             `db:"id" json:"-"`
	TemporaryCommissionPct decimal.Decimal `db:"temporary_commission_pct" json:"temporary_commission_pct"`
	AnnualCommissionPct    decimal.Decimal `db:"annual_commission_pct" json:"annual_commission_pct"`
	AdGrantCeiling         int             `db:"ad_grant_ceiling" json:"ad_grant_ceiling"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
}
