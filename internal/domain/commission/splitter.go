// Package commission computes how a merchant's payment is divided between the
// platform and the admin (reseller) who introduced the merchant.
package commission

import "github.com/shopspring/decimal"

// Tier is the merchant account tier. Temporary merchants carry a higher
// commission rate than annual ones.
type Tier string

const (
	TierTemporary Tier = "temporary"
	TierAnnual    Tier = "annual"
)

// Valid reports whether the tier is a known one.
func (t Tier) Valid() bool {
	return t == TierTemporary || t == TierAnnual
}

// Rates holds the platform-configured commission percentages per tier,
// expressed as percent of gross (e.g. 20 means 20%). The platform settings
// row is the source of truth for these values.
type Rates struct {
	TemporaryPct decimal.Decimal
	AnnualPct    decimal.Decimal
}

// DefaultRates are used until the platform operator configures its own.
func DefaultRates() Rates {
	return Rates{
		TemporaryPct: decimal.NewFromInt(20),
		AnnualPct:    decimal.NewFromInt(10),
	}
}

// Split is the division of one gross payment. AdminShare + PlatformShare is
// always exactly the gross amount.
type Split struct {
	AdminShare    int64 `json:"admin_share"`
	PlatformShare int64 `json:"platform_share"`
}

// Splitter is a pure calculator over a fixed set of rates. It never errors;
// a negative gross amount is a caller precondition violation.
type Splitter struct {
	rates Rates
}

func NewSplitter(rates Rates) *Splitter {
	return &Splitter{rates: rates}
}

// Split divides a gross amount (minor currency units) between the introducing
// admin and the platform. Without an introducing admin the platform keeps
// everything. The admin share is floored, so any division remainder stays
// with the platform.
func (s *Splitter) Split(gross int64, tier Tier, hasIntroducingAdmin bool) Split {
	if gross <= 0 || !hasIntroducingAdmin {
		return Split{PlatformShare: gross}
	}

	pct := s.rates.AnnualPct
	if tier == TierTemporary {
		pct = s.rates.TemporaryPct
	}

	admin := decimal.NewFromInt(gross).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if admin < 0 {
		admin = 0
	}
	if admin > gross {
		admin = gross
	}

	return Split{
		AdminShare:    admin,
		PlatformShare: gross - admin,
	}
}
