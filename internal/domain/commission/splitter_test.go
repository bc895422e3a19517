package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
)

func TestSplit(t *testing.T) {
	s := commission.NewSplitter(commission.DefaultRates())

	tests := []struct {
		name         string
		gross        int64
		tier         commission.Tier
		hasAdmin     bool
		wantAdmin    int64
		wantPlatform int64
	}{
		{"temporary with admin", 10000, commission.TierTemporary, true, 2000, 8000},
		{"annual with admin", 10000, commission.TierAnnual, true, 1000, 9000},
		{"no introducing admin", 10000, commission.TierTemporary, false, 0, 10000},
		{"remainder goes to platform", 999, commission.TierAnnual, true, 99, 900},
		{"single unit temporary", 1, commission.TierTemporary, true, 0, 1},
		{"zero gross", 0, commission.TierAnnual, true, 0, 0},
		{"large gross", 123456789, commission.TierTemporary, true, 24691357, 98765432},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Split(tt.gross, tt.tier, tt.hasAdmin)
			assert.Equal(t, tt.wantAdmin, got.AdminShare)
			assert.Equal(t, tt.wantPlatform, got.PlatformShare)
		})
	}
}

// The shares must always re-assemble into the gross amount exactly, whatever
// the rate configuration.
func TestSplitCompleteness(t *testing.T) {
	rates := []commission.Rates{
		commission.DefaultRates(),
		{TemporaryPct: decimal.NewFromFloat(17.5), AnnualPct: decimal.NewFromFloat(7.25)},
		{TemporaryPct: decimal.NewFromInt(100), AnnualPct: decimal.NewFromInt(0)},
	}

	for _, r := range rates {
		s := commission.NewSplitter(r)
		for gross := int64(0); gross < 1000; gross++ {
			for _, tier := range []commission.Tier{commission.TierTemporary, commission.TierAnnual} {
				got := s.Split(gross, tier, true)
				assert.Equal(t, gross, got.AdminShare+got.PlatformShare,
					"gross=%d tier=%s rates=%+v", gross, tier, r)
				assert.GreaterOrEqual(t, got.AdminShare, int64(0))
				assert.GreaterOrEqual(t, got.PlatformShare, int64(0))
			}
		}
	}
}

func TestTemporaryRateExceedsAnnual(t *testing.T) {
	s := commission.NewSplitter(commission.DefaultRates())

	temp := s.Split(100000, commission.TierTemporary, true)
	annual := s.Split(100000, commission.TierAnnual, true)

	assert.Greater(t, temp.AdminShare, annual.AdminShare)
}
