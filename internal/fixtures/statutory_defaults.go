package fixtures

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ==========================================
// PAYE BRACKETS
// ==========================================

// GetDefaultTaxBrackets returns the annual PAYE schedule, contiguous in (min, max].
// Each bracket carries the tax due on all income beneath it. The matching annual
// personal relief is payroll.DefaultEngineConfig().PersonalRelief.
func GetDefaultTaxBrackets(effectiveFrom time.Time) []payroll.TaxBracket {
	brackets := []struct {
		id         string
		min        int64
		max        *decimal.Decimal
		rate       string
		cumulative *decimal.Decimal
	}{
		{"paye-band-1", 0, decPtr(288000), "10", nil},
		{"paye-band-2", 288000, decPtr(388000), "25", decPtr(28800)},
		{"paye-band-3", 388000, decPtr(6000000), "30", decPtr(53800)},
		{"paye-band-4", 6000000, decPtr(9600000), "32.5", decPtr(1737400)},
		{"paye-band-5", 9600000, nil, "35", decPtr(2907400)},
	}

	result := make([]payroll.TaxBracket, 0, len(brackets))
	for _, b := range brackets {
		result = append(result, payroll.TaxBracket{
			ID:                 b.id,
			MinIncome:          dec(b.min),
			MaxIncome:          b.max,
			Rate:               rate(b.rate),
			CumulativeTaxBelow: b.cumulative,
			EffectiveFrom:      effectiveFrom,
			Status:             payroll.BracketStatusActive,
		})
	}
	return result
}

// ==========================================
// STATUTORY DEDUCTIONS
// ==========================================

// GetDefaultHealthBands returns the stepped health-fund table. The top band is open-ended.
func GetDefaultHealthBands() []payroll.DeductionBand {
	steps := []struct {
		max    int64 // 0 = open-ended
		amount int64
	}{
		{5999, 150},
		{7999, 300},
		{11999, 400},
		{14999, 500},
		{19999, 600},
		{24999, 750},
		{29999, 850},
		{34999, 900},
		{39999, 950},
		{44999, 1000},
		{49999, 1100},
		{59999, 1200},
		{69999, 1300},
		{79999, 1400},
		{89999, 1500},
		{99999, 1600},
		{0, 1700},
	}

	bands := make([]payroll.DeductionBand, 0, len(steps))
	lower := decimal.Zero
	for _, s := range steps {
		band := payroll.DeductionBand{MinSalary: lower, FixedContribution: dec(s.amount)}
		if s.max > 0 {
			band.MaxSalary = decPtr(s.max)
			lower = dec(s.max)
		}
		bands = append(bands, band)
	}
	return bands
}

func GetDefaultStatutoryTables() payroll.StatutoryTables {
	return payroll.StatutoryTables{
		HealthBands: GetDefaultHealthBands(),
		Pension: payroll.TieredContributionRule{
			RatePercent:   rate("6"),
			CeilingAmount: dec(2160),
		},
		HousingLevy: payroll.CappedLevyRule{
			RatePercent: rate("1.5"),
		},
	}
}
