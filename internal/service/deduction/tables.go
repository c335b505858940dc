// Package deduction holds the statutory contribution lookups. Every function is
// pure: the result depends only on the pay figure and the configured table.
package deduction

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Tables is a validated, read-only copy of the statutory tables.
type Tables struct {
	healthBands []payroll.DeductionBand
	pension     payroll.TieredContributionRule
	housingLevy payroll.CappedLevyRule
}

// NewTables validates the configured tables once so the lookups can trust them.
func NewTables(cfg payroll.StatutoryTables) (*Tables, error) {
	bands := make([]payroll.DeductionBand, 0, len(cfg.HealthBands))
	for _, b := range cfg.HealthBands {
		if b.MaxSalary != nil {
			v := *b.MaxSalary
			b.MaxSalary = &v
		}
		bands = append(bands, b)
	}
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].MinSalary.LessThan(bands[j].MinSalary)
	})

	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	if err := validatePension(cfg.Pension); err != nil {
		return nil, err
	}
	if err := validateLevy(cfg.HousingLevy); err != nil {
		return nil, err
	}

	levy := cfg.HousingLevy
	if levy.CapAmount != nil {
		v := *levy.CapAmount
		levy.CapAmount = &v
	}
	return &Tables{healthBands: bands, pension: cfg.Pension, housingLevy: levy}, nil
}

func (t *Tables) HealthFundContribution(grossPay decimal.Decimal) (decimal.Decimal, error) {
	return HealthFundContribution(grossPay, t.healthBands)
}

func (t *Tables) PensionFundContribution(pensionablePay decimal.Decimal) (decimal.Decimal, error) {
	return PensionFundContribution(pensionablePay, t.pension)
}

func (t *Tables) HousingLevy(grossPay decimal.Decimal) (decimal.Decimal, error) {
	return HousingLevy(grossPay, t.housingLevy)
}

// HealthFundContribution looks up the band whose (MinSalary, MaxSalary] holds grossPay.
// The lowest band also covers zero. bands must be sorted and validated.
func HealthFundContribution(grossPay decimal.Decimal, bands []payroll.DeductionBand) (decimal.Decimal, error) {
	if grossPay.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: gross pay %s is negative", payroll.ErrInvalidInput, grossPay)
	}
	if len(bands) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no health fund bands configured", payroll.ErrConfiguration)
	}

	// first band whose upper bound reaches grossPay
	idx := sort.Search(len(bands), func(i int) bool {
		return bands[i].MaxSalary == nil || grossPay.LessThanOrEqual(*bands[i].MaxSalary)
	})
	if idx == len(bands) {
		// unreachable with a validated open-ended top band
		idx = len(bands) - 1
	}
	return bands[idx].FixedContribution, nil
}

// PensionFundContribution is min(pensionablePay * rate%, ceiling).
func PensionFundContribution(pensionablePay decimal.Decimal, rule payroll.TieredContributionRule) (decimal.Decimal, error) {
	if pensionablePay.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: pensionable pay %s is negative", payroll.ErrInvalidInput, pensionablePay)
	}
	return decimal.Min(money.Percent(pensionablePay, rule.RatePercent), rule.CeilingAmount), nil
}

// HousingLevy is grossPay * rate%, capped when the rule has a cap.
func HousingLevy(grossPay decimal.Decimal, rule payroll.CappedLevyRule) (decimal.Decimal, error) {
	if grossPay.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: gross pay %s is negative", payroll.ErrInvalidInput, grossPay)
	}
	levy := money.Percent(grossPay, rule.RatePercent)
	if rule.CapAmount != nil {
		levy = decimal.Min(levy, *rule.CapAmount)
	}
	return levy, nil
}

// ValidateBands applies the same partition rule as tax brackets: start at zero,
// contiguous, exactly one open-ended band and it is the last.
func ValidateBands(bands []payroll.DeductionBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: no health fund bands configured", payroll.ErrConfiguration)
	}
	if !bands[0].MinSalary.IsZero() {
		return fmt.Errorf("%w: lowest health fund band starts at %s, not 0", payroll.ErrConfiguration, bands[0].MinSalary)
	}
	for i, b := range bands {
		if b.FixedContribution.IsNegative() {
			return fmt.Errorf("%w: health fund band %d has a negative contribution", payroll.ErrConfiguration, i)
		}
		last := i == len(bands)-1
		if b.MaxSalary == nil {
			if !last {
				return fmt.Errorf("%w: health fund band %d is open-ended but not the highest", payroll.ErrConfiguration, i)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: highest health fund band must be open-ended", payroll.ErrConfiguration)
		}
		if !b.MinSalary.LessThan(*b.MaxSalary) {
			return fmt.Errorf("%w: health fund band %d has min %s >= max %s", payroll.ErrConfiguration, i, b.MinSalary, *b.MaxSalary)
		}
		if next := bands[i+1].MinSalary; !next.Equal(*b.MaxSalary) {
			return fmt.Errorf("%w: health fund bands %d and %d are not contiguous (%s / %s)",
				payroll.ErrConfiguration, i, i+1, *b.MaxSalary, next)
		}
	}
	return nil
}

func validatePension(rule payroll.TieredContributionRule) error {
	if !validator.IsPercent(rule.RatePercent) {
		return fmt.Errorf("%w: pension rate %s outside 0..100", payroll.ErrConfiguration, rule.RatePercent)
	}
	if rule.CeilingAmount.IsNegative() {
		return fmt.Errorf("%w: pension ceiling is negative", payroll.ErrConfiguration)
	}
	return nil
}

func validateLevy(rule payroll.CappedLevyRule) error {
	if !validator.IsPercent(rule.RatePercent) {
		return fmt.Errorf("%w: housing levy rate %s outside 0..100", payroll.ErrConfiguration, rule.RatePercent)
	}
	if rule.CapAmount != nil && rule.CapAmount.IsNegative() {
		return fmt.Errorf("%w: housing levy cap is negative", payroll.ErrConfiguration)
	}
	return nil
}
