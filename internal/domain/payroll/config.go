package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// EngineConfig - Policy inputs for the payroll engine. Nothing here is hard-coded in the engine.
type EngineConfig struct {
	StandardWorkingDays int
	StandardHoursPerDay decimal.Decimal
	OvertimeMultiplier  decimal.Decimal
	Rounding            money.Rounding

	// PensionPreTax deducts statutory and voluntary pension from taxable income.
	PensionPreTax bool

	// PersonalRelief is per pay period, or annual when AnnualBrackets is set.
	PersonalRelief    decimal.Decimal
	PayPeriodsPerYear int
	// AnnualBrackets annualises taxable income before the bracket walk and
	// spreads the resulting tax back over PayPeriodsPerYear.
	AnnualBrackets bool

	LateDeductionPerDay decimal.Decimal

	// Workers bounds batch concurrency. Zero means runtime.GOMAXPROCS(0).
	Workers int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		StandardWorkingDays: 22,
		StandardHoursPerDay: decimal.NewFromInt(8),
		OvertimeMultiplier:  decimal.NewFromFloat(1.5),
		Rounding:            money.DefaultRounding(),
		PensionPreTax:       true,
		PersonalRelief:      decimal.NewFromInt(28800),
		PayPeriodsPerYear:   12,
		AnnualBrackets:      true,
		LateDeductionPerDay: decimal.Zero,
	}
}

func (c EngineConfig) Validate() error {
	if c.StandardWorkingDays <= 0 {
		return fmt.Errorf("%w: standard working days must be positive, got %d", ErrConfiguration, c.StandardWorkingDays)
	}
	if !c.StandardHoursPerDay.IsPositive() {
		return fmt.Errorf("%w: standard hours per day must be positive, got %s", ErrConfiguration, c.StandardHoursPerDay)
	}
	if c.OvertimeMultiplier.IsNegative() {
		return fmt.Errorf("%w: overtime multiplier must be non-negative, got %s", ErrConfiguration, c.OvertimeMultiplier)
	}
	if err := c.Rounding.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.PersonalRelief.IsNegative() {
		return fmt.Errorf("%w: personal relief must be non-negative, got %s", ErrConfiguration, c.PersonalRelief)
	}
	if c.PayPeriodsPerYear <= 0 {
		return fmt.Errorf("%w: pay periods per year must be positive, got %d", ErrConfiguration, c.PayPeriodsPerYear)
	}
	if c.LateDeductionPerDay.IsNegative() {
		return fmt.Errorf("%w: late deduction per day must be non-negative, got %s", ErrConfiguration, c.LateDeductionPerDay)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrConfiguration, c.Workers)
	}
	return nil
}
