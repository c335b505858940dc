package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BracketProvider resolves the active bracket set for a date.
type BracketProvider interface {
	ActiveBracketsAsOf(date time.Time) (BracketSet, error)
}

// BracketRegistry is the editable store behind BracketProvider.
type BracketRegistry interface {
	BracketProvider
	AddBracket(candidate TaxBracket) (string, error)
	UpdateBracket(id string, changes UpdateTaxBracketRequest) error
	Activate(id string) error
	Deactivate(id string) error
	ExpireElapsed(now time.Time) int
	Load(brackets []TaxBracket) error
	Brackets() []TaxBracket
}

// StatutoryDeductions looks up the statutory contributions for one pay figure.
type StatutoryDeductions interface {
	HealthFundContribution(grossPay decimal.Decimal) (decimal.Decimal, error)
	PensionFundContribution(pensionablePay decimal.Decimal) (decimal.Decimal, error)
	HousingLevy(grossPay decimal.Decimal) (decimal.Decimal, error)
}

type TaxCalculator interface {
	Calculate(taxableIncome decimal.Decimal, set BracketSet, personalRelief decimal.Decimal) (PAYEResult, error)
}

type PayrollEngine interface {
	Calculate(input EmployeeInput, period Period) (PayrollCalculationResult, error)
	CalculateBatch(ctx context.Context, inputs []EmployeeInput, period Period) (PayrollBatchResult, error)
}

type PayslipAssembler interface {
	Assemble(result PayrollCalculationResult, ytd YearToDate) (Payslip, error)
}
