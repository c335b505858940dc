package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== TAX BRACKET ==========

// Validate checks a bracket on its own. Overlap against other brackets is the registry's job.
func (b TaxBracket) Validate() error {
	if b.MinIncome.IsNegative() {
		return fmt.Errorf("%w: min_income %s is negative", ErrInvalidRange, b.MinIncome)
	}
	if b.MaxIncome != nil && !b.MinIncome.LessThan(*b.MaxIncome) {
		return fmt.Errorf("%w: min_income %s must be below max_income %s", ErrInvalidRange, b.MinIncome, *b.MaxIncome)
	}
	if !validator.IsPercent(b.Rate) {
		return fmt.Errorf("%w: got %s", ErrInvalidRate, b.Rate)
	}
	if b.CumulativeTaxBelow != nil && b.CumulativeTaxBelow.IsNegative() {
		return fmt.Errorf("%w: cumulative_tax_below must be non-negative", ErrInvalidInput)
	}
	if b.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: effective_from is required", ErrInvalidDates)
	}
	if b.EffectiveTo != nil && CalendarDate(*b.EffectiveTo).Before(CalendarDate(b.EffectiveFrom)) {
		return fmt.Errorf("%w: effective_to %s precedes effective_from %s", ErrInvalidDates,
			b.EffectiveTo.Format("2006-01-02"), b.EffectiveFrom.Format("2006-01-02"))
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, b.Status)
	}
	return nil
}

// UpdateTaxBracketRequest - Partial edit of a bracket. Status moves through Activate/Deactivate only.
type UpdateTaxBracketRequest struct {
	MinIncome          *decimal.Decimal
	MaxIncome          *decimal.Decimal
	OpenEnded          bool // clears MaxIncome
	Rate               *decimal.Decimal
	CumulativeTaxBelow *decimal.Decimal
	EffectiveFrom      *time.Time
	EffectiveTo        *time.Time
	ClearEffectiveTo   bool
}

// Apply returns a copy of b with the requested changes.
func (r UpdateTaxBracketRequest) Apply(b TaxBracket) TaxBracket {
	if r.MinIncome != nil {
		b.MinIncome = *r.MinIncome
	}
	if r.OpenEnded {
		b.MaxIncome = nil
	} else if r.MaxIncome != nil {
		maxIncome := *r.MaxIncome
		b.MaxIncome = &maxIncome
	}
	if r.Rate != nil {
		b.Rate = *r.Rate
	}
	if r.CumulativeTaxBelow != nil {
		cumulative := *r.CumulativeTaxBelow
		b.CumulativeTaxBelow = &cumulative
	}
	if r.EffectiveFrom != nil {
		b.EffectiveFrom = *r.EffectiveFrom
	}
	if r.ClearEffectiveTo {
		b.EffectiveTo = nil
	} else if r.EffectiveTo != nil {
		effectiveTo := *r.EffectiveTo
		b.EffectiveTo = &effectiveTo
	}
	return b
}

// ========== CALCULATION INPUTS ==========

func (a AttendanceRecord) Validate(standardWorkingDays int) error {
	var errs validator.ValidationErrors

	errs = validator.NonNegative(errs, "days_worked", a.DaysWorked)
	errs = validator.NonNegative(errs, "overtime_hours", a.OvertimeHours)
	errs = validator.NonNegative(errs, "absent_days", a.AbsentDays)
	if a.LateDays < 0 {
		errs = append(errs, validator.ValidationError{Field: "late_days", Message: "must be non-negative"})
	}
	if standardWorkingDays > 0 && a.DaysWorked.GreaterThan(decimal.NewFromInt(int64(standardWorkingDays))) {
		errs = append(errs, validator.ValidationError{
			Field:   "days_worked",
			Message: fmt.Sprintf("must not exceed %d standard working days", standardWorkingDays),
		})
	}

	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: attendance: %v", ErrInvalidInput, err)
	}
	return nil
}

func (p EmployeeCompensationProfile) Validate() error {
	var errs validator.ValidationErrors

	errs = validator.NonNegative(errs, "base_salary", p.BaseSalary)
	if p.SalaryBasis != "" && p.SalaryBasis != SalaryBasisMonthly && p.SalaryBasis != SalaryBasisAnnual {
		errs = append(errs, validator.ValidationError{Field: "salary_basis", Message: "must be 'monthly' or 'annual'"})
	}
	if !validator.IsPercent(p.PensionContributionRatePercent) {
		errs = append(errs, validator.ValidationError{Field: "pension_contribution_rate_percent", Message: "must be between 0 and 100"})
	}
	errs = validateComponents(errs, "allowances", p.Allowances)
	errs = validateComponents(errs, "active_loan_deductions", p.ActiveLoanDeductions)
	errs = validateComponents(errs, "other_fixed_deductions", p.OtherFixedDeductions)

	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: compensation profile: %v", ErrInvalidInput, err)
	}
	return nil
}

func (p Period) Validate() error {
	var errs validator.ValidationErrors

	if p.StartDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "is required"})
	}
	if p.EndDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "is required"})
	}
	if p.PayDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "pay_date", Message: "is required"})
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not precede start_date"})
	}

	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: period: %v", ErrInvalidInput, err)
	}
	return nil
}

func validateComponents(errs validator.ValidationErrors, field string, components []PayComponent) validator.ValidationErrors {
	names := make([]string, 0, len(components))
	amounts := make([]decimal.Decimal, 0, len(components))
	for _, c := range components {
		names = append(names, c.Name)
		amounts = append(amounts, c.Amount)
	}
	return validator.NonNegativeComponents(errs, field, names, amounts)
}
