package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// BracketStatus enum
type BracketStatus string

const (
	BracketStatusActive   BracketStatus = "active"
	BracketStatusInactive BracketStatus = "inactive"
	BracketStatusPending  BracketStatus = "pending"
	BracketStatusExpired  BracketStatus = "expired"
)

func (s BracketStatus) Valid() bool {
	switch s {
	case BracketStatusActive, BracketStatusInactive, BracketStatusPending, BracketStatusExpired:
		return true
	}
	return false
}

// TaxBracket - One progressive income-tax band.
// A bracket taxes income in (MinIncome, MaxIncome]; a nil MaxIncome is open-ended.
type TaxBracket struct {
	ID                 string
	MinIncome          decimal.Decimal
	MaxIncome          *decimal.Decimal
	Rate               decimal.Decimal // percent, 0..100
	CumulativeTaxBelow *decimal.Decimal
	EffectiveFrom      time.Time
	EffectiveTo        *time.Time
	Status             BracketStatus
}

func (b TaxBracket) OpenEnded() bool {
	return b.MaxIncome == nil
}

// EffectiveOn reports whether the calendar day of date falls inside the bracket's
// effective window (inclusive). The clock reading of either side is ignored.
func (b TaxBracket) EffectiveOn(date time.Time) bool {
	day := CalendarDate(date)
	if day.Before(CalendarDate(b.EffectiveFrom)) {
		return false
	}
	return b.EffectiveTo == nil || !day.After(CalendarDate(*b.EffectiveTo))
}

// CalendarDate returns midnight UTC of the day t falls on in its own location.
// Effective dates are calendar days, so they are compared through this.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BracketSet - The ordered active brackets resolved for one date
type BracketSet struct {
	ID       string
	AsOf     time.Time
	Brackets []TaxBracket
}

// DeductionBand - Stepped health-fund contribution for a salary range (MinSalary, MaxSalary]
type DeductionBand struct {
	MinSalary         decimal.Decimal
	MaxSalary         *decimal.Decimal
	FixedContribution decimal.Decimal
}

// TieredContributionRule - Pension-fund style percentage with a ceiling
type TieredContributionRule struct {
	RatePercent   decimal.Decimal
	CeilingAmount decimal.Decimal
}

// CappedLevyRule - Housing-levy style percentage with an optional cap
type CappedLevyRule struct {
	RatePercent decimal.Decimal
	CapAmount   *decimal.Decimal
}

// StatutoryTables - Reference data for the statutory deductions
type StatutoryTables struct {
	HealthBands []DeductionBand
	Pension     TieredContributionRule
	HousingLevy CappedLevyRule
}

// TaxStep - One bracket's contribution to a PAYE figure
type TaxStep struct {
	BracketID       string          `json:"bracket_id"`
	IncomeInBracket decimal.Decimal `json:"income_in_bracket"`
	Rate            decimal.Decimal `json:"rate"`
	BracketTax      decimal.Decimal `json:"bracket_tax"`
	CumulativeTax   decimal.Decimal `json:"cumulative_tax"`
}

// PAYEResult - Output of the progressive bracket walk
type PAYEResult struct {
	GrossIncome    decimal.Decimal `json:"gross_income"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	PersonalRelief decimal.Decimal `json:"personal_relief"`
	NetTax         decimal.Decimal `json:"net_tax"`
	EffectiveRate  decimal.Decimal `json:"effective_rate"`
	Steps          []TaxStep       `json:"steps"`
}

// SalaryBasis enum
type SalaryBasis string

const (
	SalaryBasisMonthly SalaryBasis = "monthly"
	SalaryBasisAnnual  SalaryBasis = "annual"
)

// PayComponent - Named amount (allowance, bonus, loan, fixed deduction).
// TaxExempt earnings count towards gross but not towards taxable income.
type PayComponent struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	TaxExempt bool            `json:"tax_exempt,omitempty"`
}

// AttendanceRecord - Supplied by the attendance system, immutable input
type AttendanceRecord struct {
	EmployeeID    string          `json:"employee_id"`
	DaysWorked    decimal.Decimal `json:"days_worked"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	AbsentDays    decimal.Decimal `json:"absent_days"`
	LateDays      int             `json:"late_days"`
}

// EmployeeCompensationProfile - Supplied by the HR record store
type EmployeeCompensationProfile struct {
	EmployeeID                     string          `json:"employee_id"`
	BaseSalary                     decimal.Decimal `json:"base_salary"`
	SalaryBasis                    SalaryBasis     `json:"salary_basis"`
	Allowances                     []PayComponent  `json:"allowances"`
	PensionContributionRatePercent decimal.Decimal `json:"pension_contribution_rate_percent"`
	ActiveLoanDeductions           []PayComponent  `json:"active_loan_deductions"`
	OtherFixedDeductions           []PayComponent  `json:"other_fixed_deductions"`
}

// Employee - Identity fields carried onto results and payslips
type Employee struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// EmployeeInput - Everything one employee's calculation needs
type EmployeeInput struct {
	Employee   Employee                    `json:"employee"`
	Profile    EmployeeCompensationProfile `json:"profile"`
	Attendance *AttendanceRecord           `json:"attendance"`
	Bonuses    []PayComponent              `json:"bonuses"`
}

// Period - Pay period dates
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	PayDate   time.Time `json:"pay_date"`
}

func (p Period) FiscalYear() int {
	return p.PayDate.Year()
}

type Earnings struct {
	BaseSalary       decimal.Decimal            `json:"base_salary"`
	Overtime         decimal.Decimal            `json:"overtime"`
	Bonuses          decimal.Decimal            `json:"bonuses"`
	Allowances       decimal.Decimal            `json:"allowances"`
	Gross            decimal.Decimal            `json:"gross"`
	AllowancesDetail map[string]decimal.Decimal `json:"allowances_detail,omitempty"`
}

type Deductions struct {
	IncomeTax               decimal.Decimal            `json:"income_tax"`
	HealthFundContribution  decimal.Decimal            `json:"health_fund_contribution"`
	PensionFundContribution decimal.Decimal            `json:"pension_fund_contribution"`
	HousingLevy             decimal.Decimal            `json:"housing_levy"`
	VoluntaryPension        decimal.Decimal            `json:"voluntary_pension"`
	Loans                   decimal.Decimal            `json:"loans"`
	Other                   decimal.Decimal            `json:"other"`
	Total                   decimal.Decimal            `json:"total"`
	OtherDetail             map[string]decimal.Decimal `json:"other_detail,omitempty"`
}

// PayrollCalculationResult - One employee's payroll for one period. Never mutated after creation.
type PayrollCalculationResult struct {
	ID                  string          `json:"id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeCode        string          `json:"employee_code,omitempty"`
	EmployeeName        string          `json:"employee_name,omitempty"`
	Period              Period          `json:"period"`
	Earnings            Earnings        `json:"earnings"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	Deductions          Deductions      `json:"deductions"`
	NetPay              decimal.Decimal `json:"net_pay"`
	AppliedBracketSetID string          `json:"applied_bracket_set_id"`
	Tax                 PAYEResult      `json:"tax"`
}

// OutcomeStatus enum
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// EmployeeOutcome - Per-employee slot of a batch, in input order
type EmployeeOutcome struct {
	EmployeeID string                    `json:"employee_id"`
	Status     OutcomeStatus             `json:"status"`
	Result     *PayrollCalculationResult `json:"result,omitempty"`
	Err        error                     `json:"-"`
	Error      string                    `json:"error,omitempty"`
}

// PayrollBatchResult - Derived aggregate of a batch run
type PayrollBatchResult struct {
	Period              Period            `json:"period"`
	AppliedBracketSetID string            `json:"applied_bracket_set_id"`
	Outcomes            []EmployeeOutcome `json:"outcomes"`
	TotalGross          decimal.Decimal   `json:"total_gross"`
	TotalNet            decimal.Decimal   `json:"total_net"`
	TotalDeductions     decimal.Decimal   `json:"total_deductions"`
	TotalTax            decimal.Decimal   `json:"total_tax"`
	EmployeeCount       int               `json:"employee_count"`
	FailureCount        int               `json:"failure_count"`
	Cancelled           bool              `json:"cancelled"`
}

// Results returns the successful results in input order.
func (b PayrollBatchResult) Results() []PayrollCalculationResult {
	results := make([]PayrollCalculationResult, 0, b.EmployeeCount)
	for _, o := range b.Outcomes {
		if o.Status == OutcomeSucceeded && o.Result != nil {
			results = append(results, *o.Result)
		}
	}
	return results
}
