package payroll

import (
	"github.com/shopspring/decimal"
)

// YearToDate - Running totals across prior periods of one fiscal year
type YearToDate struct {
	FiscalYear      int             `json:"fiscal_year"`
	GrossEarnings   decimal.Decimal `json:"gross_earnings"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
	TaxPaid         decimal.Decimal `json:"tax_paid"`
}

// Add returns the accumulator with result folded in. The receiver is left untouched.
func (y YearToDate) Add(result PayrollCalculationResult) YearToDate {
	fiscalYear := y.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = result.Period.FiscalYear()
	}
	return YearToDate{
		FiscalYear:      fiscalYear,
		GrossEarnings:   y.GrossEarnings.Add(result.Earnings.Gross),
		TotalDeductions: y.TotalDeductions.Add(result.Deductions.Total),
		NetPay:          y.NetPay.Add(result.NetPay),
		TaxPaid:         y.TaxPaid.Add(result.Deductions.IncomeTax),
	}
}

// Payslip - Presentation-stable projection of one calculation result
type Payslip struct {
	ID                  string          `json:"id"`
	ResultID            string          `json:"result_id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeCode        string          `json:"employee_code,omitempty"`
	EmployeeName        string          `json:"employee_name,omitempty"`
	Period              Period          `json:"period"`
	Earnings            Earnings        `json:"earnings"`
	Deductions          Deductions      `json:"deductions"`
	NetPay              decimal.Decimal `json:"net_pay"`
	AppliedBracketSetID string          `json:"applied_bracket_set_id"`
	YTDTotals           YearToDate      `json:"ytd_totals"`
}
