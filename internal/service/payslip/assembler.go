package payslip

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/google/uuid"
)

var payslipNamespace = uuid.MustParse("a4e2c9d1-7f36-4b8a-9e05-6c1d3b7f2e98")

type AssemblerImpl struct{}

func NewAssembler() payroll.PayslipAssembler {
	return &AssemblerImpl{}
}

// Assemble projects result onto a payslip and rolls ytd forward by it. Nothing is
// recalculated: a result computed against a stale bracket set has to be re-run first.
func (a *AssemblerImpl) Assemble(result payroll.PayrollCalculationResult, ytd payroll.YearToDate) (payroll.Payslip, error) {
	if result.EmployeeID == "" {
		return payroll.Payslip{}, fmt.Errorf("%w: calculation result has no employee id", payroll.ErrInvalidInput)
	}
	if result.Period.PayDate.IsZero() {
		return payroll.Payslip{}, fmt.Errorf("%w: calculation result has no pay date", payroll.ErrInvalidInput)
	}
	if fy := result.Period.FiscalYear(); ytd.FiscalYear != 0 && ytd.FiscalYear != fy {
		return payroll.Payslip{}, fmt.Errorf("%w: year-to-date totals are for %d, result is paid in %d",
			payroll.ErrInvalidInput, ytd.FiscalYear, fy)
	}

	earnings := result.Earnings
	earnings.AllowancesDetail = maps.Clone(result.Earnings.AllowancesDetail)
	deductions := result.Deductions
	deductions.OtherDetail = maps.Clone(result.Deductions.OtherDetail)

	return payroll.Payslip{
		ID:                  payslipID(result.EmployeeID, result.Period),
		ResultID:            result.ID,
		EmployeeID:          result.EmployeeID,
		EmployeeCode:        result.EmployeeCode,
		EmployeeName:        result.EmployeeName,
		Period:              result.Period,
		Earnings:            earnings,
		Deductions:          deductions,
		NetPay:              result.NetPay,
		AppliedBracketSetID: result.AppliedBracketSetID,
		YTDTotals:           ytd.Add(result),
	}, nil
}

func payslipID(employeeID string, period payroll.Period) string {
	key := strings.Join([]string{
		employeeID,
		period.StartDate.Format(time.DateOnly),
		period.EndDate.Format(time.DateOnly),
	}, "|")
	return uuid.NewSHA1(payslipNamespace, []byte(key)).String()
}
