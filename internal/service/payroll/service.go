package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine/internal/service/paye"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var resultNamespace = uuid.MustParse("3d0b8f6e-95a4-4c1e-8b7a-1e52c9f0d4a7")

const lateDeductionName = "late_attendance"

type PayrollEngineImpl struct {
	cfg        payroll.EngineConfig
	brackets   payroll.BracketProvider
	statutory  payroll.StatutoryDeductions
	calculator payroll.TaxCalculator
	logger     *slog.Logger
}

// NewPayrollEngine validates cfg and wires the engine. A nil calculator uses the
// progressive PAYE walk; a nil logger uses slog.Default().
func NewPayrollEngine(
	cfg payroll.EngineConfig,
	brackets payroll.BracketProvider,
	deductions payroll.StatutoryDeductions,
	calculator payroll.TaxCalculator,
	logger *slog.Logger,
) (payroll.PayrollEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if brackets == nil || deductions == nil {
		return nil, fmt.Errorf("%w: bracket provider and statutory deductions are required", payroll.ErrConfiguration)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if calculator == nil {
		calculator = paye.NewCalculator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollEngineImpl{
		cfg:        cfg,
		brackets:   brackets,
		statutory:  deductions,
		calculator: calculator,
		logger:     logger,
	}, nil
}

// ========== SINGLE EMPLOYEE ==========

func (e *PayrollEngineImpl) Calculate(input payroll.EmployeeInput, period payroll.Period) (payroll.PayrollCalculationResult, error) {
	if err := period.Validate(); err != nil {
		return payroll.PayrollCalculationResult{}, err
	}
	set, err := e.brackets.ActiveBracketsAsOf(period.PayDate)
	if err != nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("failed to resolve tax brackets: %w", err)
	}
	return e.calculate(input, period, set)
}

func (e *PayrollEngineImpl) calculate(input payroll.EmployeeInput, period payroll.Period, set payroll.BracketSet) (payroll.PayrollCalculationResult, error) {
	employeeID := inputEmployeeID(input)
	if err := e.validateInput(employeeID, input); err != nil {
		return payroll.PayrollCalculationResult{}, err
	}

	earnings, taxExempt := e.earnings(input)
	deductions, taxable, tax, err := e.deductions(input, earnings, taxExempt, set)
	if err != nil {
		return payroll.PayrollCalculationResult{}, fmt.Errorf("employee %s: %w", employeeID, err)
	}

	netPay := earnings.Gross.Sub(deductions.Total)
	if netPay.IsNegative() {
		return payroll.PayrollCalculationResult{}, &payroll.NegativeNetPayError{
			EmployeeID: employeeID,
			Gross:      earnings.Gross,
			Deductions: deductions.Total,
		}
	}

	return payroll.PayrollCalculationResult{
		ID:                  resultID(employeeID, period, set.ID),
		EmployeeID:          employeeID,
		EmployeeCode:        input.Employee.Code,
		EmployeeName:        input.Employee.Name,
		Period:              period,
		Earnings:            earnings,
		TaxableIncome:       taxable,
		Deductions:          deductions,
		NetPay:              netPay,
		AppliedBracketSetID: set.ID,
		Tax:                 tax,
	}, nil
}

func (e *PayrollEngineImpl) validateInput(employeeID string, input payroll.EmployeeInput) error {
	if validator.IsEmpty(employeeID) {
		return fmt.Errorf("%w: employee id is required", payroll.ErrInvalidInput)
	}
	if input.Attendance == nil {
		return fmt.Errorf("employee %s: %w", employeeID, payroll.ErrMissingAttendance)
	}
	if id := input.Attendance.EmployeeID; id != "" && id != employeeID {
		return fmt.Errorf("%w: attendance record belongs to %s, not %s", payroll.ErrInvalidInput, id, employeeID)
	}
	if err := input.Profile.Validate(); err != nil {
		return fmt.Errorf("employee %s: %w", employeeID, err)
	}
	if err := input.Attendance.Validate(e.cfg.StandardWorkingDays); err != nil {
		return fmt.Errorf("employee %s: %w", employeeID, err)
	}
	for _, b := range input.Bonuses {
		if b.Amount.IsNegative() {
			return fmt.Errorf("%w: employee %s: bonus %q is negative", payroll.ErrInvalidInput, employeeID, b.Name)
		}
	}
	return nil
}

// earnings returns the rounded earnings and the tax-exempt share of them.
func (e *PayrollEngineImpl) earnings(input payroll.EmployeeInput) (payroll.Earnings, decimal.Decimal) {
	round := e.cfg.Rounding.Apply
	att := input.Attendance

	periodBase := e.periodBase(input.Profile)
	days := decimal.NewFromInt(int64(e.cfg.StandardWorkingDays))

	// base / days × days worked, overtime at base / (days × hours) × multiplier
	base := round(periodBase.Mul(att.DaysWorked).Div(days))
	overtime := round(periodBase.Mul(e.cfg.OvertimeMultiplier).Mul(att.OvertimeHours).
		Div(days.Mul(e.cfg.StandardHoursPerDay)))

	taxExempt := decimal.Zero

	bonuses := decimal.Zero
	for _, b := range input.Bonuses {
		amount := round(b.Amount)
		bonuses = bonuses.Add(amount)
		if b.TaxExempt {
			taxExempt = taxExempt.Add(amount)
		}
	}

	allowances := decimal.Zero
	var detail map[string]decimal.Decimal
	for _, a := range input.Profile.Allowances {
		amount := round(a.Amount)
		allowances = allowances.Add(amount)
		if a.TaxExempt {
			taxExempt = taxExempt.Add(amount)
		}
		if detail == nil {
			detail = make(map[string]decimal.Decimal)
		}
		detail[a.Name] = detail[a.Name].Add(amount)
	}

	return payroll.Earnings{
		BaseSalary:       base,
		Overtime:         overtime,
		Bonuses:          bonuses,
		Allowances:       allowances,
		Gross:            money.Sum(base, overtime, bonuses, allowances),
		AllowancesDetail: detail,
	}, taxExempt
}

func (e *PayrollEngineImpl) deductions(
	input payroll.EmployeeInput,
	earnings payroll.Earnings,
	taxExempt decimal.Decimal,
	set payroll.BracketSet,
) (payroll.Deductions, decimal.Decimal, payroll.PAYEResult, error) {
	round := e.cfg.Rounding.Apply
	gross := earnings.Gross

	health, err := e.statutory.HealthFundContribution(gross)
	if err != nil {
		return payroll.Deductions{}, decimal.Zero, payroll.PAYEResult{}, err
	}
	pension, err := e.statutory.PensionFundContribution(gross)
	if err != nil {
		return payroll.Deductions{}, decimal.Zero, payroll.PAYEResult{}, err
	}
	housing, err := e.statutory.HousingLevy(gross)
	if err != nil {
		return payroll.Deductions{}, decimal.Zero, payroll.PAYEResult{}, err
	}
	health, pension, housing = round(health), round(pension), round(housing)

	voluntary := round(money.Percent(earnings.BaseSalary, input.Profile.PensionContributionRatePercent))

	loans := decimal.Zero
	for _, l := range input.Profile.ActiveLoanDeductions {
		loans = loans.Add(round(l.Amount))
	}

	other := decimal.Zero
	var otherDetail map[string]decimal.Decimal
	addOther := func(name string, amount decimal.Decimal) {
		other = other.Add(amount)
		if otherDetail == nil {
			otherDetail = make(map[string]decimal.Decimal)
		}
		otherDetail[name] = otherDetail[name].Add(amount)
	}
	for _, d := range input.Profile.OtherFixedDeductions {
		addOther(d.Name, round(d.Amount))
	}
	if late := input.Attendance.LateDays; late > 0 && e.cfg.LateDeductionPerDay.IsPositive() {
		addOther(lateDeductionName, round(e.cfg.LateDeductionPerDay.Mul(decimal.NewFromInt(int64(late)))))
	}

	taxable := gross.Sub(taxExempt)
	if e.cfg.PensionPreTax {
		taxable = taxable.Sub(pension).Sub(voluntary)
	}
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	incomeTax, tax, err := e.incomeTax(taxable, set)
	if err != nil {
		return payroll.Deductions{}, decimal.Zero, payroll.PAYEResult{}, err
	}

	return payroll.Deductions{
		IncomeTax:               incomeTax,
		HealthFundContribution:  health,
		PensionFundContribution: pension,
		HousingLevy:             housing,
		VoluntaryPension:        voluntary,
		Loans:                   loans,
		Other:                   other,
		Total:                   money.Sum(incomeTax, health, pension, housing, voluntary, loans, other),
		OtherDetail:             otherDetail,
	}, taxable, tax, nil
}

// incomeTax returns the period's rounded PAYE and the walk it came from. With
// annual brackets the walk runs on the annualised income.
func (e *PayrollEngineImpl) incomeTax(taxable decimal.Decimal, set payroll.BracketSet) (decimal.Decimal, payroll.PAYEResult, error) {
	if !e.cfg.AnnualBrackets {
		tax, err := e.calculator.Calculate(taxable, set, e.cfg.PersonalRelief)
		if err != nil {
			return decimal.Zero, payroll.PAYEResult{}, err
		}
		return e.cfg.Rounding.Apply(tax.NetTax), tax, nil
	}

	periods := decimal.NewFromInt(int64(e.cfg.PayPeriodsPerYear))
	tax, err := e.calculator.Calculate(taxable.Mul(periods), set, e.cfg.PersonalRelief)
	if err != nil {
		return decimal.Zero, payroll.PAYEResult{}, err
	}
	return e.cfg.Rounding.Apply(tax.NetTax.Div(periods)), tax, nil
}

func (e *PayrollEngineImpl) periodBase(p payroll.EmployeeCompensationProfile) decimal.Decimal {
	if p.SalaryBasis == payroll.SalaryBasisAnnual {
		return p.BaseSalary.Div(decimal.NewFromInt(int64(e.cfg.PayPeriodsPerYear)))
	}
	return p.BaseSalary
}

func resultID(employeeID string, period payroll.Period, bracketSetID string) string {
	key := strings.Join([]string{
		employeeID,
		period.StartDate.Format(time.DateOnly),
		period.EndDate.Format(time.DateOnly),
		period.PayDate.Format(time.DateOnly),
		bracketSetID,
	}, "|")
	return uuid.NewSHA1(resultNamespace, []byte(key)).String()
}

// ========== BATCH ==========

// CalculateBatch runs Calculate for every input on a bounded worker pool against one
// bracket set. Employee failures are recorded per outcome; a configuration error aborts
// the batch. On context cancellation the outcomes computed so far are returned with
// Cancelled set.
func (e *PayrollEngineImpl) CalculateBatch(ctx context.Context, inputs []payroll.EmployeeInput, period payroll.Period) (payroll.PayrollBatchResult, error) {
	if err := period.Validate(); err != nil {
		return payroll.PayrollBatchResult{}, err
	}
	set, err := e.brackets.ActiveBracketsAsOf(period.PayDate)
	if err != nil {
		e.logger.Error("payroll batch aborted", "pay_date", period.PayDate.Format(time.DateOnly), "error", err)
		return payroll.PayrollBatchResult{}, fmt.Errorf("failed to resolve tax brackets: %w", err)
	}

	started := time.Now()
	outcomes := make([]payroll.EmployeeOutcome, len(inputs))
	for i, input := range inputs {
		outcomes[i] = payroll.EmployeeOutcome{EmployeeID: inputEmployeeID(input), Status: payroll.OutcomeCancelled}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, input := range inputs {
		i, input := i, input
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result, err := e.calculate(input, period, set)
			if err != nil {
				outcomes[i] = failedOutcome(input, err)
				if errors.Is(err, payroll.ErrConfiguration) {
					return err
				}
				e.logger.Warn("payroll calculation failed", "employee_id", outcomes[i].EmployeeID, "error", err)
				return nil
			}
			outcomes[i] = payroll.EmployeeOutcome{
				EmployeeID: result.EmployeeID,
				Status:     payroll.OutcomeSucceeded,
				Result:     &result,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("payroll batch aborted", "bracket_set_id", set.ID, "error", err)
		return payroll.PayrollBatchResult{}, err
	}

	batch := aggregate(period, set.ID, outcomes)

	e.logger.Info("payroll batch calculated",
		"bracket_set_id", set.ID,
		"employees", len(inputs),
		"succeeded", batch.EmployeeCount,
		"failed", batch.FailureCount,
		"cancelled", batch.Cancelled,
		"total_net", batch.TotalNet.StringFixed(e.cfg.Rounding.Places),
		"duration", time.Since(started),
	)
	return batch, nil
}

// aggregate sums the successful results. Individual results are never modified.
func aggregate(period payroll.Period, bracketSetID string, outcomes []payroll.EmployeeOutcome) payroll.PayrollBatchResult {
	batch := payroll.PayrollBatchResult{
		Period:              period,
		AppliedBracketSetID: bracketSetID,
		Outcomes:            outcomes,
		TotalGross:          decimal.Zero,
		TotalNet:            decimal.Zero,
		TotalDeductions:     decimal.Zero,
		TotalTax:            decimal.Zero,
	}
	for _, o := range outcomes {
		switch o.Status {
		case payroll.OutcomeSucceeded:
			batch.TotalGross = batch.TotalGross.Add(o.Result.Earnings.Gross)
			batch.TotalNet = batch.TotalNet.Add(o.Result.NetPay)
			batch.TotalDeductions = batch.TotalDeductions.Add(o.Result.Deductions.Total)
			batch.TotalTax = batch.TotalTax.Add(o.Result.Deductions.IncomeTax)
			batch.EmployeeCount++
		case payroll.OutcomeFailed:
			batch.FailureCount++
		case payroll.OutcomeCancelled:
			batch.Cancelled = true
		}
	}
	return batch
}

func failedOutcome(input payroll.EmployeeInput, err error) payroll.EmployeeOutcome {
	return payroll.EmployeeOutcome{
		EmployeeID: inputEmployeeID(input),
		Status:     payroll.OutcomeFailed,
		Err:        err,
		Error:      err.Error(),
	}
}

func inputEmployeeID(input payroll.EmployeeInput) string {
	if input.Employee.ID != "" {
		return input.Employee.ID
	}
	return input.Profile.EmployeeID
}
