package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var effective = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testBracket(id string, min int64, max int64, rate string) TaxBracket {
	b := TaxBracket{
		ID:            id,
		MinIncome:     decimal.NewFromInt(min),
		Rate:          decimal.RequireFromString(rate),
		EffectiveFrom: effective,
		Status:        BracketStatusActive,
	}
	if max > 0 {
		m := decimal.NewFromInt(max)
		b.MaxIncome = &m
	}
	return b
}

func TestNewBracketSet_SortsAndIdentifies(t *testing.T) {
	brackets := []TaxBracket{
		testBracket("top", 388000, 0, "30"),
		testBracket("low", 0, 288000, "10"),
		testBracket("mid", 288000, 388000, "25"),
	}

	set, err := NewBracketSet(effective, brackets)
	require.NoError(t, err)
	require.Len(t, set.Brackets, 3)
	assert.Equal(t, "low", set.Brackets[0].ID)
	assert.Equal(t, "mid", set.Brackets[1].ID)
	assert.Equal(t, "top", set.Brackets[2].ID)
	assert.NotEmpty(t, set.ID)

	// input slice order is untouched
	assert.Equal(t, "top", brackets[0].ID)

	again, err := NewBracketSet(effective.AddDate(0, 6, 0), []TaxBracket{brackets[1], brackets[2], brackets[0]})
	require.NoError(t, err)
	assert.Equal(t, set.ID, again.ID)

	changed := brackets[2]
	changed.Rate = decimal.NewFromInt(26)
	other, err := NewBracketSet(effective, []TaxBracket{brackets[0], brackets[1], changed})
	require.NoError(t, err)
	assert.NotEqual(t, set.ID, other.ID)
}

func TestBracketSet_Validate(t *testing.T) {
	cases := []struct {
		name     string
		brackets []TaxBracket
	}{
		{"empty", nil},
		{"no open-ended bracket", []TaxBracket{testBracket("a", 0, 100, "10")}},
		{"two open-ended brackets", []TaxBracket{testBracket("a", 0, 0, "10"), testBracket("b", 100, 0, "20")}},
		{"does not start at zero", []TaxBracket{testBracket("a", 1, 0, "10")}},
		{"gap", []TaxBracket{testBracket("a", 0, 100, "10"), testBracket("b", 101, 0, "20")}},
		{"overlap", []TaxBracket{testBracket("a", 0, 100, "10"), testBracket("b", 99, 0, "20")}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewBracketSet(effective, c.brackets)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestTaxBracket_EffectiveOn(t *testing.T) {
	b := testBracket("a", 0, 0, "10")
	end := effective.AddDate(0, 11, 30)
	b.EffectiveTo = &end

	assert.False(t, b.EffectiveOn(effective.Add(-time.Second)))
	assert.True(t, b.EffectiveOn(effective))
	assert.True(t, b.EffectiveOn(end))
	assert.False(t, b.EffectiveOn(end.AddDate(0, 0, 1)))
}

func TestTaxBracket_EffectiveOn_ComparesCalendarDays(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	lastDay := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	firstDay := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	firstHalf := testBracket("h1", 0, 0, "10")
	firstHalf.EffectiveTo = &lastDay
	secondHalf := testBracket("h2", 0, 0, "10")
	secondHalf.EffectiveFrom = firstDay

	cases := []struct {
		name       string
		date       time.Time
		firstHalf  bool
		secondHalf bool
	}{
		{"last day morning", time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC), true, false},
		{"last day before midnight", time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC), true, false},
		{"first day with offset", time.Date(2024, 7, 1, 0, 0, 0, 0, eat), false, true},
		{"first day late evening", time.Date(2024, 7, 1, 22, 30, 0, 0, eat), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.firstHalf, firstHalf.EffectiveOn(tc.date))
			assert.Equal(t, tc.secondHalf, secondHalf.EffectiveOn(tc.date))
		})
	}
}

func TestCalendarDate(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)

	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), CalendarDate(time.Date(2024, 7, 1, 0, 0, 0, 0, eat)))
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), CalendarDate(time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)))
}

func TestTaxBracket_Validate(t *testing.T) {
	before := effective.AddDate(0, 0, -1)
	cases := []struct {
		name   string
		mutate func(b *TaxBracket)
		want   error
	}{
		{"negative min", func(b *TaxBracket) { b.MinIncome = decimal.NewFromInt(-1) }, ErrInvalidRange},
		{"min equals max", func(b *TaxBracket) { m := b.MinIncome; b.MaxIncome = &m }, ErrInvalidRange},
		{"rate above 100", func(b *TaxBracket) { b.Rate = decimal.NewFromInt(101) }, ErrInvalidRate},
		{"negative rate", func(b *TaxBracket) { b.Rate = decimal.NewFromInt(-1) }, ErrInvalidRate},
		{"missing effective from", func(b *TaxBracket) { b.EffectiveFrom = time.Time{} }, ErrInvalidDates},
		{"effective to before from", func(b *TaxBracket) { b.EffectiveTo = &before }, ErrInvalidDates},
		{"unknown status", func(b *TaxBracket) { b.Status = "archived" }, ErrInvalidInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := testBracket("a", 100, 200, "10")
			c.mutate(&b)
			err := b.Validate()
			assert.ErrorIs(t, err, c.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.NoError(t, testBracket("a", 100, 200, "10").Validate())
}

func TestUpdateTaxBracketRequest_Apply(t *testing.T) {
	original := testBracket("a", 100, 200, "10")
	rate := decimal.NewFromInt(15)

	updated := UpdateTaxBracketRequest{Rate: &rate, OpenEnded: true}.Apply(original)

	assert.True(t, updated.Rate.Equal(rate))
	assert.True(t, updated.OpenEnded())
	assert.False(t, original.OpenEnded())
	assert.True(t, original.Rate.Equal(decimal.NewFromInt(10)))
}

func TestAttendanceRecord_Validate(t *testing.T) {
	ok := AttendanceRecord{DaysWorked: decimal.NewFromInt(20)}
	assert.NoError(t, ok.Validate(22))

	tooMany := AttendanceRecord{DaysWorked: decimal.NewFromInt(23)}
	assert.ErrorIs(t, tooMany.Validate(22), ErrInvalidInput)

	negative := AttendanceRecord{DaysWorked: decimal.NewFromInt(20), OvertimeHours: decimal.NewFromInt(-2), LateDays: -1}
	err := negative.Validate(22)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "overtime_hours")
	assert.Contains(t, err.Error(), "late_days")
}

func TestEmployeeCompensationProfile_Validate(t *testing.T) {
	p := EmployeeCompensationProfile{
		BaseSalary:                     decimal.NewFromInt(36000),
		SalaryBasis:                    SalaryBasisMonthly,
		PensionContributionRatePercent: decimal.NewFromInt(5),
		Allowances:                     []PayComponent{{Name: "transport", Amount: decimal.NewFromInt(2000)}},
	}
	assert.NoError(t, p.Validate())

	p.SalaryBasis = "weekly"
	p.Allowances = []PayComponent{{Name: "transport", Amount: decimal.NewFromInt(-1)}}
	err := p.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "salary_basis")
	assert.Contains(t, err.Error(), "allowances.transport")
}

func TestPeriod_Validate(t *testing.T) {
	p := Period{StartDate: effective, EndDate: effective.AddDate(0, 1, -1), PayDate: effective.AddDate(0, 1, -1)}
	assert.NoError(t, p.Validate())
	assert.Equal(t, 2024, p.FiscalYear())

	p.EndDate = effective.AddDate(0, 0, -1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidInput)

	assert.ErrorIs(t, Period{}.Validate(), ErrInvalidInput)
}

func TestTypedErrors(t *testing.T) {
	var err error = &OverlapError{BracketID: "b1"}
	assert.ErrorIs(t, err, ErrOverlapConflict)

	var overlap *OverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "b1", overlap.BracketID)

	err = &NegativeNetPayError{EmployeeID: "e1", Gross: decimal.NewFromInt(100), Deductions: decimal.NewFromInt(150)}
	assert.ErrorIs(t, err, ErrNegativeNetPay)
	assert.Contains(t, err.Error(), "150.00")
}
