package paye

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

const (
	// effectiveRatePlaces is the precision of PAYEResult.EffectiveRate (a percentage).
	effectiveRatePlaces = 4
	// cumulativeTaxPlaces is the precision CumulativeTaxBelow is declared and stored at.
	cumulativeTaxPlaces = 2
)

type CalculatorImpl struct{}

func NewCalculator() payroll.TaxCalculator {
	return &CalculatorImpl{}
}

// Calculate walks the bracket set for taxableIncome. Amounts are left unrounded;
// the payroll engine applies its rounding policy to the figures it keeps.
func (c *CalculatorImpl) Calculate(taxableIncome decimal.Decimal, set payroll.BracketSet, personalRelief decimal.Decimal) (payroll.PAYEResult, error) {
	if taxableIncome.IsNegative() {
		return payroll.PAYEResult{}, fmt.Errorf("%w: taxable income %s is negative", payroll.ErrInvalidInput, taxableIncome)
	}
	if personalRelief.IsNegative() {
		return payroll.PAYEResult{}, fmt.Errorf("%w: personal relief %s is negative", payroll.ErrInvalidInput, personalRelief)
	}
	if err := set.Validate(); err != nil {
		return payroll.PAYEResult{}, err
	}

	taxDue, steps, err := walk(taxableIncome, set.Brackets)
	if err != nil {
		return payroll.PAYEResult{}, err
	}

	netTax := taxDue.Sub(personalRelief)
	if netTax.IsNegative() {
		netTax = decimal.Zero
	}

	effectiveRate := decimal.Zero
	if taxableIncome.IsPositive() {
		effectiveRate = netTax.Div(taxableIncome).Mul(hundred).Round(effectiveRatePlaces)
	}

	return payroll.PAYEResult{
		GrossIncome:    taxableIncome,
		TotalTax:       taxDue,
		PersonalRelief: personalRelief,
		NetTax:         netTax,
		EffectiveRate:  effectiveRate,
		Steps:          steps,
	}, nil
}

// walk applies each bracket's rate to the slice of income inside (MinIncome, MaxIncome].
// Brackets must be sorted ascending and contiguous.
func walk(income decimal.Decimal, brackets []payroll.TaxBracket) (decimal.Decimal, []payroll.TaxStep, error) {
	taxDue := decimal.Zero
	steps := make([]payroll.TaxStep, 0, len(brackets))

	for _, b := range brackets {
		if !income.GreaterThan(b.MinIncome) {
			break
		}
		if b.CumulativeTaxBelow != nil &&
			!b.CumulativeTaxBelow.Round(cumulativeTaxPlaces).Equal(taxDue.Round(cumulativeTaxPlaces)) {
			return decimal.Zero, nil, fmt.Errorf("%w: bracket %s declares cumulative tax below of %s but the brackets beneath it sum to %s",
				payroll.ErrConfiguration, b.ID, *b.CumulativeTaxBelow, taxDue)
		}

		inBracket := income.Sub(b.MinIncome)
		if b.MaxIncome != nil {
			inBracket = decimal.Min(inBracket, b.MaxIncome.Sub(b.MinIncome))
		}
		bracketTax := inBracket.Mul(b.Rate).Div(hundred)
		taxDue = taxDue.Add(bracketTax)

		steps = append(steps, payroll.TaxStep{
			BracketID:       b.ID,
			IncomeInBracket: inBracket,
			Rate:            b.Rate,
			BracketTax:      bracketTax,
			CumulativeTax:   taxDue,
		})

		if b.MaxIncome != nil && income.LessThanOrEqual(*b.MaxIncome) {
			break
		}
	}
	return taxDue, steps, nil
}
