package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingPolicy enum
type RoundingPolicy string

const (
	RoundHalfUp  RoundingPolicy = "half_up"
	RoundDown    RoundingPolicy = "down"
	RoundNearest RoundingPolicy = "nearest" // half to even
)

var hundred = decimal.NewFromInt(100)

// Rounding applies one policy at a fixed number of decimal places.
type Rounding struct {
	Policy RoundingPolicy
	Places int32
}

func DefaultRounding() Rounding {
	return Rounding{Policy: RoundHalfUp, Places: 2}
}

func ParsePolicy(s string) (RoundingPolicy, error) {
	switch p := RoundingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RoundHalfUp, RoundDown, RoundNearest:
		return p, nil
	case "half_even", "bank":
		return RoundNearest, nil
	}
	return "", fmt.Errorf("unknown rounding policy %q", s)
}

func (r Rounding) Validate() error {
	switch r.Policy {
	case RoundHalfUp, RoundDown, RoundNearest:
	default:
		return fmt.Errorf("unknown rounding policy %q", r.Policy)
	}
	if r.Places < 0 || r.Places > 8 {
		return fmt.Errorf("rounding places must be between 0 and 8, got %d", r.Places)
	}
	return nil
}

func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	switch r.Policy {
	case RoundDown:
		return d.RoundDown(r.Places)
	case RoundNearest:
		return d.RoundBank(r.Places)
	default:
		return d.Round(r.Places)
	}
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Sum adds amounts, treating an empty list as zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
