package validator

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when there is nothing to report, so callers can `return errs.Err()`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsPercent reports whether d lies in [0, 100].
func IsPercent(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

// NonNegative appends an error for field when d is below zero.
func NonNegative(errs ValidationErrors, field string, d decimal.Decimal) ValidationErrors {
	if d.IsNegative() {
		errs = append(errs, ValidationError{Field: field, Message: "must be non-negative"})
	}
	return errs
}

// NonNegativeComponents checks the amount of every named component in a list.
func NonNegativeComponents(errs ValidationErrors, field string, names []string, amounts []decimal.Decimal) ValidationErrors {
	for i, amount := range amounts {
		name := field
		if i < len(names) && !IsEmpty(names[i]) {
			name = field + "." + names[i]
		}
		errs = NonNegative(errs, name, amount)
	}
	return errs
}
