package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrConfiguration     = errors.New("payroll configuration error")
	ErrOverlapConflict   = errors.New("tax bracket overlaps an active bracket")
	ErrNegativeNetPay    = errors.New("deductions exceed gross pay")
	ErrBracketNotFound   = errors.New("tax bracket not found")
	ErrInvalidRange      = fmt.Errorf("%w: invalid income range", ErrInvalidInput)
	ErrInvalidRate       = fmt.Errorf("%w: rate must be between 0 and 100", ErrInvalidInput)
	ErrInvalidDates      = fmt.Errorf("%w: invalid effective dates", ErrInvalidInput)
	ErrMissingAttendance = fmt.Errorf("%w: attendance record is missing", ErrInvalidInput)
	ErrInvalidTransition = errors.New("invalid tax bracket status transition")
)

// OverlapError is returned when a registry write collides with an active bracket.
type OverlapError struct {
	BracketID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: conflicts with bracket %s", ErrOverlapConflict, e.BracketID)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlapConflict
}

// NegativeNetPayError carries the figures a reviewer needs to resolve the employee.
type NegativeNetPayError struct {
	EmployeeID string
	Gross      decimal.Decimal
	Deductions decimal.Decimal
}

func (e *NegativeNetPayError) Error() string {
	return fmt.Sprintf("%s for employee %s: gross %s, deductions %s",
		ErrNegativeNetPay, e.EmployeeID, e.Gross.StringFixed(2), e.Deductions.StringFixed(2))
}

func (e *NegativeNetPayError) Unwrap() error {
	return ErrNegativeNetPay
}
