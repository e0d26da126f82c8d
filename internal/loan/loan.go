package loan

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxTermMonths bounds the installment count (50 years).
const MaxTermMonths = 600

// ErrInvalidInput is matched by every validation failure of the calculator.
var ErrInvalidInput = errors.New("loan: invalid input")

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("loan: invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrInvalidInput equivalence.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Terms are the inputs of a fixed-rate installment loan.
type Terms struct {
	Principal         float64
	AnnualRatePercent float64
	TermMonths        int
}

// Validate rejects values that would make the annuity formula produce NaN or Inf.
func (t Terms) Validate() error {
	switch {
	case math.IsNaN(t.Principal) || math.IsInf(t.Principal, 0):
		return &InvalidInputError{Field: "principal", Reason: "must be a finite number"}
	case t.Principal <= 0:
		return &InvalidInputError{Field: "principal", Reason: "must be greater than zero"}
	case math.IsNaN(t.AnnualRatePercent) || math.IsInf(t.AnnualRatePercent, 0):
		return &InvalidInputError{Field: "annual_rate_percent", Reason: "must be a finite number"}
	case t.AnnualRatePercent < 0:
		return &InvalidInputError{Field: "annual_rate_percent", Reason: "cannot be negative"}
	case t.TermMonths < 1:
		return &InvalidInputError{Field: "term_months", Reason: "must be at least 1"}
	case t.TermMonths > MaxTermMonths:
		return &InvalidInputError{Field: "term_months", Reason: fmt.Sprintf("must be at most %d", MaxTermMonths)}
	}
	return nil
}

// MonthlyRate converts the nominal annual percentage into a per-period rate.
func (t Terms) MonthlyRate() float64 {
	return t.AnnualRatePercent / 100 / 12
}

// Schedule is the derived payment summary. Values are unrounded.
type Schedule struct {
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
}

// RoundedSchedule holds the presentation values, rounded to kuruş.
type RoundedSchedule struct {
	MonthlyPayment decimal.Decimal
	TotalPayment   decimal.Decimal
	TotalInterest  decimal.Decimal
}

// Rounded rounds each amount to two decimal places for display.
func (s Schedule) Rounded() RoundedSchedule {
	return RoundedSchedule{
		MonthlyPayment: roundCurrency(s.MonthlyPayment),
		TotalPayment:   roundCurrency(s.TotalPayment),
		TotalInterest:  roundCurrency(s.TotalInterest),
	}
}

// ComputeSchedule returns the fixed installment of a loan using the annuity formula.
func ComputeSchedule(principal, annualRatePercent float64, termMonths int) (Schedule, error) {
	return Compute(Terms{Principal: principal, AnnualRatePercent: annualRatePercent, TermMonths: termMonths})
}

// Compute is ComputeSchedule over a Terms value.
func Compute(t Terms) (Schedule, error) {
	if err := t.Validate(); err != nil {
		return Schedule{}, err
	}

	monthly := monthlyPayment(t)
	total := monthly * float64(t.TermMonths)
	schedule := Schedule{
		MonthlyPayment: monthly,
		TotalPayment:   total,
		TotalInterest:  total - t.Principal,
	}
	if !schedule.finite() {
		return Schedule{}, &InvalidInputError{Field: "principal", Reason: "result exceeds the representable range"}
	}
	return schedule, nil
}

func (s Schedule) finite() bool {
	for _, v := range []float64{s.MonthlyPayment, s.TotalPayment, s.TotalInterest} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func monthlyPayment(t Terms) float64 {
	r := t.MonthlyRate()
	n := float64(t.TermMonths)
	if r == 0 {
		return t.Principal / n
	}
	// P*r / (1 - (1+r)^-n), written so (1+r)^n is never materialised.
	discount := -math.Expm1(-n * math.Log1p(r))
	if discount == 0 {
		return t.Principal / n
	}
	return t.Principal * r / discount
}

func roundCurrency(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
