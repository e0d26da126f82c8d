package loan

import "math"

// Installment is one row of an amortization table.
type Installment struct {
	Period    int     `json:"period"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

// Amortize expands the schedule into per-period installments. The last period
// absorbs floating-point residue so the closing balance is exactly zero.
func Amortize(t Terms) ([]Installment, error) {
	schedule, err := Compute(t)
	if err != nil {
		return nil, err
	}

	r := t.MonthlyRate()
	balance := t.Principal
	rows := make([]Installment, 0, t.TermMonths)

	for period := 1; period <= t.TermMonths; period++ {
		interest := balance * r
		principalPart := schedule.MonthlyPayment - interest
		payment := schedule.MonthlyPayment

		if period == t.TermMonths {
			principalPart = balance
			payment = principalPart + interest
		}

		balance -= principalPart
		if math.Abs(balance) < 1e-9 {
			balance = 0
		}

		rows = append(rows, Installment{
			Period:    period,
			Payment:   payment,
			Interest:  interest,
			Principal: principalPart,
			Balance:   balance,
		})
	}

	return rows, nil
}
