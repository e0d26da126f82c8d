package app

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"bankcompare/internal/loan"
)

func (opts CalcOptions) terms() loan.Terms {
	return loan.Terms{Principal: opts.Principal, AnnualRatePercent: opts.Rate, TermMonths: opts.Term}
}

// Calculate prints the annuity summary for the given terms.
func (a *App) Calculate(ctx context.Context, opts CalcOptions) error {
	calc, closeCache := a.newCalculator()
	defer closeCache()

	schedule, err := calc.Calculate(ctx, opts.terms())
	if err != nil {
		return err
	}
	rounded := schedule.Rounded()

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"principal":       opts.Principal,
			"annual_rate_pct": opts.Rate,
			"term_months":     opts.Term,
			"monthly_payment": rounded.MonthlyPayment,
			"total_payment":   rounded.TotalPayment,
			"total_interest":  rounded.TotalInterest,
		})
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Principal\t%s TL\n", formatDecimal(decimal.NewFromFloat(opts.Principal), 2))
	fmt.Fprintf(writer, "Annual rate\t%%%s\n", decimal.NewFromFloat(opts.Rate).String())
	fmt.Fprintf(writer, "Term\t%d months\n", opts.Term)
	fmt.Fprintf(writer, "Monthly payment\t%s TL\n", formatDecimal(rounded.MonthlyPayment, 2))
	fmt.Fprintf(writer, "Total payment\t%s TL\n", formatDecimal(rounded.TotalPayment, 2))
	fmt.Fprintf(writer, "Total interest\t%s TL\n", formatDecimal(rounded.TotalInterest, 2))
	return writer.Flush()
}

// Amortize prints the per-period repayment table.
func (a *App) Amortize(ctx context.Context, opts CalcOptions) error {
	rows, err := loan.Amortize(opts.terms())
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(writer, "Period\tPayment\tInterest\tPrincipal\tBalance\t")
	for _, row := range rows {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t\n",
			row.Period,
			formatFloat(row.Payment),
			formatFloat(row.Interest),
			formatFloat(row.Principal),
			formatFloat(row.Balance),
		)
	}
	return writer.Flush()
}

func formatFloat(v float64) string {
	return formatDecimal(decimal.NewFromFloat(v), 2)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
