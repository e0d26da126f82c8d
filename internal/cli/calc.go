package cli

import (
	"github.com/spf13/cobra"

	"bankcompare/internal/app"
)

var calcOpts app.CalcOptions

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute the monthly payment, total payment and total interest of a loan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Calculate(cmd.Context(), calcOpts)
	},
}

var amortizeCmd = &cobra.Command{
	Use:   "amortize",
	Short: "Print the month-by-month repayment schedule of a loan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Amortize(cmd.Context(), calcOpts)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{calcCmd, amortizeCmd} {
		cmd.Flags().Float64Var(&calcOpts.Principal, "amount", 100000, "Loan principal in TL")
		cmd.Flags().Float64Var(&calcOpts.Rate, "rate", 2.5, "Annual interest rate in percent")
		cmd.Flags().IntVar(&calcOpts.Term, "term", 12, "Term in months")
		cmd.Flags().BoolVar(&calcOpts.JSON, "json", false, "Print JSON instead of a table")
	}
}
