package cli

import (
	"github.com/spf13/cobra"

	"bankcompare/internal/app"
)

var sloOpts app.SLOOptions

var sloCmd = &cobra.Command{
	Use:   "slo",
	Short: "Evaluate the daily summary against SLO targets once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SLO(cmd.Context(), sloOpts)
	},
}

func init() {
	sloCmd.Flags().StringVar(&sloOpts.SummaryPath, "summary", "", "Read the daily summary from this file instead of the configured source")
	sloCmd.Flags().BoolVar(&sloOpts.JSON, "json", false, "Print the full report as JSON")
}
