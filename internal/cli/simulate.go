package cli

import (
	"github.com/spf13/cobra"

	"bankcompare/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate a synthetic day and send an alert through the configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateOpts)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateOpts.LCPMs, "lcp", 3200, "LCP p75 in ms (negative to skip)")
	simulateCmd.Flags().Float64Var(&simulateOpts.INPMs, "inp", 180, "INP p75 in ms (negative to skip)")
	simulateCmd.Flags().Float64Var(&simulateOpts.CLS, "cls", 0.08, "CLS p75 (negative to skip)")
	simulateCmd.Flags().Float64Var(&simulateOpts.HeroCTRPct, "hero-ctr", 2.1, "Hero CTR in percent (negative to skip)")
	simulateCmd.Flags().Float64Var(&simulateOpts.SearchConvPct, "search-cr", 16, "Search conversion rate in percent (negative to skip)")
	simulateCmd.Flags().Float64Var(&simulateOpts.ViewabilityPct, "viewability", -1, "Ad viewability in percent (negative to skip)")
}
