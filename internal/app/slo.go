package app

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"bankcompare/internal/dashboard"
	"bankcompare/internal/metrics"
	"bankcompare/internal/slo"
)

// SLO evaluates the configured daily summary once and prints the result.
func (a *App) SLO(ctx context.Context, opts SLOOptions) error {
	sloCfg, err := a.loadSLOConfig()
	if err != nil {
		return err
	}

	source := a.newSource()
	if opts.SummaryPath != "" {
		source = metrics.NewFileSource(opts.SummaryPath, a.Logger)
	}

	d := a.newDashboard(sloCfg, dashboard.Deps{Source: source})
	report, err := d.Evaluate(ctx, time.Now())
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return a.writeSummary(report.Summary)
}

func (a *App) writeSummary(summary slo.Summary) error {
	badge := slo.BadgeFor(summary)
	fmt.Fprintf(a.Out, "%s %s (%s)\n", badge.Icon, badge.Text, summary.OverallStatus)
	fmt.Fprintf(a.Out, "%d pass, %d warn, %d fail of %d measured\n\n",
		summary.PassCount, summary.WarnCount, summary.FailCount, summary.TotalCount)

	if summary.TotalCount == 0 {
		fmt.Fprintln(a.Out, "no metrics measured")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Metric\tCurrent\tTarget\tDelta\tStatus")
	for _, r := range summary.Results {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%+.1f%%\t%s\n",
			r.Metric,
			slo.FormatValue(r.Current, r.Metric),
			slo.FormatValue(r.Target, r.Metric),
			r.DeltaPct,
			r.Status,
		)
	}
	return writer.Flush()
}
