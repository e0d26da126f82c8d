package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"bankcompare/internal/storage"
)

// Show prints recent snapshots, or recent alerts with opts.Alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx, "show history")
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Alerts {
		return a.showAlerts(ctx, store, opts.Limit)
	}

	snapshots, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(a.Out, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tDay\tSLO\tCompliance%\tPass\tWarn\tFail\tStatus\tError")

	for _, snap := range snapshots {
		errMsg := ""
		if snap.Error != nil {
			errMsg = sanitizeInline(*snap.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			snap.TakenAt.UTC().Format(time.RFC3339),
			formatDay(snap.SummaryDate),
			snap.OverallStatus,
			formatDecimal(snap.CompliancePct, 1),
			snap.PassCount,
			snap.WarnCount,
			snap.FailCount,
			snap.Status,
			errMsg,
		)
	}

	return writer.Flush()
}

func (a *App) showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(a.Out, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSnapshot\tSLO\tCompliance%\tFailing\tChannels")
	for _, alert := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.SnapshotID.String(),
			alert.OverallStatus,
			formatDecimal(alert.CompliancePct, 1),
			strings.Join(alert.FailingMetrics, ", "),
			strings.Join(alert.Channels, ","),
		)
	}
	return writer.Flush()
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
