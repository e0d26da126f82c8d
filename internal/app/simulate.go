package app

import (
	"context"
	"errors"
	"time"

	"bankcompare/internal/dashboard"
	"bankcompare/internal/metrics"
	"bankcompare/internal/slo"
)

// SimulateAlert feeds a synthetic day through evaluation and the configured
// notifier, bypassing the cooldown.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	sloCfg, err := a.loadSLOConfig()
	if err != nil {
		return err
	}

	d := dashboard.New(dashboard.Options{
		SLO:           sloCfg,
		AlertsEnabled: true,
		Channels:      a.Config.Alerting.Channels,
		DashboardURL:  a.Config.Alerting.DashboardURL,
	}, dashboard.Deps{
		Source:   &staticSource{day: opts.day(time.Now().UTC())},
		Notifier: notifier,
	}, a.Logger)

	if err := d.Refresh(ctx, time.Now()); err != nil {
		return err
	}

	report, _ := d.Latest()
	if !report.Alerted {
		a.Logger.Info().Str("status", string(report.Summary.OverallStatus)).Msg("simulated day is compliant; no alert sent")
	}
	return a.writeSummary(report.Summary)
}

func (opts SimulateOptions) day(date time.Time) slo.DailySummary {
	return slo.DailySummary{
		Date:                 date.Truncate(24 * time.Hour),
		HeroCTR:              measured(opts.HeroCTRPct),
		SearchConversionRate: measured(opts.SearchConvPct),
		AdViewability:        measured(opts.ViewabilityPct),
		Vitals: slo.Vitals{
			LCPP75: nonNegative(opts.LCPMs),
			INPP75: nonNegative(opts.INPMs),
			CLSP75: nonNegative(opts.CLS),
		},
	}
}

func measured(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

type staticSource struct {
	day slo.DailySummary
}

func (s *staticSource) Fetch(ctx context.Context) (slo.DailySummary, error) {
	return s.day, nil
}

var _ metrics.Source = (*staticSource)(nil)
