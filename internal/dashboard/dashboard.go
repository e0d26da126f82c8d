package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bankcompare/internal/alerting"
	"bankcompare/internal/metrics"
	"bankcompare/internal/rollout"
	"bankcompare/internal/scheduler"
	"bankcompare/internal/slo"
	"bankcompare/internal/storage"
)

// Snapshot statuses.
const (
	SnapshotComplete = "complete"
	SnapshotErrored  = "errored"
)

// Options tune evaluation and alerting.
type Options struct {
	SLO           slo.Config
	AlertsEnabled bool
	Cooldown      time.Duration
	Retention     time.Duration
	Channels      []string
	DashboardURL  string
	LockKey       int64
}

// Deps are the collaborators of a Dashboard. Only Source is required; nil
// stores disable persistence and a nil Notifier disables alerting.
type Deps struct {
	Source    metrics.Source
	Snapshots storage.SnapshotStore
	Rollouts  storage.RolloutStore
	Alerts    storage.AlertStore
	Notifier  alerting.Notifier
	Locker    storage.AdvisoryLocker
}

// Report is one evaluation of the dashboard.
type Report struct {
	ID       uuid.UUID        `json:"id"`
	TakenAt  time.Time        `json:"taken_at"`
	Day      slo.DailySummary `json:"day"`
	Summary  slo.Summary      `json:"summary"`
	Badge    slo.Badge        `json:"badge"`
	Rollouts []rollout.View   `json:"rollouts"`
	Alerted  bool             `json:"alerted"`
}

// Dashboard evaluates SLOs and rollout state on every refresh.
type Dashboard struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
	newID  func() uuid.UUID

	mu           sync.Mutex
	lastAlert    time.Time
	alertsSeeded bool
	latest       *Report
}

// New constructs a dashboard.
func New(opts Options, deps Deps, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "dashboard").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
}

// Run refreshes on every scheduler tick until ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context, sched *scheduler.Scheduler) error {
	if sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return sched.Run(ctx, d.Refresh)
}

// Latest returns the most recent successful report.
func (d *Dashboard) Latest() (Report, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.latest == nil {
		return Report{}, false
	}
	return *d.latest, true
}

// Refresh evaluates, persists and alerts for one tick. Ticks are skipped while
// another instance holds the advisory lock.
func (d *Dashboard) Refresh(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := d.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		d.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	report, evalErr := d.Evaluate(ctx, tick)
	if evalErr != nil {
		d.persistFailure(ctx, report, evalErr)
		return evalErr
	}

	d.persist(ctx, report)

	report.Alerted = d.maybeAlert(ctx, report)

	d.mu.Lock()
	d.latest = &report
	d.mu.Unlock()

	d.logger.Info().Time("tick", tick).
		Str("snapshot_id", report.ID.String()).
		Str("status", string(report.Summary.OverallStatus)).
		Float64("compliance_pct", report.Summary.CompliancePercentage).
		Int("rollouts", len(report.Rollouts)).
		Bool("alerted", report.Alerted).
		Msg("dashboard refreshed")
	return nil
}

// Evaluate fetches the daily summary, evaluates it and loads rollout views.
// Nothing is persisted. The returned report carries ID and TakenAt even on error.
func (d *Dashboard) Evaluate(ctx context.Context, at time.Time) (Report, error) {
	report := Report{ID: d.newID(), TakenAt: at.UTC()}
	if d.deps.Source == nil {
		return report, errors.New("metrics source not configured")
	}

	day, err := d.deps.Source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch daily summary: %w", err)
	}
	report.Day = day

	summary, err := slo.EvaluateDaily(day, d.opts.SLO)
	if err != nil {
		return report, fmt.Errorf("evaluate slo: %w", err)
	}
	report.Summary = summary
	report.Badge = slo.BadgeFor(summary)
	report.Rollouts = d.rolloutViews(ctx)
	return report, nil
}

func (d *Dashboard) rolloutViews(ctx context.Context) []rollout.View {
	views := make([]rollout.View, 0)
	if d.deps.Rollouts == nil {
		return views
	}
	records, err := d.deps.Rollouts.ListRollouts(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("rollout state not available")
		return views
	}
	for _, rec := range records {
		schedule, err := rec.Schedule()
		if err != nil {
			d.logger.Warn().Err(err).Str("experiment_id", rec.ExperimentID).Msg("skipping invalid rollout record")
			continue
		}
		views = append(views, schedule.Describe())
	}
	return views
}

func (d *Dashboard) persist(ctx context.Context, report Report) {
	if d.deps.Snapshots == nil {
		return
	}
	snap, err := snapshotFromReport(report)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	if err := d.deps.Snapshots.InsertSnapshot(ctx, snap); err != nil {
		d.logger.Error().Err(err).Str("snapshot_id", report.ID.String()).Msg("failed to insert snapshot")
	}
}

func (d *Dashboard) persistFailure(ctx context.Context, report Report, cause error) {
	if d.deps.Snapshots == nil {
		return
	}
	msg := cause.Error()
	snap := storage.Snapshot{
		ID:            report.ID,
		TakenAt:       report.TakenAt,
		SummaryDate:   report.Day.Date,
		OverallStatus: "unknown",
		CompliancePct: decimal.Zero,
		Status:        SnapshotErrored,
		Error:         &msg,
	}
	if err := d.deps.Snapshots.InsertSnapshot(ctx, snap); err != nil {
		d.logger.Error().Err(err).Str("snapshot_id", report.ID.String()).Msg("failed to record errored snapshot")
	}
}

func snapshotFromReport(report Report) (storage.Snapshot, error) {
	results, err := json.Marshal(report.Summary.Results)
	if err != nil {
		return storage.Snapshot{}, err
	}
	rollouts, err := json.Marshal(report.Rollouts)
	if err != nil {
		return storage.Snapshot{}, err
	}
	return storage.Snapshot{
		ID:            report.ID,
		TakenAt:       report.TakenAt,
		SummaryDate:   report.Day.Date,
		OverallStatus: string(report.Summary.OverallStatus),
		CompliancePct: decimal.NewFromFloat(report.Summary.CompliancePercentage).Round(2),
		PassCount:     report.Summary.PassCount,
		WarnCount:     report.Summary.WarnCount,
		FailCount:     report.Summary.FailCount,
		Results:       results,
		Rollouts:      rollouts,
		Status:        SnapshotComplete,
	}, nil
}

func (d *Dashboard) maybeAlert(ctx context.Context, report Report) bool {
	if !d.opts.AlertsEnabled || d.deps.Notifier == nil {
		return false
	}
	if report.Summary.OverallStatus == slo.StatusPass {
		return false
	}

	now := d.now()
	if d.inCooldown(ctx, now) {
		d.logger.Debug().Str("snapshot_id", report.ID.String()).Msg("alert suppressed by cooldown")
		return false
	}

	note := alerting.Notification{
		SnapshotID:   report.ID.String(),
		TakenAt:      report.TakenAt,
		Summary:      report.Summary,
		Rollouts:     report.Rollouts,
		Channels:     d.opts.Channels,
		DashboardURL: d.opts.DashboardURL,
	}
	if err := d.deps.Notifier.Notify(ctx, note); err != nil {
		d.logger.Error().Err(err).Str("snapshot_id", report.ID.String()).Msg("failed to dispatch alert")
		return false
	}

	d.mu.Lock()
	d.lastAlert = now
	d.mu.Unlock()

	if d.deps.Alerts != nil {
		record := storage.AlertRecord{
			SnapshotID:     report.ID,
			OverallStatus:  string(report.Summary.OverallStatus),
			CompliancePct:  decimal.NewFromFloat(report.Summary.CompliancePercentage).Round(2),
			FailingMetrics: failingMetrics(report.Summary),
			Channels:       d.opts.Channels,
		}
		if _, err := d.deps.Alerts.InsertAlert(ctx, record); err != nil {
			d.logger.Error().Err(err).Str("snapshot_id", report.ID.String()).Msg("failed to persist alert record")
		}
		d.pruneAlerts(ctx, now)
	}
	return true
}

// pruneAlerts drops alert records older than the retention window.
func (d *Dashboard) pruneAlerts(ctx context.Context, now time.Time) {
	if d.opts.Retention <= 0 {
		return
	}
	if err := d.deps.Alerts.DeleteAlertsBefore(ctx, now.Add(-d.opts.Retention)); err != nil {
		d.logger.Warn().Err(err).Msg("failed to prune old alerts")
	}
}

// inCooldown consults the last persisted alert until one read succeeds, so
// restarts keep honoring the cooldown.
func (d *Dashboard) inCooldown(ctx context.Context, now time.Time) bool {
	d.mu.Lock()
	seeded := d.alertsSeeded
	d.mu.Unlock()

	if !seeded {
		d.seedLastAlert(ctx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastAlert.IsZero() || d.opts.Cooldown <= 0 {
		return false
	}
	return now.Sub(d.lastAlert) < d.opts.Cooldown
}

func (d *Dashboard) seedLastAlert(ctx context.Context) {
	if d.deps.Alerts == nil {
		d.mu.Lock()
		d.alertsSeeded = true
		d.mu.Unlock()
		return
	}

	recent, err := d.deps.Alerts.ListRecentAlerts(ctx, 1)
	if err != nil {
		d.logger.Warn().Err(err).Msg("could not load last alert; retrying on next refresh")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.alertsSeeded = true
	if len(recent) > 0 && recent[0].CreatedAt.After(d.lastAlert) {
		d.lastAlert = recent[0].CreatedAt
	}
}

func failingMetrics(s slo.Summary) []string {
	out := make([]string, 0, s.WarnCount+s.FailCount)
	for _, r := range s.Results {
		if r.Status != slo.StatusPass {
			out = append(out, r.Metric)
		}
	}
	return out
}

func (d *Dashboard) acquireLock(ctx context.Context) (func(), bool, error) {
	if d.opts.LockKey == 0 || d.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := d.deps.Locker.TryAdvisoryLock(ctx, d.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
