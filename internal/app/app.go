package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bankcompare/internal/alerting"
	"bankcompare/internal/cache"
	"bankcompare/internal/config"
	"bankcompare/internal/dashboard"
	"bankcompare/internal/loan"
	"bankcompare/internal/metrics"
	"bankcompare/internal/scheduler"
	"bankcompare/internal/slo"
	"bankcompare/internal/storage"
	"bankcompare/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newCache() (cache.Cache, func()) {
	cfg := a.Config.Cache
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}
	r := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Prefix)
	return r, func() {
		if err := r.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}

func (a *App) newCalculator() (*loan.Calculator, func()) {
	c, closeCache := a.newCache()
	return loan.NewCalculator(c, a.Config.Cache.TTL, a.Logger), closeCache
}

func (a *App) newSource() metrics.Source {
	cfg := a.Config.Metrics
	if cfg.Source == config.MetricsSourceHTTP {
		return metrics.NewHTTPSource(metrics.HTTPOptions{
			URL:       cfg.URL,
			Token:     cfg.Token,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
		}, a.Logger)
	}
	return metrics.NewFileSource(cfg.Path, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.RequestTimeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) loadSLOConfig() (slo.Config, error) {
	cfg, err := slo.LoadConfigOrDefault(a.Config.SLO.ConfigPath, a.Logger)
	if err != nil {
		return slo.Config{}, fmt.Errorf("slo config %s: %w", a.Config.SLO.ConfigPath, err)
	}
	return cfg, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}

	if a.Config.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			closer()
			return nil, nil, err
		}
	}
	return store, closer, nil
}

// requireStore opens the database or fails with a message naming the command.
func (a *App) requireStore(ctx context.Context, what string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("database not configured; cannot %s", what)
	}
	return store, closeStore, nil
}

func (a *App) newDashboard(sloCfg slo.Config, deps dashboard.Deps) *dashboard.Dashboard {
	return dashboard.New(dashboard.Options{
		SLO:           sloCfg,
		AlertsEnabled: a.Config.Alerting.Enabled,
		Cooldown:      a.Config.Alerting.Cooldown,
		Retention:     a.Config.Alerting.Retention,
		Channels:      a.Config.Alerting.Channels,
		DashboardURL:  a.Config.Alerting.DashboardURL,
		LockKey:       a.Config.Scheduler.AdvisoryLockKey,
	}, deps, a.Logger)
}

// Run executes the long-running dashboard refresh loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sloCfg, err := a.loadSLOConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)
	if err != nil {
		return err
	}

	deps := dashboard.Deps{
		Source:   a.newSource(),
		Notifier: a.newNotifier(),
	}
	if store != nil {
		deps.Snapshots = store
		deps.Rollouts = store
		deps.Alerts = store
		deps.Locker = store
	}

	a.Logger.Info().Str("version", version.Version).Dur("interval", a.Config.Scheduler.Interval).Msg("starting dashboard service")
	err = a.newDashboard(sloCfg, deps).Run(ctx, sched)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("dashboard service terminated with error")
		return err
	}

	a.Logger.Info().Msg("dashboard service stopped")
	return nil
}

// Migrate applies the embedded schema.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "migrate")
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	count, err := store.CountSnapshots(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info().Int64("snapshots", count).Msg("schema applied")
	return nil
}

// CalcOptions hold the loan terms entered on the command line.
type CalcOptions struct {
	Principal float64
	Rate      float64
	Term      int
	JSON      bool
}

// ListOptions configure a comparison table listing.
type ListOptions struct {
	Page       string
	Search     string
	Kind       string
	Bucket     string
	SortKey    string
	SortDir    string
	PageNumber int
	PerPage    int
}

// SLOOptions configure a one-off SLO evaluation.
type SLOOptions struct {
	SummaryPath string
	JSON        bool
}

// SimulateOptions describe the synthetic day fed through the alert path.
// Negative values leave a KPI unmeasured.
type SimulateOptions struct {
	LCPMs          float64
	INPMs          float64
	CLS            float64
	HeroCTRPct     float64
	SearchConvPct  float64
	ViewabilityPct float64
}

// RolloutOptions parameterise rollout commands.
type RolloutOptions struct {
	ExperimentID string
	Stages       []int
	Winner       string
	Identifier   string
}

// ExportOptions hold parameters for exporting snapshot history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}
