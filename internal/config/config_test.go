package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.Interval != 30*time.Second || !cfg.Scheduler.RunOnStart {
		t.Fatalf("unexpected scheduler defaults %+v", cfg.Scheduler)
	}
	if cfg.Catalog.ItemsPerPage != 10 || cfg.Metrics.Source != MetricsSourceFile {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Catalog, cfg.Metrics)
	}
	if !reflect.DeepEqual(cfg.Rollout.DefaultStages, []int{5, 25, 50, 100}) {
		t.Fatalf("unexpected default stages %v", cfg.Rollout.DefaultStages)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  dsn: postgres://localhost/bankcompare
cache:
  redis_addr: localhost:6379
  ttl: 1h
metrics:
  source: http
  url: https://analytics.example/summary
alerting:
  cooldown: 15m
`)
	t.Setenv("BANKCOMPARE_SCHEDULER_INTERVAL", "2m")
	t.Setenv("BANKCOMPARE_ROLLOUT_DEFAULT_STAGES", "10,50,100")
	t.Setenv("BANKCOMPARE_ALERTING_CHANNELS", "telegram,log")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "postgres://localhost/bankcompare" || cfg.Cache.TTL != time.Hour {
		t.Fatalf("file values not applied: %+v %+v", cfg.Database, cfg.Cache)
	}
	if cfg.Scheduler.Interval != 2*time.Minute {
		t.Fatalf("env override not applied: %v", cfg.Scheduler.Interval)
	}
	if !reflect.DeepEqual(cfg.Rollout.DefaultStages, []int{10, 50, 100}) {
		t.Fatalf("unexpected stages %v", cfg.Rollout.DefaultStages)
	}
	if !reflect.DeepEqual(cfg.Alerting.Channels, []string{"telegram", "log"}) {
		t.Fatalf("unexpected channels %v", cfg.Alerting.Channels)
	}
	if cfg.Alerting.Cooldown != 15*time.Minute {
		t.Fatalf("unexpected cooldown %v", cfg.Alerting.Cooldown)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envPath := writeFile(t, ".env", "BANKCOMPARE_METRICS_TOKEN=from-dotenv\nBANKCOMPARE_CATALOG_ITEMS_PER_PAGE=25\n")
	t.Setenv("BANKCOMPARE_APP_ENV_FILE", envPath)
	t.Setenv("BANKCOMPARE_CATALOG_ITEMS_PER_PAGE", "5")
	t.Cleanup(func() { os.Unsetenv("BANKCOMPARE_METRICS_TOKEN") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Metrics.Token != "from-dotenv" {
		t.Fatalf(".env value not applied: %q", cfg.Metrics.Token)
	}
	if cfg.Catalog.ItemsPerPage != 5 {
		t.Fatalf("process environment must win over .env, got %d", cfg.Catalog.ItemsPerPage)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"bad source":       "metrics:\n  source: kafka\n",
		"http without url": "metrics:\n  source: http\n",
		"telegram token":   "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
		"zero interval":    "scheduler:\n  interval: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "config.yaml", body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 100}, Catalog: CatalogConfig{ItemsPerPage: 10}}
	if cfg.ResolveMaxPoints(0) != 100 || cfg.ResolveMaxPoints(7) != 7 {
		t.Fatal("unexpected max points resolution")
	}
	if cfg.ResolveItemsPerPage(-1) != 10 || cfg.ResolveItemsPerPage(20) != 20 {
		t.Fatal("unexpected items per page resolution")
	}
}
