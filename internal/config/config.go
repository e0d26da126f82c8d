package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bankcompare/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. BANKCOMPARE_DATABASE_DSN.
const EnvPrefix = "BANKCOMPARE"

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	SLO       SLOConfig       `mapstructure:"slo"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Rollout   RolloutConfig   `mapstructure:"rollout"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	EnvFile     string `mapstructure:"env_file"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// CacheConfig selects the calculator memoization backend. An empty
// RedisAddr keeps the cache in process.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig governs dashboard refresh cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// SLOConfig points at the objective table.
type SLOConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// MetricsConfig selects where daily summaries come from.
type MetricsConfig struct {
	Source         string        `mapstructure:"source"`
	Path           string        `mapstructure:"path"`
	URL            string        `mapstructure:"url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RolloutConfig holds defaults for new experiments.
type RolloutConfig struct {
	DefaultStages []int `mapstructure:"default_stages"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Cooldown       time.Duration  `mapstructure:"cooldown"`
	Retention      time.Duration  `mapstructure:"retention"`
	Channels       []string       `mapstructure:"channels"`
	DashboardURL   string         `mapstructure:"dashboard_url"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// CatalogConfig controls comparison table rendering.
type CatalogConfig struct {
	ItemsPerPage int `mapstructure:"items_per_page"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Metrics source kinds.
const (
	MetricsSourceFile = "file"
	MetricsSourceHTTP = "http"
)

// Load builds configuration from a .env file, the config file, environment
// and defaults. Variables already set in the environment win over .env.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := loadEnvFile(v.GetString("app.env_file")); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bankcompare")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.env_file", ".env")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "bankcompare:")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.align_to_interval", false)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x62616e6b))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("slo.config_path", "config/slo.json")

	v.SetDefault("metrics.source", MetricsSourceFile)
	v.SetDefault("metrics.path", "data/summary.json")
	v.SetDefault("metrics.url", "")
	v.SetDefault("metrics.token", "")
	v.SetDefault("metrics.request_timeout", "10s")
	v.SetDefault("metrics.user_agent", "")

	v.SetDefault("rollout.default_stages", []int{5, 25, 50, 100})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.retention", "720h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.dashboard_url", "")
	v.SetDefault("alerting.request_timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("catalog.items_per_page", 10)

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	switch c.Metrics.Source {
	case MetricsSourceFile:
		if c.Metrics.Path == "" {
			return fmt.Errorf("metrics.path is required for the file source")
		}
	case MetricsSourceHTTP:
		if c.Metrics.URL == "" {
			return fmt.Errorf("metrics.url is required for the http source")
		}
	default:
		return fmt.Errorf("metrics.source must be %q or %q, got %q", MetricsSourceFile, MetricsSourceHTTP, c.Metrics.Source)
	}
	if len(c.Rollout.DefaultStages) == 0 {
		return fmt.Errorf("rollout.default_stages must not be empty")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveItemsPerPage returns either the CLI override or config default.
func (c *Config) ResolveItemsPerPage(override int) int {
	if override > 0 {
		return override
	}
	return c.Catalog.ItemsPerPage
}
