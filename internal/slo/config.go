package slo

import (
	"encoding/json"
	"fmt"
	"os"

	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rs/zerolog"
)

// Config is the target table. The file format matches config/slo.json of the
// web dashboard and may carry comments.
type Config struct {
	WebVitals WebVitalsTargets `json:"web_vitals"`
	Growth    GrowthTargets    `json:"growth"`
	Ads       AdsTargets       `json:"ads"`
	Uptime    UptimeTargets    `json:"uptime"`
}

// WebVitalsTargets are p75 ceilings.
type WebVitalsTargets struct {
	LCPP75Ms float64 `json:"lcp_p75_ms"`
	INPP75Ms float64 `json:"inp_p75_ms"`
	CLSP75   float64 `json:"cls_p75"`
}

// GrowthTargets are minimum ratios.
type GrowthTargets struct {
	HeroCTRMin  float64 `json:"hero_ctr_min"`
	SearchCRMin float64 `json:"search_cr_min"`
}

// AdsTargets cover ad slot quality.
type AdsTargets struct {
	ViewabilityMin float64 `json:"viewability_min"`
	ViewTimeP50Ms  float64 `json:"view_time_p50_ms"`
}

// UptimeTargets cover availability.
type UptimeTargets struct {
	P28Days float64 `json:"p28_days"`
}

// DefaultConfig is used when no configuration can be loaded.
func DefaultConfig() Config {
	return Config{
		WebVitals: WebVitalsTargets{LCPP75Ms: 2500, INPP75Ms: 200, CLSP75: 0.1},
		Growth:    GrowthTargets{HeroCTRMin: 0.03, SearchCRMin: 0.15},
		Ads:       AdsTargets{ViewabilityMin: 0.5, ViewTimeP50Ms: 1000},
		Uptime:    UptimeTargets{P28Days: 0.999},
	}
}

// Targets flattens the configuration into named objectives.
func (c Config) Targets() []Target {
	return []Target{
		{Metric: MetricLCP, Value: c.WebVitals.LCPP75Ms, Direction: LowerIsBetter},
		{Metric: MetricINP, Value: c.WebVitals.INPP75Ms, Direction: LowerIsBetter},
		{Metric: MetricCLS, Value: c.WebVitals.CLSP75, Direction: LowerIsBetter},
		{Metric: MetricHeroCTR, Value: c.Growth.HeroCTRMin, Direction: HigherIsBetter},
		{Metric: MetricSearchConversion, Value: c.Growth.SearchCRMin, Direction: HigherIsBetter},
		{Metric: MetricAdViewability, Value: c.Ads.ViewabilityMin, Direction: HigherIsBetter},
		{Metric: MetricAdViewTime, Value: c.Ads.ViewTimeP50Ms, Direction: HigherIsBetter},
		{Metric: MetricUptime, Value: c.Uptime.P28Days, Direction: HigherIsBetter},
	}
}

// Target looks up an objective by metric name.
func (c Config) Target(metric string) (Target, bool) {
	for _, t := range c.Targets() {
		if t.Metric == metric {
			return t, true
		}
	}
	return Target{}, false
}

// Validate checks every target.
func (c Config) Validate() error {
	for _, t := range c.Targets() {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseConfig decodes a comment-tolerant target file. Keys absent from the
// file keep their default value; invalid targets are returned as errors.
func ParseConfig(data []byte) (Config, error) {
	cfg, err := decodeConfig(data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeConfig(data []byte) (Config, error) {
	var generic any
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return Config{}, fmt.Errorf("parse slo config: %w", err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return Config{}, fmt.Errorf("normalize slo config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode slo config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and parses the target file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read slo config: %w", err)
	}
	return ParseConfig(data)
}

// LoadConfigOrDefault falls back to DefaultConfig when the file cannot be read
// or parsed. A file that parses but holds an invalid target is an operator
// error and is returned rather than replaced by defaults.
func LoadConfigOrDefault(path string, logger zerolog.Logger) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to read slo config, using defaults")
		return DefaultConfig(), nil
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to parse slo config, using defaults")
		return DefaultConfig(), nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
