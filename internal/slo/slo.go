package slo

import (
	"errors"
	"fmt"
	"math"
)

// Direction tells which side of the target is good.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Status is the classification of one metric or of a whole summary.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Severity mirrors Status on the alerting scale.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

const (
	higherWarnFactor = 0.9
	lowerWarnFactor  = 1.1
)

// ErrConfiguration is matched by every invalid target.
var ErrConfiguration = errors.New("slo: configuration error")

// ConfigurationError reports a target that cannot be evaluated against.
type ConfigurationError struct {
	Metric string
	Target float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("slo: target for %s is %v: %s", e.Metric, e.Target, e.Reason)
}

// Is reports ErrConfiguration equivalence.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Target is one objective.
type Target struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Direction Direction `json:"direction"`
}

// Validate rejects targets that would make the delta undefined.
func (t Target) Validate() error {
	switch {
	case math.IsNaN(t.Value) || math.IsInf(t.Value, 0):
		return &ConfigurationError{Metric: t.Metric, Target: t.Value, Reason: "must be finite"}
	case t.Value <= 0:
		return &ConfigurationError{Metric: t.Metric, Target: t.Value, Reason: "must be greater than zero"}
	case t.Direction != HigherIsBetter && t.Direction != LowerIsBetter:
		return &ConfigurationError{Metric: t.Metric, Target: t.Value, Reason: fmt.Sprintf("unknown direction %q", t.Direction)}
	}
	return nil
}

// Result is the evaluation of one metric.
type Result struct {
	Metric      string   `json:"metric"`
	Current     float64  `json:"current"`
	Target      float64  `json:"target"`
	DeltaPct    float64  `json:"delta_pct"`
	Status      Status   `json:"status"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Evaluate classifies current against target.
func Evaluate(metric string, current float64, target Target) (Result, error) {
	if err := target.Validate(); err != nil {
		return Result{}, err
	}

	delta := (current - target.Value) / target.Value * 100
	res := Result{
		Metric:   metric,
		Current:  current,
		Target:   target.Value,
		DeltaPct: delta,
	}

	if target.Direction == HigherIsBetter {
		switch {
		case current >= target.Value:
			res.Status, res.Severity = StatusPass, SeverityOK
			res.Description = fmt.Sprintf("%s is meeting SLO target (+%.1f%%)", metric, delta)
		case current >= target.Value*higherWarnFactor:
			res.Status, res.Severity = StatusWarn, SeverityWarn
			res.Description = fmt.Sprintf("%s is below SLO target but within warning range (%.1f%%)", metric, delta)
		default:
			res.Status, res.Severity = StatusFail, SeverityCritical
			res.Description = fmt.Sprintf("%s is significantly below SLO target (%.1f%%)", metric, delta)
		}
		return res, nil
	}

	switch {
	case current <= target.Value:
		res.Status, res.Severity = StatusPass, SeverityOK
		res.Description = fmt.Sprintf("%s is meeting SLO target (%.1f%% vs target)", metric, delta)
	case current <= target.Value*lowerWarnFactor:
		res.Status, res.Severity = StatusWarn, SeverityWarn
		res.Description = fmt.Sprintf("%s is above SLO target but within warning range (+%.1f%%)", metric, delta)
	default:
		res.Status, res.Severity = StatusFail, SeverityCritical
		res.Description = fmt.Sprintf("%s is significantly above SLO target (+%.1f%%)", metric, delta)
	}
	return res, nil
}

// Summary aggregates a set of results.
type Summary struct {
	OverallStatus        Status   `json:"overall_status"`
	PassCount            int      `json:"pass_count"`
	WarnCount            int      `json:"warn_count"`
	FailCount            int      `json:"fail_count"`
	TotalCount           int      `json:"total_count"`
	CompliancePercentage float64  `json:"compliance_percentage"`
	Results              []Result `json:"results"`
}

// Summarize counts statuses. Any failure fails the summary, any warning warns
// it, and an empty set is fully compliant.
func Summarize(results []Result) Summary {
	s := Summary{
		OverallStatus: StatusPass,
		TotalCount:    len(results),
		Results:       append([]Result(nil), results...),
	}
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.PassCount++
		case StatusWarn:
			s.WarnCount++
		case StatusFail:
			s.FailCount++
		}
	}

	switch {
	case s.FailCount > 0:
		s.OverallStatus = StatusFail
	case s.WarnCount > 0:
		s.OverallStatus = StatusWarn
	}

	s.CompliancePercentage = 100
	if s.TotalCount > 0 {
		s.CompliancePercentage = float64(s.PassCount) / float64(s.TotalCount) * 100
	}
	return s
}
