package slo

import (
	"fmt"
	"math"
	"strings"
)

// Badge is the compact dashboard indicator of a summary.
type Badge struct {
	Icon  string
	Color string
	Text  string
}

// BadgeFor renders the summary badge.
func BadgeFor(s Summary) Badge {
	text := fmt.Sprintf("SLO: %.0f%%", s.CompliancePercentage)
	switch s.OverallStatus {
	case StatusFail:
		return Badge{Icon: "❌", Color: "red", Text: text}
	case StatusWarn:
		return Badge{Icon: "⚠️", Color: "yellow", Text: text}
	default:
		return Badge{Icon: "✅", Color: "green", Text: text}
	}
}

// ResultFor finds the first result whose metric contains name, case-insensitively.
func ResultFor(s Summary, name string) (Result, bool) {
	needle := strings.ToLower(name)
	for _, r := range s.Results {
		if strings.Contains(strings.ToLower(r.Metric), needle) {
			return r, true
		}
	}
	return Result{}, false
}

// FormatResult renders a one-line explanation of a result.
func FormatResult(r Result) string {
	sign := ""
	if r.DeltaPct >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s (Current: %s, Target: %s, Δ%s%.1f%%)",
		r.Description,
		FormatValue(r.Current, r.Metric),
		FormatValue(r.Target, r.Metric),
		sign, r.DeltaPct,
	)
}

// FormatValue renders a metric value in its natural unit.
func FormatValue(v float64, metric string) string {
	m := strings.ToLower(metric)
	switch {
	case strings.Contains(m, "ms") || strings.Contains(m, "lcp") || strings.Contains(m, "inp"):
		return fmt.Sprintf("%.0fms", math.Round(v))
	case strings.Contains(m, "cls"):
		return fmt.Sprintf("%.3f", v)
	case strings.Contains(m, "ctr"), strings.Contains(m, "conversion"), strings.Contains(m, "viewability"):
		return fmt.Sprintf("%.1f%%", v*100)
	case strings.Contains(m, "uptime"):
		return fmt.Sprintf("%.3f%%", v*100)
	}
	return fmt.Sprintf("%g", v)
}
