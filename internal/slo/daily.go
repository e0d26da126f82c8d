package slo

import "time"

// Metric names used in results and alerts.
const (
	MetricLCP              = "LCP P75"
	MetricINP              = "INP P75"
	MetricCLS              = "CLS P75"
	MetricHeroCTR          = "Hero CTR"
	MetricSearchConversion = "Search Conversion"
	MetricAdViewability    = "Ad Viewability"
	MetricAdViewTime       = "Ad View Time P50 ms"
	MetricUptime           = "Uptime 28d"
)

// DailySummary is the dashboard's input: one day of KPIs plus web vitals.
// Nil fields were not measured and are skipped. Percent fields are 0-100.
type DailySummary struct {
	Date                 time.Time `json:"date"`
	Sessions             int       `json:"sessions"`
	HeroCTR              *float64  `json:"heroCTR,omitempty"`
	SearchConversionRate *float64  `json:"searchConversionRate,omitempty"`
	AdViewability        *float64  `json:"adViewability,omitempty"`
	AdViewTimeP50Ms      *float64  `json:"adViewTimeP50Ms,omitempty"`
	UptimePct            *float64  `json:"uptimePct,omitempty"`
	Vitals               Vitals    `json:"vitals"`
}

// Vitals holds p75 web vitals; zero means no samples.
type Vitals struct {
	LCPP75 float64 `json:"lcp_p75"`
	INPP75 float64 `json:"inp_p75"`
	CLSP75 float64 `json:"cls_p75"`
}

// Observation is one measured metric ready for evaluation.
type Observation struct {
	Metric  string
	Current float64
}

// Observations extracts the measured metrics, converting percentages to ratios.
func (d DailySummary) Observations() []Observation {
	var obs []Observation
	if d.Vitals.LCPP75 > 0 {
		obs = append(obs, Observation{MetricLCP, d.Vitals.LCPP75})
	}
	if d.Vitals.INPP75 > 0 {
		obs = append(obs, Observation{MetricINP, d.Vitals.INPP75})
	}
	if d.Vitals.CLSP75 > 0 {
		obs = append(obs, Observation{MetricCLS, d.Vitals.CLSP75})
	}
	if d.HeroCTR != nil {
		obs = append(obs, Observation{MetricHeroCTR, *d.HeroCTR / 100})
	}
	if d.SearchConversionRate != nil {
		obs = append(obs, Observation{MetricSearchConversion, *d.SearchConversionRate / 100})
	}
	if d.AdViewability != nil {
		obs = append(obs, Observation{MetricAdViewability, *d.AdViewability / 100})
	}
	if d.AdViewTimeP50Ms != nil {
		obs = append(obs, Observation{MetricAdViewTime, *d.AdViewTimeP50Ms})
	}
	if d.UptimePct != nil {
		obs = append(obs, Observation{MetricUptime, *d.UptimePct / 100})
	}
	return obs
}

// EvaluateDaily evaluates every measured metric of the day against cfg.
func EvaluateDaily(day DailySummary, cfg Config) (Summary, error) {
	observations := day.Observations()
	results := make([]Result, 0, len(observations))
	for _, o := range observations {
		target, ok := cfg.Target(o.Metric)
		if !ok {
			continue
		}
		res, err := Evaluate(o.Metric, o.Current, target)
		if err != nil {
			return Summary{}, err
		}
		results = append(results, res)
	}
	return Summarize(results), nil
}
