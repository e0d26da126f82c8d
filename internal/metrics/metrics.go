package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	hjson "github.com/hjson/hjson-go/v4"

	"bankcompare/internal/slo"
)

// Source retrieves the latest daily KPI summary.
type Source interface {
	Fetch(ctx context.Context) (slo.DailySummary, error)
}

// payload is the analytics export shape: today's KPIs in percent plus
// per-vital p75 values.
type payload struct {
	Today struct {
		Date                 string   `json:"date"`
		Sessions             int      `json:"sessions"`
		HeroCTR              *float64 `json:"heroCTR"`
		SearchConversionRate *float64 `json:"searchConversionRate"`
		AdViewability        *float64 `json:"adViewability"`
		AdViewTimeP50Ms      *float64 `json:"adViewTimeP50Ms"`
		UptimePct            *float64 `json:"uptimePct"`
	} `json:"today"`
	Vitals struct {
		LCP vital `json:"lcp"`
		INP vital `json:"inp"`
		CLS vital `json:"cls"`
	} `json:"vitals"`
}

type vital struct {
	P75 float64 `json:"p75"`
}

// Decode parses a summary document. Comments and unquoted keys are accepted.
func Decode(data []byte) (slo.DailySummary, error) {
	var generic any
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return slo.DailySummary{}, fmt.Errorf("parse summary: %w", err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return slo.DailySummary{}, fmt.Errorf("normalize summary: %w", err)
	}

	var p payload
	if err := json.Unmarshal(normalized, &p); err != nil {
		return slo.DailySummary{}, fmt.Errorf("decode summary: %w", err)
	}

	date, err := parseDate(p.Today.Date)
	if err != nil {
		return slo.DailySummary{}, err
	}

	return slo.DailySummary{
		Date:                 date,
		Sessions:             p.Today.Sessions,
		HeroCTR:              p.Today.HeroCTR,
		SearchConversionRate: p.Today.SearchConversionRate,
		AdViewability:        p.Today.AdViewability,
		AdViewTimeP50Ms:      p.Today.AdViewTimeP50Ms,
		UptimePct:            p.Today.UptimePct,
		Vitals: slo.Vitals{
			LCPP75: p.Vitals.LCP.P75,
			INPP75: p.Vitals.INP.P75,
			CLSP75: p.Vitals.CLS.P75,
		},
	}, nil
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse summary date %q: %w", v, err)
	}
	return t.UTC(), nil
}
