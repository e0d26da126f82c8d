package loan

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"bankcompare/internal/cache"
)

// Calculator memoizes schedules on the (principal, rate, term) triple.
type Calculator struct {
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCalculator wires a cache into the calculator. A nil cache disables memoization.
func NewCalculator(c cache.Cache, ttl time.Duration, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "loan_calculator").Logger(),
	}
}

// Calculate validates the terms, then serves the schedule from cache or computes it.
// Cache failures are logged and never fail the calculation.
func (c *Calculator) Calculate(ctx context.Context, t Terms) (Schedule, error) {
	if err := t.Validate(); err != nil {
		return Schedule{}, err
	}
	if c.cache == nil {
		return Compute(t)
	}

	key := CacheKey(t)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache read failed")
	} else if ok {
		var cached Schedule
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding malformed cached schedule")
	}

	schedule, err := Compute(t)
	if err != nil {
		return Schedule{}, err
	}

	payload, err := json.Marshal(schedule)
	if err == nil {
		if err := c.cache.Set(ctx, key, string(payload), c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache write failed")
		}
	}
	return schedule, nil
}

// CacheKey renders the terms with full float precision so distinct inputs never collide.
func CacheKey(t Terms) string {
	return "loan:" +
		strconv.FormatFloat(t.Principal, 'g', -1, 64) + ":" +
		strconv.FormatFloat(t.AnnualRatePercent, 'g', -1, 64) + ":" +
		strconv.Itoa(t.TermMonths)
}
