package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bankcompare/internal/slo"
	"bankcompare/internal/version"
)

// HTTPOptions parameterise the analytics endpoint.
type HTTPOptions struct {
	URL       string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// HTTPSource fetches the summary from an analytics endpoint.
type HTTPSource struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTPSource constructs an HTTP-backed source.
func NewHTTPSource(opts HTTPOptions, logger zerolog.Logger) *HTTPSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		opts:   opts,
		logger: logger.With().Str("component", "metrics_http").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET and decodes the body.
func (s *HTTPSource) Fetch(ctx context.Context) (slo.DailySummary, error) {
	if strings.TrimSpace(s.opts.URL) == "" {
		return slo.DailySummary{}, errors.New("metrics url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return slo.DailySummary{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return slo.DailySummary{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return slo.DailySummary{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return slo.DailySummary{}, parseHTTPError(resp.StatusCode, body)
	}

	summary, err := Decode(body)
	if err != nil {
		return slo.DailySummary{}, err
	}
	s.logger.Debug().Int("sessions", summary.Sessions).Msg("summary fetched")
	return summary, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("analytics api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("analytics api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("analytics api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("analytics api error (%d)", status)
}

var _ Source = (*HTTPSource)(nil)
