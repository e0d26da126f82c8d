package metrics

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"bankcompare/internal/slo"
)

// FileSource reads the summary from a file exported by the analytics job.
type FileSource struct {
	path   string
	logger zerolog.Logger
}

// NewFileSource constructs a file-backed source.
func NewFileSource(path string, logger zerolog.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger.With().Str("component", "metrics_file").Logger(),
	}
}

// Fetch re-reads the file on every call.
func (s *FileSource) Fetch(ctx context.Context) (slo.DailySummary, error) {
	if err := ctx.Err(); err != nil {
		return slo.DailySummary{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return slo.DailySummary{}, fmt.Errorf("read summary file: %w", err)
	}
	summary, err := Decode(data)
	if err != nil {
		return slo.DailySummary{}, err
	}
	s.logger.Debug().Str("path", s.path).Int("sessions", summary.Sessions).Msg("summary loaded")
	return summary, nil
}

var _ Source = (*FileSource)(nil)
