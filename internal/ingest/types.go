package ingest

import (
	"context"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// Candidate is a normalized record plus the relevance score the filter
// gates on. The score is never persisted.
type Candidate struct {
	models.AIDevelopment
	Relevance float64
}

// Adapter fetches and normalizes records for one source. Implementations
// must be side-effect-free beyond outbound HTTP: no DB, no cache.
type Adapter interface {
	Key() string
	Fetch(ctx context.Context, limit int) ([]Candidate, error)
}

// HealthEntry describes one completed (or skipped) source run. It feeds the
// cached health snapshot and mirrors what operators see per source.
type HealthEntry struct {
	Source              string  `json:"source"`
	DisplayName         string  `json:"display_name"`
	Status              string  `json:"status"`
	Fetched             int     `json:"fetched"`
	Accepted            int     `json:"accepted"`
	Inserted            int     `json:"inserted"`
	Duplicates          int     `json:"duplicates"`
	WriteErrors         int     `json:"write_errors"`
	DurationMS          int     `json:"duration_ms"`
	LastRun             string  `json:"last_run"`
	Error               string  `json:"error"`
	CadenceMinutes      int     `json:"cadence_minutes"`
	AcquisitionMode     string  `json:"acquisition_mode"`
	SourceType          string  `json:"source_type"`
	Enabled             bool    `json:"enabled"`
	FreshnessLagMinutes *int    `json:"freshness_lag_minutes"`
	ConsecutiveFailures *int    `json:"consecutive_failures"`
	NextRunAt           *string `json:"next_run_at"`
	LastSuccessAt       *string `json:"last_success_at"`
	LastErrorAt         *string `json:"last_error_at"`
}
