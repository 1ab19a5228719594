package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType classifies where a development record originated.
type SourceType string

const (
	SourceGov        SourceType = "gov"
	SourceAcademic   SourceType = "academic"
	SourceMedia      SourceType = "media"
	SourceIndustry   SourceType = "industry"
	SourceFunding    SourceType = "funding"
	SourceRepository SourceType = "repository"
)

// CategoryType is the editorial bucket a record lands in.
type CategoryType string

const (
	CategoryPolicy    CategoryType = "policy"
	CategoryResearch  CategoryType = "research"
	CategoryIndustry  CategoryType = "industry"
	CategoryFunding   CategoryType = "funding"
	CategoryNews      CategoryType = "news"
	CategoryIncidents CategoryType = "incidents"
)

// Categories lists every category in the fixed order used by timeseries and
// alert output.
func Categories() []CategoryType {
	return []CategoryType{
		CategoryPolicy,
		CategoryResearch,
		CategoryIndustry,
		CategoryFunding,
		CategoryNews,
		CategoryIncidents,
	}
}

// AIDevelopment is the canonical normalized record produced by any adapter.
type AIDevelopment struct {
	ID          uuid.UUID    `json:"id"`
	SourceID    string       `json:"source_id"`
	SourceType  SourceType   `json:"source_type"`
	Category    CategoryType `json:"category"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Publisher   string       `json:"publisher"`
	PublishedAt time.Time    `json:"published_at"`
	IngestedAt  time.Time    `json:"ingested_at"`
	Language    string       `json:"language"`
	Jurisdiction string      `json:"jurisdiction"`
	Entities    []string     `json:"entities"`
	Tags        []string     `json:"tags"`
	Hash        string       `json:"hash"`
	Confidence  float64      `json:"confidence"`
}

// SourceState tracks per-source ingestion progress. One row per source key.
type SourceState struct {
	SourceKey           string     `json:"source_key"`
	Cursor              string     `json:"cursor"`
	ETag                string     `json:"etag"`
	LastModified        string     `json:"last_modified"`
	LastSuccessAt       *time.Time `json:"last_success_at"`
	LastErrorAt         *time.Time `json:"last_error_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error"`
	NextRunAt           *time.Time `json:"next_run_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SourceRun is an append-only history row describing one ingestion attempt.
type SourceRun struct {
	ID          uuid.UUID      `json:"id"`
	SourceKey   string         `json:"source_key"`
	Status      string         `json:"status"` // ok, error, skipped_lock
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	DurationMS  int            `json:"duration_ms"`
	Fetched     int            `json:"fetched"`
	Accepted    int            `json:"accepted"`
	Inserted    int            `json:"inserted"`
	Duplicates  int            `json:"duplicates"`
	WriteErrors int            `json:"write_errors"`
	Error       string         `json:"error"`
	Details     map[string]any `json:"details"`
}

// ISOFormat renders a UTC timestamp the way the feed and pub/sub payloads
// expect: RFC 3339 with an explicit +00:00 offset and no sub-second noise
// when the fraction is zero.
func ISOFormat(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05+00:00")
	}
	return t.Format("2006-01-02T15:04:05.999999+00:00")
}
