package stats

import (
	"context"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

type SummaryResponse struct {
	GeneratedAt  string      `json:"generated_at"`
	TimeWindow   string      `json:"time_window"`
	Total        int         `json:"total"`
	Previous     int         `json:"previous"`
	DeltaPercent float64     `json:"delta_percent"`
	Categories   []NameCount `json:"categories"`
	SourceTypes  []NameCount `json:"source_types"`
	Languages    []NameCount `json:"languages"`
}

// Summary is the window-at-a-glance payload: the total against the previous
// window plus the category, source-type and language splits.
func (e *Engine) Summary(ctx context.Context, timeWindow string) (*SummaryResponse, error) {
	now := e.now()
	window := ParseWindowExtended(timeWindow, "24h")
	since := now.Add(-window)

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}
	previous, err := e.countBetween(ctx, now.Add(-2*window), since)
	if err != nil {
		return nil, err
	}

	categories, err := e.groupedCounts(ctx, "category::text", since, 0)
	if err != nil {
		return nil, err
	}
	sourceTypes, err := e.groupedCounts(ctx, "source_type::text", since, 0)
	if err != nil {
		return nil, err
	}
	languages, err := e.groupedCounts(ctx, "language", since, 0)
	if err != nil {
		return nil, err
	}

	return &SummaryResponse{
		GeneratedAt:  models.ISOFormat(now),
		TimeWindow:   timeWindow,
		Total:        total,
		Previous:     previous,
		DeltaPercent: CalcDelta(total, previous),
		Categories:   categories,
		SourceTypes:  sourceTypes,
		Languages:    languages,
	}, nil
}

type CoverageResponse struct {
	GeneratedAt         string      `json:"generated_at"`
	TimeWindow          string      `json:"time_window"`
	Total               int         `json:"total"`
	DistinctPublishers  int         `json:"distinct_publishers"`
	DistinctJurisdicts  int         `json:"distinct_jurisdictions"`
	EarliestPublishedAt string      `json:"earliest_published_at"`
	LatestPublishedAt   string      `json:"latest_published_at"`
	SourceTypes         []NameCount `json:"source_types"`
}

// Coverage describes how broad the window's signal is rather than how big.
func (e *Engine) Coverage(ctx context.Context, timeWindow string) (*CoverageResponse, error) {
	now := e.now()
	since := now.Add(-ParseWindowExtended(timeWindow, "7d"))

	rows, err := e.pool.Query(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(DISTINCT publisher)::int,
			COUNT(DISTINCT jurisdiction)::int,
			MIN(published_at),
			MAX(published_at)
		FROM ai_developments
		WHERE published_at >= $1
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total, publishers, jurisdictions int
	var earliest, latest *time.Time
	if rows.Next() {
		if err := rows.Scan(&total, &publishers, &jurisdictions, &earliest, &latest); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	sourceTypes, err := e.groupedCounts(ctx, "source_type::text", since, 0)
	if err != nil {
		return nil, err
	}

	resp := &CoverageResponse{
		GeneratedAt:        models.ISOFormat(now),
		TimeWindow:         timeWindow,
		Total:              total,
		DistinctPublishers: publishers,
		DistinctJurisdicts: jurisdictions,
		SourceTypes:        sourceTypes,
	}
	if earliest != nil {
		resp.EarliestPublishedAt = models.ISOFormat(*earliest)
	}
	if latest != nil {
		resp.LatestPublishedAt = models.ISOFormat(*latest)
	}
	return resp, nil
}
