package stats

import (
	"context"
	"fmt"
	"time"
)

type SourcesBreakdown struct {
	TimeWindow  string      `json:"time_window"`
	Total       int         `json:"total"`
	Publishers  []NameCount `json:"publishers"`
	SourceTypes []NameCount `json:"source_types"`
}

func (e *Engine) SourcesBreakdown(ctx context.Context, timeWindow string, limit int) (*SourcesBreakdown, error) {
	since := e.now().Add(-ParseWindow(timeWindow, "7d"))
	if limit < 1 {
		limit = 1
	}
	if limit > 20 {
		limit = 20
	}

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}
	publishers, err := e.groupedCounts(ctx, "publisher", since, limit)
	if err != nil {
		return nil, err
	}
	sourceTypes, err := e.groupedCounts(ctx, "source_type::text", since, 0)
	if err != nil {
		return nil, err
	}

	return &SourcesBreakdown{
		TimeWindow:  timeWindow,
		Total:       total,
		Publishers:  publishers,
		SourceTypes: sourceTypes,
	}, nil
}

type JurisdictionsBreakdown struct {
	TimeWindow    string      `json:"time_window"`
	Total         int         `json:"total"`
	Jurisdictions []NameCount `json:"jurisdictions"`
}

func (e *Engine) JurisdictionsBreakdown(ctx context.Context, timeWindow string, limit int) (*JurisdictionsBreakdown, error) {
	since := e.now().Add(-ParseWindow(timeWindow, "7d"))
	if limit < 1 {
		limit = 1
	}
	if limit > 25 {
		limit = 25
	}

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}
	jurisdictions, err := e.groupedCounts(ctx, "jurisdiction", since, limit)
	if err != nil {
		return nil, err
	}

	return &JurisdictionsBreakdown{
		TimeWindow:    timeWindow,
		Total:         total,
		Jurisdictions: jurisdictions,
	}, nil
}

type EntitiesBreakdown struct {
	TimeWindow string      `json:"time_window"`
	Total      int         `json:"total"`
	Entities   []NameCount `json:"entities"`
}

func (e *Engine) EntitiesBreakdown(ctx context.Context, timeWindow string, limit int) (*EntitiesBreakdown, error) {
	since := e.now().Add(-ParseWindow(timeWindow, "7d"))
	if limit < 1 {
		limit = 1
	}
	if limit > 30 {
		limit = 30
	}

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}
	entities, err := e.lateralCounts(ctx, `
		SELECT entity_name AS name, COUNT(*)::int AS count
		FROM ai_developments,
		LATERAL jsonb_array_elements_text(COALESCE(entities, '[]'::jsonb)) AS entity_name
		WHERE published_at >= $1
		  AND entity_name <> ''
		GROUP BY entity_name
		ORDER BY count DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}

	return &EntitiesBreakdown{
		TimeWindow: timeWindow,
		Total:      total,
		Entities:   entities,
	}, nil
}

type TagsBreakdown struct {
	TimeWindow string      `json:"time_window"`
	Total      int         `json:"total"`
	Tags       []NameCount `json:"tags"`
}

func (e *Engine) TagsBreakdown(ctx context.Context, timeWindow string, limit int) (*TagsBreakdown, error) {
	since := e.now().Add(-ParseWindow(timeWindow, "7d"))
	if limit < 1 {
		limit = 1
	}
	if limit > 30 {
		limit = 30
	}

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}
	tags, err := e.lateralCounts(ctx, `
		SELECT tag_name AS name, COUNT(*)::int AS count
		FROM ai_developments,
		LATERAL unnest(COALESCE(tags, ARRAY[]::text[])) AS tag_name
		WHERE published_at >= $1
		  AND tag_name <> ''
		GROUP BY tag_name
		ORDER BY count DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}

	return &TagsBreakdown{
		TimeWindow: timeWindow,
		Total:      total,
		Tags:       tags,
	}, nil
}

func (e *Engine) lateralCounts(ctx context.Context, query string, since time.Time, limit int) ([]NameCount, error) {
	rows, err := e.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("lateral counts: %w", err)
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var row NameCount
		if err := rows.Scan(&row.Name, &row.Count); err != nil {
			return nil, fmt.Errorf("scan lateral count: %w", err)
		}
		out = append(out, row)
	}
	if out == nil {
		out = []NameCount{}
	}
	return out, rows.Err()
}
