package stats

import (
	"context"
	"sort"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

type CompareSlice struct {
	Canada int `json:"canada"`
	Global int `json:"global"`
	Other  int `json:"other"`
}

type CompareCategory struct {
	Category string `json:"category"`
	Canada   int    `json:"canada"`
	Global   int    `json:"global"`
	Other    int    `json:"other"`
}

type CompareResponse struct {
	GeneratedAt string            `json:"generated_at"`
	TimeWindow  string            `json:"time_window"`
	Total       int               `json:"total"`
	Totals      CompareSlice      `json:"totals"`
	Categories  []CompareCategory `json:"categories"`
}

// Compare splits the window between Canadian, explicitly Global, and all
// other jurisdictions, per category and in total. Provinces land in the
// "other" bucket rather than the Canada one; the Canada slice is the
// federal jurisdiction only.
func (e *Engine) Compare(ctx context.Context, timeWindow string) (*CompareResponse, error) {
	now := e.now()
	since := now.Add(-ParseWindow(timeWindow, "7d"))

	rows, err := e.pool.Query(ctx, `
		SELECT
			category::text,
			COUNT(*) FILTER (WHERE jurisdiction = 'Canada')::int,
			COUNT(*) FILTER (WHERE jurisdiction = 'Global')::int,
			COUNT(*)::int
		FROM ai_developments
		WHERE published_at >= $1
		GROUP BY category
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type split struct {
		canada int
		global int
		total  int
	}
	byCategory := make(map[string]split)
	for rows.Next() {
		var category string
		var s split
		if err := rows.Scan(&category, &s.canada, &s.global, &s.total); err != nil {
			return nil, err
		}
		byCategory[category] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Categories are sorted by name here, unlike the timeseries output.
	names := categoryNames()
	sort.Strings(names)

	var totals CompareSlice
	total := 0
	categories := make([]CompareCategory, 0, len(names))
	for _, category := range names {
		s := byCategory[category]
		other := s.total - s.canada - s.global
		if other < 0 {
			other = 0
		}
		categories = append(categories, CompareCategory{
			Category: category,
			Canada:   s.canada,
			Global:   s.global,
			Other:    other,
		})
		totals.Canada += s.canada
		totals.Global += s.global
		totals.Other += other
		total += s.total
	}

	return &CompareResponse{
		GeneratedAt: models.ISOFormat(now),
		TimeWindow:  timeWindow,
		Total:       total,
		Totals:      totals,
		Categories:  categories,
	}, nil
}
