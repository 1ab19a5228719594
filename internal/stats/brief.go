package stats

import (
	"context"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// BriefResponse is a compact dashboard header payload: one number per
// headline slot.
type BriefResponse struct {
	GeneratedAt     string `json:"generated_at"`
	TimeWindow      string `json:"time_window"`
	TotalItems      int    `json:"total_items"`
	HighAlertCount  int    `json:"high_alert_count"`
	TopCategory     string `json:"top_category"`
	TopJurisdiction string `json:"top_jurisdiction"`
	TopPublisher    string `json:"top_publisher"`
	TopTag          string `json:"top_tag"`
}

func (e *Engine) Brief(ctx context.Context, timeWindow string) (*BriefResponse, error) {
	now := e.now()
	since := now.Add(-ParseWindow(timeWindow, "24h"))

	total, err := e.countSince(ctx, since)
	if err != nil {
		return nil, err
	}

	top := func(rows []NameCount) string {
		if len(rows) == 0 {
			return ""
		}
		return rows[0].Name
	}

	categories, err := e.groupedCounts(ctx, "category::text", since, 1)
	if err != nil {
		return nil, err
	}
	jurisdictions, err := e.groupedCounts(ctx, "jurisdiction", since, 1)
	if err != nil {
		return nil, err
	}
	publishers, err := e.groupedCounts(ctx, "publisher", since, 1)
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
	`, since, 1)
	if err != nil {
		return nil, err
	}

	alerts, err := e.Alerts(ctx, timeWindow, DefaultAlertOptions())
	if err != nil {
		return nil, err
	}
	highAlerts := 0
	for _, a := range alerts.Alerts {
		if a.Severity == "high" {
			highAlerts++
		}
	}

	return &BriefResponse{
		GeneratedAt:     models.ISOFormat(now),
		TimeWindow:      timeWindow,
		TotalItems:      total,
		HighAlertCount:  highAlerts,
		TopCategory:     top(categories),
		TopJurisdiction: top(jurisdictions),
		TopPublisher:    top(publishers),
		TopTag:          top(tags),
	}, nil
}
