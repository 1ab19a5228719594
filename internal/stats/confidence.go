package stats

import (
	"context"
	"math"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

type ConfidenceBucket struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type ConfidenceResponse struct {
	GeneratedAt string             `json:"generated_at"`
	TimeWindow  string             `json:"time_window"`
	Total       int                `json:"total"`
	Buckets     []ConfidenceBucket `json:"buckets"`
}

// ConfidenceProfile buckets the window's records by confidence threshold.
func (e *Engine) ConfidenceProfile(ctx context.Context, timeWindow string) (*ConfidenceResponse, error) {
	now := e.now()
	since := now.Add(-ParseWindow(timeWindow, "7d"))

	rows, err := e.pool.Query(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE confidence >= 0.85),
			COUNT(*) FILTER (WHERE confidence >= 0.70 AND confidence < 0.85),
			COUNT(*) FILTER (WHERE confidence >= 0.50 AND confidence < 0.70),
			COUNT(*) FILTER (WHERE confidence < 0.50),
			COUNT(*)
		FROM ai_developments
		WHERE published_at >= $1
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var veryHigh, high, medium, low, total int
	if rows.Next() {
		if err := rows.Scan(&veryHigh, &high, &medium, &low, &total); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	percent := func(count int) float64 {
		if total == 0 {
			return 0
		}
		return math.Round(float64(count)/float64(total)*10000) / 100
	}

	return &ConfidenceResponse{
		GeneratedAt: models.ISOFormat(now),
		TimeWindow:  timeWindow,
		Total:       total,
		Buckets: []ConfidenceBucket{
			{Name: "very_high", Count: veryHigh, Percent: percent(veryHigh)},
			{Name: "high", Count: high, Percent: percent(high)},
			{Name: "medium", Count: medium, Percent: percent(medium)},
			{Name: "low", Count: low, Percent: percent(low)},
		},
	}, nil
}
