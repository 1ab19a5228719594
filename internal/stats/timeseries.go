package stats

import (
	"context"
	"fmt"
	"log"
	"time"
)

// EChartsSeries matches the chart config the dashboard feeds straight into
// ECharts.
type EChartsSeries struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Stack     string         `json:"stack"`
	AreaStyle map[string]any `json:"areaStyle,omitempty"`
	Emphasis  map[string]any `json:"emphasis"`
	Data      []int          `json:"data"`
}

type EChartsTimeseriesResponse struct {
	Legend []string        `json:"legend"`
	XAxis  []string        `json:"xAxis"`
	Series []EChartsSeries `json:"series"`
}

type bucketRow struct {
	bucket   time.Time
	category string
	count    int
}

// HourlyTimeseries returns a 24-bucket stacked line per category. The
// materialized view is refreshed and read first; when that fails (e.g. the
// view is missing) the query falls back to direct aggregation.
func (e *Engine) HourlyTimeseries(ctx context.Context) (*EChartsTimeseriesResponse, error) {
	now := e.now()
	since := now.Add(-24 * time.Hour)

	rows, err := e.viewRows(ctx, `
		SELECT bucket, category, SUM(item_count)::int AS item_count
		FROM hourly_stats
		GROUP BY bucket, category
		ORDER BY bucket
	`, "hourly_stats")
	if err != nil {
		rows, err = e.aggregateRows(ctx, "hour", since)
		if err != nil {
			return nil, err
		}
	}

	start := since.Truncate(time.Hour)
	labels := make([]string, 24)
	for i := range labels {
		labels[i] = start.Add(time.Duration(i) * time.Hour).Format("15:04")
	}

	return buildTimeseries(rows, labels, "line", func(t time.Time) string {
		return t.UTC().Format("15:04")
	}), nil
}

// WeeklyTimeseries returns 12 week-buckets of stacked bars per category.
func (e *Engine) WeeklyTimeseries(ctx context.Context) (*EChartsTimeseriesResponse, error) {
	now := e.now()
	since := now.Add(-12 * 7 * 24 * time.Hour)

	rows, err := e.viewRows(ctx, `
		SELECT bucket, category, item_count
		FROM weekly_stats
		ORDER BY bucket
	`, "weekly_stats")
	if err != nil {
		rows, err = e.aggregateRows(ctx, "week", since)
		if err != nil {
			return nil, err
		}
	}

	// Align buckets to Monday, matching date_trunc('week').
	daysSinceMonday := (int(since.Weekday()) + 6) % 7
	startWeek := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)
	labels := make([]string, 12)
	for i := range labels {
		labels[i] = startWeek.AddDate(0, 0, i*7).Format("2006-01-02")
	}

	return buildTimeseries(rows, labels, "bar", func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	}), nil
}

func (e *Engine) viewRows(ctx context.Context, query, viewName string) ([]bucketRow, error) {
	if _, err := e.pool.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW %s", viewName)); err != nil {
		log.Printf("refresh %s: %v", viewName, err)
		return nil, err
	}

	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bucketRow
	for rows.Next() {
		var row bucketRow
		if err := rows.Scan(&row.bucket, &row.category, &row.count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (e *Engine) aggregateRows(ctx context.Context, trunc string, since time.Time) ([]bucketRow, error) {
	rows, err := e.pool.Query(ctx, fmt.Sprintf(`
		SELECT date_trunc('%s', published_at) AS bucket, category::text, COUNT(*)::int
		FROM ai_developments
		WHERE published_at >= $1
		GROUP BY bucket, category
		ORDER BY bucket
	`, trunc), since)
	if err != nil {
		return nil, fmt.Errorf("timeseries aggregation: %w", err)
	}
	defer rows.Close()

	var out []bucketRow
	for rows.Next() {
		var row bucketRow
		if err := rows.Scan(&row.bucket, &row.category, &row.count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func buildTimeseries(rows []bucketRow, labels []string, chartType string, labelFor func(time.Time) string) *EChartsTimeseriesResponse {
	categories := categoryNames()
	matrix := make(map[string]map[string]int, len(categories))
	for _, row := range rows {
		label := labelFor(row.bucket)
		if matrix[row.category] == nil {
			matrix[row.category] = make(map[string]int)
		}
		matrix[row.category][label] = row.count
	}

	series := make([]EChartsSeries, 0, len(categories))
	for _, category := range categories {
		data := make([]int, len(labels))
		for i, label := range labels {
			data[i] = matrix[category][label]
		}
		s := EChartsSeries{
			Name:     category,
			Type:     chartType,
			Stack:    "total",
			Emphasis: map[string]any{"focus": "series"},
			Data:     data,
		}
		if chartType == "line" {
			s.AreaStyle = map[string]any{}
		}
		series = append(series, s)
	}

	return &EChartsTimeseriesResponse{
		Legend: categories,
		XAxis:  labels,
		Series: series,
	}
}
