// Package stats computes every read-side aggregate: KPIs, timeseries,
// breakdowns, change-point alerts, concentration, momentum, and the
// composite risk index. Pure math lives in standalone functions so the SQL
// readers stay thin.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// Engine reads the developments table and its materialized views.
type Engine struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewEngine(pool *pgxpool.Pool) *Engine {
	return &Engine{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var baseWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

var extendedWindows = map[string]time.Duration{
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
	"2y":  2 * 365 * 24 * time.Hour,
	"5y":  5 * 365 * 24 * time.Hour,
}

// ParseWindow resolves a time_window name against the closed base set,
// falling back to the given default.
func ParseWindow(name, fallback string) time.Duration {
	if d, ok := baseWindows[name]; ok {
		return d
	}
	return baseWindows[fallback]
}

// ParseWindowExtended also accepts the long-horizon windows some endpoints
// support.
func ParseWindowExtended(name, fallback string) time.Duration {
	if d, ok := baseWindows[name]; ok {
		return d
	}
	if d, ok := extendedWindows[name]; ok {
		return d
	}
	if d, ok := baseWindows[fallback]; ok {
		return d
	}
	return extendedWindows[fallback]
}

// CalcDelta is the percentage-change rule every endpoint shares: 0 when
// both sides are zero, 100 when growth starts from zero, else the rounded
// relative change.
func CalcDelta(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return math.Round(float64(current-previous)/float64(previous)*10000) / 100
}

// NameCount is the ubiquitous breakdown row.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (e *Engine) countBetween(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := e.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ai_developments WHERE published_at >= $1 AND published_at < $2",
		start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count between: %w", err)
	}
	return count, nil
}

func (e *Engine) countSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := e.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ai_developments WHERE published_at >= $1",
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count since: %w", err)
	}
	return count, nil
}

// categoryCountsBetween returns per-category counts for one period, keyed
// by the lowercase enum value. Missing categories are absent, not zero.
func (e *Engine) categoryCountsBetween(ctx context.Context, start, end time.Time) (map[string]int, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT category::text, COUNT(*)
		FROM ai_developments
		WHERE published_at >= $1 AND published_at < $2
		GROUP BY category
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// groupedCounts runs a GROUP BY over one text column within a window.
func (e *Engine) groupedCounts(ctx context.Context, column string, since time.Time, limit int) ([]NameCount, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) AS count
		FROM ai_developments
		WHERE published_at >= $1
		GROUP BY %s
		ORDER BY count DESC
	`, column, column)
	args := []interface{}{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grouped counts by %s: %w", column, err)
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var row NameCount
		if err := rows.Scan(&row.Name, &row.Count); err != nil {
			return nil, fmt.Errorf("scan grouped count: %w", err)
		}
		out = append(out, row)
	}
	if out == nil {
		out = []NameCount{}
	}
	return out, rows.Err()
}

func categoryNames() []string {
	cats := models.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
