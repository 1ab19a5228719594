package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// MomentumEntry compares one dimension value across the current and
// previous window.
type MomentumEntry struct {
	Name         string  `json:"name"`
	Current      int     `json:"current"`
	Previous     int     `json:"previous"`
	Change       int     `json:"change"`
	DeltaPercent float64 `json:"delta_percent"`
}

type MomentumResponse struct {
	GeneratedAt string          `json:"generated_at"`
	TimeWindow  string          `json:"time_window"`
	Categories  []MomentumEntry `json:"categories"`
	Publishers  []MomentumEntry `json:"publishers"`
}

// buildMomentum pairs current/previous counts and sorts by |change|.
func buildMomentum(current, previous map[string]int, limit int) []MomentumEntry {
	names := make(map[string]bool, len(current)+len(previous))
	for name := range current {
		names[name] = true
	}
	for name := range previous {
		names[name] = true
	}

	entries := make([]MomentumEntry, 0, len(names))
	for name := range names {
		curr := current[name]
		prev := previous[name]
		entries = append(entries, MomentumEntry{
			Name:         name,
			Current:      curr,
			Previous:     prev,
			Change:       curr - prev,
			DeltaPercent: CalcDelta(curr, prev),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ai := math.Abs(float64(entries[i].Change))
		aj := math.Abs(float64(entries[j].Change))
		if ai != aj {
			return ai > aj
		}
		return entries[i].Name < entries[j].Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Momentum reports which categories and publishers are accelerating or
// fading across the window pair.
func (e *Engine) Momentum(ctx context.Context, timeWindow string) (*MomentumResponse, error) {
	now := e.now()
	window := ParseWindow(timeWindow, "7d")
	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	currentCategories, err := e.categoryCountsBetween(ctx, currentStart, now)
	if err != nil {
		return nil, err
	}
	previousCategories, err := e.categoryCountsBetween(ctx, previousStart, currentStart)
	if err != nil {
		return nil, err
	}

	currentPublishers, err := e.publisherCountsBetween(ctx, currentStart, now)
	if err != nil {
		return nil, err
	}
	previousPublishers, err := e.publisherCountsBetween(ctx, previousStart, currentStart)
	if err != nil {
		return nil, err
	}

	return &MomentumResponse{
		GeneratedAt: models.ISOFormat(now),
		TimeWindow:  timeWindow,
		Categories:  buildMomentum(currentCategories, previousCategories, 0),
		Publishers:  buildMomentum(currentPublishers, previousPublishers, 40),
	}, nil
}

func (e *Engine) publisherCountsBetween(ctx context.Context, start, end time.Time) (map[string]int, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT publisher, COUNT(*)
		FROM ai_developments
		WHERE published_at >= $1 AND published_at < $2
		GROUP BY publisher
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var publisher string
		var count int
		if err := rows.Scan(&publisher, &count); err != nil {
			return nil, err
		}
		counts[publisher] = count
	}
	return counts, rows.Err()
}
