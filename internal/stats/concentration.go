package stats

import (
	"context"
	"math"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// HHI is the Herfindahl-Hirschman Index: the sum of squared shares over
// the given counts. Ranges (1/n, 1]; 0 for an empty slice.
func HHI(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	hhi := 0.0
	for _, c := range counts {
		share := float64(c) / float64(total)
		hhi += share * share
	}
	return math.Round(hhi*10000) / 10000
}

// ConcentrationLabel buckets an HHI value for display.
func ConcentrationLabel(hhi float64) string {
	switch {
	case hhi >= 0.4:
		return "high"
	case hhi >= 0.2:
		return "medium"
	}
	return "low"
}

type ConcentrationAxis struct {
	HHI   float64     `json:"hhi"`
	Label string      `json:"label"`
	Top   []NameCount `json:"top"`
}

type ConcentrationResponse struct {
	GeneratedAt   string            `json:"generated_at"`
	TimeWindow    string            `json:"time_window"`
	Publishers    ConcentrationAxis `json:"publishers"`
	Jurisdictions ConcentrationAxis `json:"jurisdictions"`
	Categories    ConcentrationAxis `json:"categories"`
	Combined      float64           `json:"combined_hhi"`
	CombinedLabel string            `json:"combined_label"`
}

// Concentration measures how concentrated the signal is across the top-8
// publishers, top-8 jurisdictions, and all categories.
func (e *Engine) Concentration(ctx context.Context, timeWindow string) (*ConcentrationResponse, error) {
	now := e.now()
	since := now.Add(-ParseWindow(timeWindow, "7d"))

	publishers, err := e.groupedCounts(ctx, "publisher", since, 8)
	if err != nil {
		return nil, err
	}
	jurisdictions, err := e.groupedCounts(ctx, "jurisdiction", since, 8)
	if err != nil {
		return nil, err
	}
	categories, err := e.groupedCounts(ctx, "category::text", since, 0)
	if err != nil {
		return nil, err
	}

	axis := func(rows []NameCount) ConcentrationAxis {
		counts := make([]int, len(rows))
		for i, row := range rows {
			counts[i] = row.Count
		}
		hhi := HHI(counts)
		return ConcentrationAxis{HHI: hhi, Label: ConcentrationLabel(hhi), Top: rows}
	}

	pubAxis := axis(publishers)
	jurAxis := axis(jurisdictions)
	catAxis := axis(categories)

	combined := math.Round((pubAxis.HHI+jurAxis.HHI+catAxis.HHI)/3*10000) / 10000

	return &ConcentrationResponse{
		GeneratedAt:   models.ISOFormat(now),
		TimeWindow:    timeWindow,
		Publishers:    pubAxis,
		Jurisdictions: jurAxis,
		Categories:    catAxis,
		Combined:      combined,
		CombinedLabel: ConcentrationLabel(combined),
	}, nil
}
