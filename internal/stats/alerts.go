package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// AlertOptions are the tunable thresholds of the change-point detector.
type AlertOptions struct {
	MinBaseline     int
	MinDeltaPercent float64
	MinZScore       float64
}

// DefaultAlertOptions matches the dashboard defaults.
func DefaultAlertOptions() AlertOptions {
	return AlertOptions{MinBaseline: 3, MinDeltaPercent: 35.0, MinZScore: 1.2}
}

// Alert is one category-level divergence between the current window and
// its history.
type Alert struct {
	Category       string  `json:"category"`
	Direction      string  `json:"direction"`
	Severity       string  `json:"severity"`
	TriggerReason  string  `json:"trigger_reason"`
	Current        int     `json:"current"`
	Previous       int     `json:"previous"`
	DeltaPercent   float64 `json:"delta_percent"`
	ZScore         float64 `json:"z_score"`
	BaselineMean   float64 `json:"baseline_mean"`
	BaselineStddev float64 `json:"baseline_stddev"`
}

type AlertsResponse struct {
	GeneratedAt     string  `json:"generated_at"`
	TimeWindow      string  `json:"time_window"`
	MinBaseline     int     `json:"min_baseline"`
	MinDeltaPercent float64 `json:"min_delta_percent"`
	MinZScore       float64 `json:"min_z_score"`
	LookbackWindows int     `json:"lookback_windows"`
	Alerts          []Alert `json:"alerts"`
}

// lookbackFor shrinks the history for long horizons so we do not reach
// absurdly far back.
func lookbackFor(window time.Duration) int {
	switch {
	case window >= 365*24*time.Hour:
		return 4
	case window >= 90*24*time.Hour:
		return 6
	}
	return 8
}

// populationStddev is the population (not sample) formula; 0 when fewer
// than two samples exist.
func populationStddev(values []int) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	mean = float64(sum) / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		diff := float64(v) - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// ComputeAlerts evaluates one category against its history. history[0] is
// the most recent prior period. Returns ok=false when nothing fires.
func ComputeAlerts(category string, current int, history []int, opts AlertOptions) (Alert, bool) {
	mean, stddev := populationStddev(history)

	previous := 0
	if len(history) > 0 {
		previous = history[0]
	}

	// Degenerate history: a flat series has zero variance, so a synthetic
	// +/-2.0 stands in when the jump is material.
	var zScore float64
	diff := float64(current) - mean
	if stddev > 0 {
		zScore = diff / stddev
	} else if math.Abs(diff) >= math.Max(2.0, 0.5*mean) {
		if diff >= 0 {
			zScore = 2.0
		} else {
			zScore = -2.0
		}
	}

	baselineAnchor := previous
	if rounded := int(math.Round(mean)); rounded > baselineAnchor {
		baselineAnchor = rounded
	}
	baselineReady := baselineAnchor >= opts.MinBaseline || current >= opts.MinBaseline

	delta := CalcDelta(current, previous)

	deltaFired := math.Abs(delta) >= opts.MinDeltaPercent
	zFired := math.Abs(zScore) >= opts.MinZScore
	if !baselineReady || (!deltaFired && !zFired) {
		return Alert{}, false
	}

	trigger := "hybrid"
	if deltaFired && !zFired {
		trigger = "delta"
	} else if zFired && !deltaFired {
		trigger = "z_score"
	}

	severity := "medium"
	if math.Abs(delta) >= 100 || math.Abs(zScore) >= 2.5 {
		severity = "high"
	}

	direction := "down"
	if current >= baselineAnchor {
		direction = "up"
	}

	return Alert{
		Category:       category,
		Direction:      direction,
		Severity:       severity,
		TriggerReason:  trigger,
		Current:        current,
		Previous:       previous,
		DeltaPercent:   delta,
		ZScore:         math.Round(zScore*100) / 100,
		BaselineMean:   math.Round(mean*100) / 100,
		BaselineStddev: math.Round(stddev*100) / 100,
	}, true
}

// RankAlerts orders alerts by how far past their thresholds they are, with
// a flat bonus for high severity, and keeps the top 8.
func RankAlerts(alerts []Alert, opts AlertOptions) []Alert {
	score := func(a Alert) float64 {
		s := math.Max(
			math.Abs(a.DeltaPercent)/opts.MinDeltaPercent,
			math.Abs(a.ZScore)/opts.MinZScore,
		)
		if a.Severity == "high" {
			s += 2
		}
		return s
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return score(alerts[i]) > score(alerts[j])
	})
	if len(alerts) > 8 {
		alerts = alerts[:8]
	}
	return alerts
}

// Alerts runs the detector over every category for the given window.
func (e *Engine) Alerts(ctx context.Context, timeWindow string, opts AlertOptions) (*AlertsResponse, error) {
	now := e.now()
	window := ParseWindowExtended(timeWindow, "24h")
	lookback := lookbackFor(window)

	currentCounts, err := e.categoryCountsBetween(ctx, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	// histories[cat][k] is the count of period k+1 windows back.
	histories := make(map[string][]int)
	for k := 1; k <= lookback; k++ {
		start := now.Add(-time.Duration(k+1) * window)
		end := now.Add(-time.Duration(k) * window)
		counts, err := e.categoryCountsBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}
		for _, category := range categoryNames() {
			histories[category] = append(histories[category], counts[category])
		}
	}

	var alerts []Alert
	for _, category := range categoryNames() {
		alert, ok := ComputeAlerts(category, currentCounts[category], histories[category], opts)
		if ok {
			alerts = append(alerts, alert)
		}
	}
	alerts = RankAlerts(alerts, opts)
	if alerts == nil {
		alerts = []Alert{}
	}

	return &AlertsResponse{
		GeneratedAt:     models.ISOFormat(now),
		TimeWindow:      timeWindow,
		MinBaseline:     opts.MinBaseline,
		MinDeltaPercent: opts.MinDeltaPercent,
		MinZScore:       opts.MinZScore,
		LookbackWindows: lookback,
		Alerts:          alerts,
	}, nil
}
