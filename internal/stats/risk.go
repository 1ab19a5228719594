package stats

import (
	"context"
	"math"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// Reason thresholds for the composite score. Chosen so a healthy window
// produces the stable_signal_profile reason and nothing else.
const (
	riskIncidentRatioFloor = 0.10
	riskLowConfShareFloor  = 0.20
	riskHHIFloor           = 0.40
	riskHighAlertFloor     = 2
)

type RiskResponse struct {
	GeneratedAt   string   `json:"generated_at"`
	TimeWindow    string   `json:"time_window"`
	Score         float64  `json:"score"`
	Level         string   `json:"level"`
	Reasons       []string `json:"reasons"`
	IncidentRatio float64  `json:"incident_ratio"`
	LowConfShare  float64  `json:"low_confidence_share"`
	CombinedHHI   float64  `json:"combined_hhi"`
	HighAlerts    int      `json:"high_alerts"`
	Total         int      `json:"total"`
}

func riskLevel(score float64) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	}
	return "low"
}

// riskShares returns the incident ratio and the low-confidence share of the
// records between start and end.
func (e *Engine) riskShares(ctx context.Context, start, end time.Time) (incidentRatio, lowConfShare float64, total int, err error) {
	rows, err := e.pool.Query(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE category = 'incidents')::int,
			COUNT(*) FILTER (WHERE confidence < 0.5)::int
		FROM ai_developments
		WHERE published_at >= $1 AND published_at < $2
	`, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()

	var incidents, lowConf int
	if rows.Next() {
		if err := rows.Scan(&total, &incidents, &lowConf); err != nil {
			return 0, 0, 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, 0, err
	}
	if total == 0 {
		return 0, 0, 0, nil
	}
	return float64(incidents) / float64(total), float64(lowConf) / float64(total), total, nil
}

// Risk composes incident share, low-confidence share, signal concentration
// and alert pressure into one 0..100 score.
func (e *Engine) Risk(ctx context.Context, timeWindow string) (*RiskResponse, error) {
	now := e.now()
	window := ParseWindowExtended(timeWindow, "24h")

	incidentRatio, lowConfShare, total, err := e.riskShares(ctx, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	concentration, err := e.Concentration(ctx, timeWindow)
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

	score := incidentRatio*35 + lowConfShare*25 + concentration.Combined*40 + math.Min(20, float64(highAlerts)*5)
	score = math.Round(clampScore(score)*100) / 100

	var reasons []string
	if incidentRatio >= riskIncidentRatioFloor {
		reasons = append(reasons, "incident_ratio_elevated")
	}
	if lowConfShare >= riskLowConfShareFloor {
		reasons = append(reasons, "low_confidence_share_elevated")
	}
	if concentration.Combined >= riskHHIFloor {
		reasons = append(reasons, "signal_concentration_high")
	}
	if highAlerts >= riskHighAlertFloor {
		reasons = append(reasons, "multiple_high_alerts")
	}
	if len(reasons) == 0 {
		reasons = []string{"stable_signal_profile"}
	}

	return &RiskResponse{
		GeneratedAt:   models.ISOFormat(now),
		TimeWindow:    timeWindow,
		Score:         score,
		Level:         riskLevel(score),
		Reasons:       reasons,
		IncidentRatio: math.Round(incidentRatio*10000) / 10000,
		LowConfShare:  math.Round(lowConfShare*10000) / 10000,
		CombinedHHI:   concentration.Combined,
		HighAlerts:    highAlerts,
		Total:         total,
	}, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

type RiskTrendPoint struct {
	Bucket string  `json:"bucket"`
	Risk   float64 `json:"risk"`
	Total  int     `json:"total"`
}

type RiskTrendResponse struct {
	GeneratedAt string           `json:"generated_at"`
	TimeWindow  string           `json:"time_window"`
	Points      []RiskTrendPoint `json:"points"`
}

// trendSteps maps a window to its bucket count, step size and label layout.
// Monthly windows return step=0 and use calendar-month arithmetic instead.
func trendSteps(timeWindow string) (steps int, step time.Duration, layout string, months int) {
	switch timeWindow {
	case "1h":
		return 12, 5 * time.Minute, "15:04", 0
	case "7d":
		return 7, 24 * time.Hour, "2006-01-02", 0
	case "30d":
		return 30, 24 * time.Hour, "2006-01-02", 0
	case "90d":
		return 13, 7 * 24 * time.Hour, "2006-01-02", 0
	case "1y":
		return 12, 0, "2006-01", 1
	case "2y":
		return 24, 0, "2006-01", 1
	case "5y":
		return 60, 0, "2006-01", 1
	}
	return 24, time.Hour, "15:04", 0
}

// RiskTrend reports a bucketed risk series. Each bucket blends the incident
// ratio (60%) and the low-confidence share (40%).
func (e *Engine) RiskTrend(ctx context.Context, timeWindow string) (*RiskTrendResponse, error) {
	now := e.now()
	steps, step, layout, months := trendSteps(timeWindow)

	points := make([]RiskTrendPoint, 0, steps)
	for i := steps; i >= 1; i-- {
		var start, end time.Time
		if months > 0 {
			start = now.AddDate(0, -i*months, 0)
			end = now.AddDate(0, -(i-1)*months, 0)
		} else {
			start = now.Add(-time.Duration(i) * step)
			end = start.Add(step)
		}

		incidentRatio, lowConfShare, total, err := e.riskShares(ctx, start, end)
		if err != nil {
			return nil, err
		}
		risk := clampScore(100 * (incidentRatio*0.6 + lowConfShare*0.4))
		points = append(points, RiskTrendPoint{
			Bucket: start.UTC().Format(layout),
			Risk:   math.Round(risk*100) / 100,
			Total:  total,
		})
	}

	return &RiskTrendResponse{
		GeneratedAt: models.ISOFormat(now),
		TimeWindow:  timeWindow,
		Points:      points,
	}, nil
}
