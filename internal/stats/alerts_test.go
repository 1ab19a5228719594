package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatHistory(value, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestPopulationStddev(t *testing.T) {
	mean, stddev := populationStddev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stddev)

	mean, stddev = populationStddev([]int{7})
	assert.Equal(t, 7.0, mean)
	assert.Zero(t, stddev)

	mean, stddev = populationStddev([]int{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 2.0, stddev)
}

func TestComputeAlertsDeltaOnly(t *testing.T) {
	opts := AlertOptions{MinBaseline: 3, MinDeltaPercent: 35, MinZScore: 999}

	alert, ok := ComputeAlerts("policy", 0, flatHistory(10, 8), opts)
	require.True(t, ok)
	assert.Equal(t, "policy", alert.Category)
	assert.Equal(t, "down", alert.Direction)
	assert.Equal(t, "delta", alert.TriggerReason)
	assert.Equal(t, -100.0, alert.DeltaPercent)
	assert.Equal(t, 10, alert.Previous)
	assert.Equal(t, 10.0, alert.BaselineMean)
	assert.Equal(t, 0.0, alert.BaselineStddev)
}

func TestComputeAlertsZScoreOnly(t *testing.T) {
	opts := AlertOptions{MinBaseline: 3, MinDeltaPercent: 999, MinZScore: 1.5}

	alert, ok := ComputeAlerts("research", 30, flatHistory(10, 8), opts)
	require.True(t, ok)
	assert.Equal(t, "up", alert.Direction)
	assert.Equal(t, "z_score", alert.TriggerReason)
	// Flat history has zero variance; the synthetic z stands in.
	assert.Equal(t, 2.0, alert.ZScore)
}

func TestComputeAlertsHybrid(t *testing.T) {
	alert, ok := ComputeAlerts("industry", 25, flatHistory(10, 8), DefaultAlertOptions())
	require.True(t, ok)
	assert.Equal(t, "hybrid", alert.TriggerReason)
	assert.Equal(t, "high", alert.Severity)
	assert.Equal(t, 150.0, alert.DeltaPercent)
}

func TestComputeAlertsSyntheticZSuppressedOnSmallJump(t *testing.T) {
	// |curr - mean| below max(2.0, 0.5*mean) keeps z at zero, and the
	// delta alone is under threshold.
	opts := AlertOptions{MinBaseline: 3, MinDeltaPercent: 35, MinZScore: 1.2}
	_, ok := ComputeAlerts("news", 12, flatHistory(10, 8), opts)
	assert.False(t, ok)
}

func TestComputeAlertsBaselineNotReady(t *testing.T) {
	opts := DefaultAlertOptions()

	// Anchor max(1, 1) and current 2 both below min_baseline 3.
	_, ok := ComputeAlerts("funding", 2, flatHistory(1, 8), opts)
	assert.False(t, ok)

	// A current spike alone can satisfy readiness.
	alert, ok := ComputeAlerts("funding", 6, flatHistory(1, 8), opts)
	require.True(t, ok)
	assert.Equal(t, "up", alert.Direction)
}

func TestComputeAlertsNoTriggerNoAlert(t *testing.T) {
	_, ok := ComputeAlerts("policy", 10, flatHistory(10, 8), DefaultAlertOptions())
	assert.False(t, ok)
}

func TestComputeAlertsSeverityMedium(t *testing.T) {
	// mean 10.5, stddev ~3.71, so current 15 gives z ~1.21 and delta 50,
	// both under the high-severity cutoffs.
	history := []int{10, 14, 6, 14, 6, 14, 6, 14}
	alert, ok := ComputeAlerts("policy", 15, history, DefaultAlertOptions())
	require.True(t, ok)
	assert.Equal(t, "medium", alert.Severity)
	assert.Equal(t, 50.0, alert.DeltaPercent)
}

func TestRankAlertsOrderingAndCap(t *testing.T) {
	var alerts []Alert
	for i := 0; i < 10; i++ {
		alerts = append(alerts, Alert{
			Category:     "news",
			Severity:     "medium",
			DeltaPercent: float64(40 + i),
		})
	}
	// A high-severity alert outranks a slightly larger delta.
	alerts = append(alerts, Alert{Category: "incidents", Severity: "high", DeltaPercent: 40})

	ranked := RankAlerts(alerts, DefaultAlertOptions())
	require.Len(t, ranked, 8)
	assert.Equal(t, "incidents", ranked[0].Category)
	assert.Equal(t, 49.0, ranked[1].DeltaPercent)
}
