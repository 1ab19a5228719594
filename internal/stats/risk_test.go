package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, "high", riskLevel(70))
	assert.Equal(t, "high", riskLevel(100))
	assert.Equal(t, "medium", riskLevel(40))
	assert.Equal(t, "medium", riskLevel(69.99))
	assert.Equal(t, "low", riskLevel(39.99))
	assert.Equal(t, "low", riskLevel(0))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-3))
	assert.Equal(t, 55.5, clampScore(55.5))
	assert.Equal(t, 100.0, clampScore(140))
}

func TestTrendSteps(t *testing.T) {
	tests := []struct {
		window string
		steps  int
		step   time.Duration
		months int
	}{
		{"1h", 12, 5 * time.Minute, 0},
		{"24h", 24, time.Hour, 0},
		{"7d", 7, 24 * time.Hour, 0},
		{"30d", 30, 24 * time.Hour, 0},
		{"90d", 13, 7 * 24 * time.Hour, 0},
		{"1y", 12, 0, 1},
		{"2y", 24, 0, 1},
		{"5y", 60, 0, 1},
		{"bogus", 24, time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			steps, step, _, months := trendSteps(tt.window)
			assert.Equal(t, tt.steps, steps)
			assert.Equal(t, tt.step, step)
			assert.Equal(t, tt.months, months)
		})
	}
}
