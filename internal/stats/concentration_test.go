package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHHI(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"empty", nil, 0},
		{"single publisher owns everything", []int{42}, 1},
		{"even split of two", []int{10, 10}, 0.5},
		{"even split of four", []int{5, 5, 5, 5}, 0.25},
		{"dominant head", []int{90, 5, 5}, 0.815},
		{"long tail", []int{3, 3, 3, 3, 3, 3, 3, 3, 3, 3}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HHI(tt.counts))
		})
	}
}

func TestConcentrationLabel(t *testing.T) {
	assert.Equal(t, "high", ConcentrationLabel(0.4))
	assert.Equal(t, "high", ConcentrationLabel(0.9))
	assert.Equal(t, "medium", ConcentrationLabel(0.2))
	assert.Equal(t, "medium", ConcentrationLabel(0.39))
	assert.Equal(t, "low", ConcentrationLabel(0.19))
	assert.Equal(t, "low", ConcentrationLabel(0))
}
