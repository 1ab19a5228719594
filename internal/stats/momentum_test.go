package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMomentumOrdering(t *testing.T) {
	current := map[string]int{"BetaKit": 12, "OpenAlex": 4, "CBC News": 9}
	previous := map[string]int{"BetaKit": 2, "OpenAlex": 10, "Mila": 3}

	entries := buildMomentum(current, previous, 0)
	require.Len(t, entries, 4)

	// Sorted by |change| desc: BetaKit +10, CBC News +9, OpenAlex -6, Mila -3.
	assert.Equal(t, "BetaKit", entries[0].Name)
	assert.Equal(t, 10, entries[0].Change)
	assert.Equal(t, 500.0, entries[0].DeltaPercent)
	assert.Equal(t, "CBC News", entries[1].Name)
	assert.Equal(t, "OpenAlex", entries[2].Name)
	assert.Equal(t, -6, entries[2].Change)
	assert.Equal(t, "Mila", entries[3].Name)
	assert.Equal(t, -100.0, entries[3].DeltaPercent)
}

func TestBuildMomentumNameTiebreak(t *testing.T) {
	current := map[string]int{"b": 5, "a": 5, "c": 5}
	previous := map[string]int{"b": 2, "a": 2, "c": 2}

	entries := buildMomentum(current, previous, 0)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "c", entries[2].Name)
}

func TestBuildMomentumLimit(t *testing.T) {
	current := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	entries := buildMomentum(current, map[string]int{}, 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "d", entries[0].Name)
	assert.Equal(t, "c", entries[1].Name)
}
