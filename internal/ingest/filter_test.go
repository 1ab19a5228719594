package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
	"github.com/stretchr/testify/assert"
)

func candidate(confidence, relevance float64, jurisdiction string, entities []string) Candidate {
	return Candidate{
		AIDevelopment: models.AIDevelopment{
			Confidence:   confidence,
			Jurisdiction: jurisdiction,
			Entities:     entities,
		},
		Relevance: relevance,
	}
}

func TestIsCanadaRelevant(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"relevance passes", candidate(0.9, 0.5, "Global", nil), true},
		{"confidence floor blocks everything", candidate(0.5, 0.9, "Canada", []string{"Mila"}), false},
		{"province admits low relevance", candidate(0.9, 0.1, "Ontario", nil), true},
		{"focus entity admits low relevance", candidate(0.9, 0.2, "Global", []string{"Mila"}), true},
		{"no entity no province rejected", candidate(0.9, 0.2, "Global", nil), false},
		{"unknown entity rejected", candidate(0.9, 0.2, "Global", []string{"DeepMind"}), false},
		{"unknown jurisdiction rejected", candidate(0.9, 0.2, "California", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCanadaRelevant(tt.c, MinConfidence, MinCanadaRelevance))
		})
	}
}

func TestGateThresholdsOrdered(t *testing.T) {
	// The backfill gate must be strictly looser than the live gate.
	assert.Less(t, BackfillMinConfidence, MinConfidence)
	assert.Less(t, BackfillMinCanadaRelevance, MinCanadaRelevance)

	c := candidate(0.75, 0.35, "Global", nil)
	assert.False(t, IsCanadaRelevant(c, MinConfidence, MinCanadaRelevance))
	assert.True(t, IsCanadaRelevant(c, BackfillMinConfidence, BackfillMinCanadaRelevance))
}

func TestGenerateSyntheticItem(t *testing.T) {
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		c := GenerateSyntheticItem(now)

		assert.True(t, IsCanadaRelevant(c, MinConfidence, MinCanadaRelevance))
		assert.True(t, strings.HasPrefix(c.URL, "https://example.com/"))
		assert.Equal(t, Fingerprint(c.SourceID, c.URL, c.PublishedAt), c.Hash)
		assert.False(t, c.PublishedAt.After(now))
		assert.True(t, c.PublishedAt.After(now.Add(-241*time.Minute)))
		assert.NotEmpty(t, c.Entities)
		assert.GreaterOrEqual(t, len(c.Tags), 2)
		assert.LessOrEqual(t, len(c.Tags), 4)
		assert.Contains(t, []string{"en", "fr"}, c.Language)
	}
}
