package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContainsAI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain ai", "New AI lab opens in Toronto", true},
		{"machine learning", "Machine learning grants announced", true},
		{"llm", "Benchmarking LLM inference", true},
		{"generative", "Generative models for protein design", true},
		{"unrelated", "Hockey season schedule released", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAI(tt.text))
		})
	}
}

func TestCanadaRelevance(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  float64
	}{
		{"no signal", []string{"Generic AI story"}, 0},
		{"keyword only", []string{"AI investment grows in Canada"}, 0.35},
		{"single entity", []string{"Mila publishes new benchmark"}, 0.2},
		{"entity bonus capped", []string{"Mila, Vector Institute, Amii and CIFAR collaborate"}, 0.4},
		{"gc domain bonus", []string{"Announcement on canada.ca about AI"}, 0.6},
		{"openalex hint", []string{"record via openalex.org"}, 0.05},
		{
			"capped at one",
			[]string{"Government of Canada, Mila, Vector Institute, Amii funding on canada.ca in Canada via openalex.org"},
			1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CanadaRelevance(tt.parts...), 1e-9)
		})
	}
}

func TestInferJurisdiction(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"city maps to province", []string{"Startup in Montreal raises round"}, "Quebec"},
		{"province token", []string{"Alberta invests in compute"}, "Alberta"},
		{"first token wins", []string{"Toronto and Vancouver labs partner"}, "Ontario"},
		{"country fallback", []string{"Canadian researchers publish"}, "Canada"},
		{"global fallback", []string{"EU enacts new rules"}, "Global"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferJurisdiction(tt.parts...))
		})
	}

	assert.Equal(t, "Canada", InferJurisdictionDefault("Canada", "no geography here"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name    string
		claimed string
		text    string
		want    string
	}{
		{"claimed en", "en", "New model released", "en"},
		{"claimed fr", "fr", "short", "fr"},
		{"en-CA collapses", "en-CA", "Budget announcement", "en"},
		{"fr-CA collapses", "fr-CA", "court", "fr"},
		{"unknown claim", "de", "kurzer Text", "other"},
		{
			"markers override claim",
			"en",
			"Le gouvernement annonce des investissements dans les technologies pour une industrie",
			"fr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.claimed, tt.text))
		})
	}
}

func TestExtractTags(t *testing.T) {
	tags := ExtractTags("Canada invests with partners across quantum machine learning research hubs")
	assert.Equal(t, []string{"canada", "invests", "partners", "quantum", "machine"}, tags)

	// Stopwords and short tokens are skipped, duplicates collapse.
	tags = ExtractTags("AI AI from this that")
	assert.Equal(t, []string{"ai"}, tags)

	tags = ExtractTags("Mila Mila launches launches")
	assert.Equal(t, []string{"mila", "launches"}, tags)
}

func TestNormalizeSourceID(t *testing.T) {
	assert.Equal(t, "openalex-W12345", NormalizeSourceID("  openalex-W12345 ", "openalex"))

	long := strings.Repeat("x", 300)
	collapsed := NormalizeSourceID(long, "arxiv")
	assert.True(t, strings.HasPrefix(collapsed, "arxiv-"))
	assert.Len(t, collapsed, len("arxiv-")+24)
	// Stable across calls.
	assert.Equal(t, collapsed, NormalizeSourceID(long, "arxiv"))
}

func TestFingerprintStable(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	a := Fingerprint("src-1", "https://example.org/a", at)
	b := Fingerprint("src-1", "https://example.org/a", at)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Fingerprint("src-2", "https://example.org/a", at))
	assert.NotEqual(t, a, Fingerprint("src-1", "https://example.org/b", at))
	assert.NotEqual(t, a, Fingerprint("src-1", "https://example.org/a", at.Add(time.Second)))
}

func TestClampFuture(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now, ClampFuture(now.Add(3*time.Hour), now))
	past := now.Add(-time.Hour)
	assert.Equal(t, past, ClampFuture(past, now))
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		name      string
		profile   string
		relevance float64
		want      float64
	}{
		{"gov floor", profileGov, 0.3, 0.9},
		{"gov relevance above floor", profileGov, 0.95, 0.95},
		{"openalex linear", profileOpenAlex, 0.5, 0.8},
		{"backfill linear", profileOpenAlexBackfill, 0.4, 0.76},
		{"arxiv lower clamp", profileArxiv, 0.0, 0.6},
		{"arxiv upper clamp", profileArxiv, 1.0, 0.9},
		{"repository floor", profileRepository, 0.0, 0.5},
		{"repository mid", profileRepository, 0.6, 0.7},
		{"media floor", profileMedia, 0.2, 0.84},
		{"media scales", profileMedia, 0.8, 0.95},
		{"betakit floor", profileBetaKit, 0.4, 0.82},
		{"funding floor", profileFunding, 0.5, 0.84},
		{"unknown passthrough", "mystery", 0.42, 0.42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfidenceFor(tt.profile, tt.relevance))
		})
	}
}

func TestPolicyRecencyBoost(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		age       time.Duration
		confBoost float64
		relBoost  float64
		drop      bool
	}{
		{"fresh", 7 * 24 * time.Hour, 0.09, 0.14, false},
		{"recent", 30 * 24 * time.Hour, 0.06, 0.10, false},
		{"aging", 100 * 24 * time.Hour, 0.03, 0.06, false},
		{"stale no boost", 200 * 24 * time.Hour, 0, 0, false},
		{"past cutoff", 541 * 24 * time.Hour, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confBoost, relBoost, drop := PolicyRecencyBoost(now.Add(-tt.age), now)
			assert.Equal(t, tt.confBoost, confBoost)
			assert.Equal(t, tt.relBoost, relBoost)
			assert.Equal(t, tt.drop, drop)
		})
	}
}
