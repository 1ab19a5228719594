package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

var aiKeywords = []string{"ai", "artificial intelligence", "machine learning", "deep learning", "llm", "generative"}

var canadaKeywords = []string{
	"canada", "canadian", "ottawa", "quebec", "ontario", "alberta",
	"british columbia", "manitoba", "saskatchewan", "nova scotia",
	"new brunswick", "newfoundland", "pei",
}

var canadaEntities = []string{
	"government of canada", "ised", "cifar", "mila", "vector institute",
	"amii", "university of toronto", "university of alberta", "mcgill", "ubc",
}

// provinceTokens maps city and province mentions to a jurisdiction label.
// Order matters for determinism so it is a slice, not a map.
var provinceTokens = []struct {
	token    string
	province string
}{
	{"ontario", "Ontario"},
	{"toronto", "Ontario"},
	{"waterloo", "Ontario"},
	{"quebec", "Quebec"},
	{"montreal", "Quebec"},
	{"alberta", "Alberta"},
	{"edmonton", "Alberta"},
	{"calgary", "Alberta"},
	{"british columbia", "British Columbia"},
	{"vancouver", "British Columbia"},
}

var frenchMarkers = []string{
	" des ", " dans ", " pour ", " les ", " une ", " sur ", " avec ",
	" est ", " sont ", " cette ", " l'", " d'", " qu'",
}

var tagStopwords = map[string]bool{
	"with": true, "from": true, "that": true, "this": true, "have": true,
	"into": true, "their": true, "about": true, "across": true, "opens": true,
}

var tagTokenRegex = regexp.MustCompile(`[a-zA-Z]{4,}`)

// ContainsAI is the gate every candidate must pass before normalization.
func ContainsAI(text string) bool {
	low := strings.ToLower(text)
	for _, keyword := range aiKeywords {
		if strings.Contains(low, keyword) {
			return true
		}
	}
	return false
}

// CanadaRelevance scores a blob of text for Canadian signal in [0,1].
func CanadaRelevance(parts ...string) float64 {
	blob := strings.ToLower(strings.Join(parts, " "))
	score := 0.0

	for _, keyword := range canadaKeywords {
		if strings.Contains(blob, keyword) {
			score += 0.35
			break
		}
	}

	entityHits := 0
	for _, ent := range canadaEntities {
		if strings.Contains(blob, ent) {
			entityHits++
		}
	}
	score += math.Min(float64(entityHits)*0.2, 0.4)

	if strings.Contains(blob, "government of canada") || strings.Contains(blob, "canada.ca") {
		score += 0.25
	}
	if strings.Contains(blob, "openalex.org") {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// InferJurisdiction resolves a jurisdiction label from text. The fallback is
// "Global" unless the caller supplies a different default.
func InferJurisdiction(parts ...string) string {
	return InferJurisdictionDefault("Global", parts...)
}

func InferJurisdictionDefault(fallback string, parts ...string) string {
	blob := strings.ToLower(strings.Join(parts, " "))
	for _, entry := range provinceTokens {
		if strings.Contains(blob, entry.token) {
			return entry.province
		}
	}
	if strings.Contains(blob, "canada") || strings.Contains(blob, "canadian") {
		return "Canada"
	}
	return fallback
}

// DetectLanguage maps a source-claimed language code through the French
// marker heuristic. Three or more marker hits in the text override the claim.
func DetectLanguage(claimed, text string) string {
	padded := " " + strings.ToLower(text) + " "
	hits := 0
	for _, marker := range frenchMarkers {
		hits += strings.Count(padded, marker)
		if hits >= 3 {
			return "fr"
		}
	}
	switch claimed {
	case "en", "fr":
		return claimed
	}
	if strings.HasPrefix(claimed, "en") {
		return "en"
	}
	if strings.HasPrefix(claimed, "fr") {
		return "fr"
	}
	return "other"
}

// ExtractTags tokenizes the title into up to five lowercase tags.
func ExtractTags(title string) []string {
	tokens := tagTokenRegex.FindAllString(strings.ToLower(title), -1)
	var unique []string
	for _, token := range tokens {
		if tagStopwords[token] {
			continue
		}
		seen := false
		for _, existing := range unique {
			if existing == token {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, token)
		}
		if len(unique) == 5 {
			break
		}
	}
	if len(unique) == 0 {
		return []string{"ai"}
	}
	return unique
}

// NormalizeSourceID bounds upstream identifiers at 240 chars. Longer values
// collapse to a prefixed digest so the hash input stays stable.
func NormalizeSourceID(sourceID, prefix string) string {
	trimmed := strings.TrimSpace(sourceID)
	if len(trimmed) <= 240 {
		return trimmed
	}
	sum := sha256.Sum256([]byte(trimmed))
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(sum[:])[:24])
}

// Fingerprint computes the content identity over source_id, url and the
// isoformat of published_at.
func Fingerprint(sourceID, url string, publishedAt time.Time) string {
	material := fmt.Sprintf("%s|%s|%s", sourceID, url, models.ISOFormat(publishedAt))
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// ClampFuture caps a parsed timestamp at now. Feeds occasionally announce
// items dated hours ahead.
func ClampFuture(t, now time.Time) time.Time {
	if t.After(now) {
		return now
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Confidence profiles. Each source type carries its own floor so downstream
// consumers can rely on monotonic confidence per type.
const (
	profileGov              = "gov"
	profileOpenAlex         = "openalex"
	profileOpenAlexBackfill = "openalex_backfill"
	profileArxiv            = "arxiv"
	profileRepository       = "repository"
	profileMedia            = "media"
	profileBetaKit          = "betakit"
	profileFunding          = "funding"
)

// ConfidenceFor applies the per-profile confidence formula, rounded to 2dp.
func ConfidenceFor(profile string, relevance float64) float64 {
	var confidence float64
	switch profile {
	case profileGov:
		confidence = math.Max(0.9, relevance)
	case profileOpenAlex:
		confidence = 0.65 + 0.3*relevance
	case profileOpenAlexBackfill:
		confidence = 0.62 + 0.35*relevance
	case profileArxiv:
		confidence = clampFloat(0.5+0.4*relevance, 0.6, 0.95)
	case profileRepository:
		confidence = clampFloat(0.4+0.5*relevance, 0.5, 0.95)
	case profileMedia:
		confidence = math.Max(0.84, math.Min(0.99, 0.55+0.5*relevance))
	case profileBetaKit:
		confidence = math.Max(0.82, relevance)
	case profileFunding:
		confidence = math.Max(0.84, relevance)
	default:
		confidence = relevance
	}
	return round2(confidence)
}

// maxPolicyAge is the cutoff for regulatory feed items. CRTC and Gazette
// republish old notices and anything past this is noise.
const maxPolicyAge = 540 * 24 * time.Hour

// PolicyRecencyBoost returns the confidence and relevance boosts for
// regulatory feeds based on item age. drop is true past the 540 day cutoff.
func PolicyRecencyBoost(publishedAt, now time.Time) (confBoost, relBoost float64, drop bool) {
	age := now.Sub(publishedAt)
	switch {
	case age > maxPolicyAge:
		return 0, 0, true
	case age <= 14*24*time.Hour:
		return 0.09, 0.14, false
	case age <= 45*24*time.Hour:
		return 0.06, 0.10, false
	case age <= 120*24*time.Hour:
		return 0.03, 0.06, false
	}
	return 0, 0, false
}
