package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

type sitemapURLSet struct {
	URLs []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

// SitemapAdapter walks a sitemap.xml, keeps URLs under the configured path
// prefix, derives a title from the slug, and orders by lastmod descending.
type SitemapAdapter struct {
	def    SourceDefinition
	client *httpClientHolder
	now    func() time.Time
}

func NewSitemapAdapter(def SourceDefinition) *SitemapAdapter {
	return &SitemapAdapter{
		def:    def,
		client: newClientHolder(15 * time.Second),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *SitemapAdapter) Key() string {
	return a.def.Key
}

func (a *SitemapAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	body, err := a.client.doFetch(ctx, a.def.FeedURL, acceptXML)
	if err != nil {
		return nil, err
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal(body, &urlSet); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", a.def.Key, err)
	}

	now := a.now()
	type entry struct {
		loc     string
		lastMod time.Time
	}
	var entries []entry
	for _, item := range urlSet.URLs {
		loc := strings.TrimSpace(item.Loc)
		if loc == "" {
			continue
		}
		parsed, err := url.Parse(loc)
		if err != nil || !strings.HasPrefix(parsed.Path, a.def.PathPrefix) {
			continue
		}
		lastMod := now
		if item.LastMod != "" {
			if t, err := parseSitemapTime(item.LastMod); err == nil {
				lastMod = ClampFuture(t, now)
			}
		}
		entries = append(entries, entry{loc: loc, lastMod: lastMod})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastMod.After(entries[j].lastMod)
	})

	var out []Candidate
	for _, item := range entries {
		if len(out) >= limit {
			break
		}

		title := titleFromSlug(item.loc)
		if title == "" || !ContainsAI(title+" "+a.def.RelevanceHint) {
			continue
		}

		sourceID := NormalizeSourceID(item.loc, a.def.IDPrefix)
		relevance := CanadaRelevance(title, item.loc, a.def.RelevanceHint)

		out = append(out, Candidate{
			AIDevelopment: models.AIDevelopment{
				ID:           uuid.New(),
				SourceID:     sourceID,
				SourceType:   models.SourceType(a.def.SourceType),
				Category:     models.CategoryType(a.def.Category),
				Title:        title,
				URL:          item.loc,
				Publisher:    a.def.Publisher,
				PublishedAt:  item.lastMod,
				IngestedAt:   now,
				Language:     DetectLanguage("en", title),
				Jurisdiction: InferJurisdictionDefault(a.def.DefaultJurisdiction, title, a.def.RelevanceHint),
				Entities:     append([]string{}, a.def.Entities...),
				Tags:         ExtractTags(title),
				Hash:         Fingerprint(sourceID, item.loc, item.lastMod),
				Confidence:   ConfidenceFor(a.def.Profile, relevance),
			},
			Relevance: relevance,
		})
	}
	return out, nil
}

func parseSitemapTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized lastmod %q", raw)
}

// titleFromSlug turns ".../latest-from-amii/machine-learning-in-health" into
// "Machine Learning In Health".
func titleFromSlug(loc string) string {
	parsed, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	slug := strings.Trim(parsed.Path, "/")
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	if slug == "" {
		return ""
	}
	words := strings.Split(strings.ReplaceAll(slug, "_", "-"), "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
