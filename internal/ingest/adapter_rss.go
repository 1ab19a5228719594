package ingest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// RSSAdapter covers every RSS and Atom feed in the catalog. Per-feed
// behavior (publisher, category, confidence profile, recency boost) comes
// from the source definition.
type RSSAdapter struct {
	def       SourceDefinition
	client    *httpClientHolder
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// httpClientHolder exists so adapters share one construction path while
// tests can stub the clock independently.
type httpClientHolder struct {
	doFetch func(ctx context.Context, url, accept string) ([]byte, error)
}

func newClientHolder(timeout time.Duration) *httpClientHolder {
	client := newHTTPClient(timeout)
	return &httpClientHolder{
		doFetch: func(ctx context.Context, url, accept string) ([]byte, error) {
			return fetchBody(ctx, client, url, accept)
		},
	}
}

func NewRSSAdapter(def SourceDefinition) *RSSAdapter {
	return &RSSAdapter{
		def:       def,
		client:    newClientHolder(15 * time.Second),
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *RSSAdapter) Key() string {
	return a.def.Key
}

func (a *RSSAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	body, err := a.client.doFetch(ctx, a.def.FeedURL, acceptFeed)
	if err != nil {
		return nil, err
	}

	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", a.def.Key, err)
	}

	now := a.now()
	var out []Candidate
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		candidate, ok := a.normalizeItem(item, now)
		if ok {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func (a *RSSAdapter) normalizeItem(item *gofeed.Item, now time.Time) (Candidate, bool) {
	rawTitle := strings.TrimSpace(item.Title)
	if rawTitle == "" || !ContainsAI(rawTitle) {
		return Candidate{}, false
	}

	link := strings.TrimSpace(item.Link)
	guidRaw := strings.TrimSpace(item.GUID)
	if guidRaw == "" {
		guidRaw = fmt.Sprintf("%s-%s", a.def.IDPrefix, uuid.New().String()[:12])
	}
	sourceID := NormalizeSourceID(guidRaw, a.def.IDPrefix)

	publishedAt := now
	if item.PublishedParsed != nil {
		publishedAt = ClampFuture(item.PublishedParsed.UTC(), now)
	} else if item.UpdatedParsed != nil {
		publishedAt = ClampFuture(item.UpdatedParsed.UTC(), now)
	}

	publisher := a.def.Publisher
	title := rawTitle
	if a.def.PublisherFromTitle {
		// Google News style titles end with " - Publisher".
		if idx := strings.LastIndex(rawTitle, " - "); idx > 0 {
			if candidate := strings.TrimSpace(rawTitle[idx+3:]); candidate != "" {
				publisher = candidate
				title = strings.TrimSpace(rawTitle[:idx])
			}
		}
	}

	description := a.cleanDescription(item.Description)

	relevance := CanadaRelevance(title, link, a.def.RelevanceHint, publisher)
	confBoost := 0.0
	if a.def.RecencyBoost {
		cb, rb, drop := PolicyRecencyBoost(publishedAt, now)
		if drop {
			return Candidate{}, false
		}
		confBoost = cb
		relevance = clampFloat(relevance+rb, 0, 1)
	}

	fallback := a.def.DefaultJurisdiction
	if fallback == "" {
		fallback = "Global"
	}
	jurisdiction := InferJurisdictionDefault(fallback, title, publisher, a.def.RelevanceHint)

	entities := append([]string{}, a.def.Entities...)
	if a.def.PublisherFromTitle {
		entities = []string{publisher}
	}
	if len(entities) > 5 {
		entities = entities[:5]
	}

	confidence := round2(clampFloat(ConfidenceFor(a.def.Profile, relevance)+confBoost, 0, 1))

	if link == "" {
		link = a.def.FeedURL
	}

	return Candidate{
		AIDevelopment: models.AIDevelopment{
			ID:           uuid.New(),
			SourceID:     sourceID,
			SourceType:   models.SourceType(a.def.SourceType),
			Category:     models.CategoryType(a.def.Category),
			Title:        title,
			Description:  description,
			URL:          link,
			Publisher:    publisher,
			PublishedAt:  publishedAt,
			IngestedAt:   now,
			Language:     DetectLanguage("en", title+" "+description),
			Jurisdiction: jurisdiction,
			Entities:     entities,
			Tags:         ExtractTags(title),
			Hash:         Fingerprint(sourceID, link, publishedAt),
			Confidence:   confidence,
		},
		Relevance: relevance,
	}, true
}

func (a *RSSAdapter) cleanDescription(raw string) string {
	text := html.UnescapeString(strings.TrimSpace(a.sanitizer.Sanitize(raw)))
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}
