package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const arxivQueryURL = "http://export.arxiv.org/api/query"

// ArxivAdapter queries the arXiv Atom API for Canadian AI preprints.
type ArxivAdapter struct {
	def    SourceDefinition
	client *httpClientHolder
	parser *gofeed.Parser
	now    func() time.Time
}

func NewArxivAdapter(def SourceDefinition) *ArxivAdapter {
	return &ArxivAdapter{
		def:    def,
		client: newClientHolder(20 * time.Second),
		parser: gofeed.NewParser(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *ArxivAdapter) Key() string {
	return a.def.Key
}

func (a *ArxivAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("search_query", `all:"artificial intelligence" AND all:canada`)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", fmt.Sprintf("%d", limit))

	body, err := a.client.doFetch(ctx, arxivQueryURL+"?"+params.Encode(), acceptFeed)
	if err != nil {
		return nil, err
	}

	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse arxiv atom: %w", err)
	}

	now := a.now()
	var out []Candidate
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}

		title := strings.Join(strings.Fields(item.Title), " ")
		summary := strings.Join(strings.Fields(item.Description), " ")
		if title == "" || !ContainsAI(title+" "+summary) {
			continue
		}

		rawID := strings.TrimSpace(item.GUID)
		if rawID == "" {
			rawID = fmt.Sprintf("arxiv-%s", uuid.New().String()[:10])
		}
		sourceID := NormalizeSourceID(rawID, "arxiv")

		publishedAt := now
		if item.PublishedParsed != nil {
			publishedAt = ClampFuture(item.PublishedParsed.UTC(), now)
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = rawID
		}

		var authors []string
		for _, author := range item.Authors {
			if author != nil && author.Name != "" && len(authors) < 5 {
				authors = append(authors, author.Name)
			}
		}

		description := summary
		if len(description) > 500 {
			description = description[:500]
		}

		relevance := CanadaRelevance(title, summary, link)
		out = append(out, Candidate{
			AIDevelopment: models.AIDevelopment{
				ID:           uuid.New(),
				SourceID:     sourceID,
				SourceType:   models.SourceAcademic,
				Category:     models.CategoryResearch,
				Title:        title,
				Description:  description,
				URL:          link,
				Publisher:    "arXiv",
				PublishedAt:  publishedAt,
				IngestedAt:   now,
				Language:     DetectLanguage("en", title+" "+summary),
				Jurisdiction: InferJurisdiction(title, summary),
				Entities:     authors,
				Tags:         ExtractTags(title),
				Hash:         Fingerprint(sourceID, link, publishedAt),
				Confidence:   ConfidenceFor(profileArxiv, relevance),
			},
			Relevance: relevance,
		})
	}
	return out, nil
}
