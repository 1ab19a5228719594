package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const crossrefWorksURL = "https://api.crossref.org/works"

type crossrefWork struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	URL    string   `json:"URL"`
	Issued struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
	Author []struct {
		Given       string `json:"given"`
		Family      string `json:"family"`
		Affiliation []struct {
			Name string `json:"name"`
		} `json:"affiliation"`
	} `json:"author"`
	Publisher string `json:"publisher"`
}

type crossrefResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

// CrossrefAdapter pulls recent Canada-affiliated AI publications.
type CrossrefAdapter struct {
	def    SourceDefinition
	client *httpClientHolder
	now    func() time.Time
}

func NewCrossrefAdapter(def SourceDefinition) *CrossrefAdapter {
	return &CrossrefAdapter{
		def:    def,
		client: newClientHolder(20 * time.Second),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *CrossrefAdapter) Key() string {
	return a.def.Key
}

func (a *CrossrefAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", "artificial intelligence canada")
	params.Set("sort", "published")
	params.Set("order", "desc")
	params.Set("rows", fmt.Sprintf("%d", limit))

	var payload crossrefResponse
	if err := fetchJSONVia(ctx, a.client, crossrefWorksURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	now := a.now()
	var out []Candidate
	for _, work := range payload.Message.Items {
		if len(out) >= limit {
			break
		}

		title := ""
		if len(work.Title) > 0 {
			title = strings.Join(strings.Fields(work.Title[0]), " ")
		}
		if title == "" || !ContainsAI(title) {
			continue
		}

		rawID := work.DOI
		if rawID == "" {
			rawID = fmt.Sprintf("crossref-%s", uuid.New().String()[:10])
		}
		sourceID := NormalizeSourceID("crossref-"+rawID, "crossref")

		publishedAt := now
		if len(work.Issued.DateParts) > 0 && len(work.Issued.DateParts[0]) >= 1 {
			parts := work.Issued.DateParts[0]
			year, month, day := parts[0], 1, 1
			if len(parts) >= 2 {
				month = parts[1]
			}
			if len(parts) >= 3 {
				day = parts[2]
			}
			publishedAt = ClampFuture(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), now)
		}

		link := work.URL
		if link == "" {
			link = "https://doi.org/" + rawID
		}

		var affiliations []string
		for _, author := range work.Author {
			for _, aff := range author.Affiliation {
				if aff.Name == "" {
					continue
				}
				seen := false
				for _, existing := range affiliations {
					if existing == aff.Name {
						seen = true
						break
					}
				}
				if !seen && len(affiliations) < 5 {
					affiliations = append(affiliations, aff.Name)
				}
			}
		}

		publisher := work.Publisher
		if publisher == "" {
			publisher = "Crossref"
		}

		relevance := CanadaRelevance(title, link, strings.Join(affiliations, " "))
		out = append(out, Candidate{
			AIDevelopment: models.AIDevelopment{
				ID:           uuid.New(),
				SourceID:     sourceID,
				SourceType:   models.SourceAcademic,
				Category:     models.CategoryResearch,
				Title:        title,
				URL:          link,
				Publisher:    publisher,
				PublishedAt:  publishedAt,
				IngestedAt:   now,
				Language:     DetectLanguage("en", title),
				Jurisdiction: InferJurisdiction(title, strings.Join(affiliations, " ")),
				Entities:     affiliations,
				Tags:         ExtractTags(title),
				Hash:         Fingerprint(sourceID, link, publishedAt),
				Confidence:   ConfidenceFor(profileOpenAlex, relevance),
			},
			Relevance: relevance,
		})
	}
	return out, nil
}
