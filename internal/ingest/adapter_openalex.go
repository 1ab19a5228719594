package ingest

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

const openAlexWorksURL = "https://api.openalex.org/works"

type openAlexWork struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	PublicationDate string `json:"publication_date"`
	Language        string `json:"language"`
	PrimaryLocation struct {
		LandingPageURL string `json:"landing_page_url"`
	} `json:"primary_location"`
	Authorships []struct {
		Institutions []struct {
			DisplayName string `json:"display_name"`
			CountryCode string `json:"country_code"`
		} `json:"institutions"`
	} `json:"authorships"`
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

// OpenAlexAdapter pulls recent works matching the Canada AI search.
type OpenAlexAdapter struct {
	def    SourceDefinition
	client *httpClientHolder
	now    func() time.Time
}

func NewOpenAlexAdapter(def SourceDefinition) *OpenAlexAdapter {
	return &OpenAlexAdapter{
		def:    def,
		client: newClientHolder(15 * time.Second),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *OpenAlexAdapter) Key() string {
	return a.def.Key
}

func (a *OpenAlexAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("search", "artificial intelligence Canada")
	params.Set("per-page", fmt.Sprintf("%d", limit))
	params.Set("sort", "publication_date:desc")

	var payload openAlexResponse
	if err := fetchJSONVia(ctx, a.client, openAlexWorksURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	now := a.now()
	var out []Candidate
	for _, work := range payload.Results {
		candidate, ok := normalizeOpenAlexWork(work, now, false)
		if ok {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// FetchMonth pages through one backfill window. Institutions are restricted
// to Canada at the API level so the looser gate sees mostly relevant work.
func (a *OpenAlexAdapter) FetchMonth(ctx context.Context, start, end time.Time, perPage, maxPages int) ([]Candidate, error) {
	now := a.now()
	var out []Candidate
	for page := 1; page <= maxPages; page++ {
		params := url.Values{}
		params.Set("filter", fmt.Sprintf(
			"from_publication_date:%s,to_publication_date:%s,authorships.institutions.country_code:CA",
			start.Format("2006-01-02"), end.Format("2006-01-02"),
		))
		params.Set("search", "artificial intelligence OR machine learning OR generative")
		params.Set("per-page", fmt.Sprintf("%d", perPage))
		params.Set("sort", "publication_date:desc")
		params.Set("page", fmt.Sprintf("%d", page))

		var payload openAlexResponse
		if err := fetchJSONVia(ctx, a.client, openAlexWorksURL+"?"+params.Encode(), &payload); err != nil {
			return nil, err
		}
		if len(payload.Results) == 0 {
			break
		}
		for _, work := range payload.Results {
			candidate, ok := normalizeOpenAlexWork(work, now, true)
			if ok {
				out = append(out, candidate)
			}
		}
	}
	return out, nil
}

func normalizeOpenAlexWork(work openAlexWork, now time.Time, backfill bool) (Candidate, bool) {
	title := strings.TrimSpace(work.DisplayName)
	if title == "" || !ContainsAI(title) {
		return Candidate{}, false
	}

	rawID := work.ID
	if rawID == "" {
		rawID = fmt.Sprintf("openalex-%s", uuid.New().String()[:10])
	}
	sourceID := NormalizeSourceID(rawID, "openalex")

	publishedRaw := work.PublicationDate
	if publishedRaw == "" {
		if backfill {
			return Candidate{}, false
		}
		publishedRaw = now.Format("2006-01-02")
	}
	publishedAt, err := time.Parse("2006-01-02", publishedRaw)
	if err != nil {
		return Candidate{}, false
	}
	publishedAt = ClampFuture(publishedAt.UTC(), now)

	link := work.PrimaryLocation.LandingPageURL
	if link == "" {
		link = fmt.Sprintf("https://openalex.org/%s", sourceID)
	}

	var institutions []string
	hasCanadianInstitution := false
	for _, auth := range work.Authorships {
		for _, inst := range auth.Institutions {
			if inst.DisplayName != "" {
				seen := false
				for _, existing := range institutions {
					if existing == inst.DisplayName {
						seen = true
						break
					}
				}
				if !seen {
					institutions = append(institutions, inst.DisplayName)
				}
			}
			if strings.EqualFold(inst.CountryCode, "CA") {
				hasCanadianInstitution = true
			}
		}
	}

	joinedEntities := strings.Join(firstN(institutions, 8), " ")
	relevance := CanadaRelevance(title, link, joinedEntities)

	profile := profileOpenAlex
	jurisdictionParts := []string{title, joinedEntities}
	if backfill {
		profile = profileOpenAlexBackfill
		if hasCanadianInstitution {
			relevance = math.Min(1.0, relevance+0.35)
			jurisdictionParts = append(jurisdictionParts, "canada")
		}
	}

	return Candidate{
		AIDevelopment: models.AIDevelopment{
			ID:           uuid.New(),
			SourceID:     sourceID,
			SourceType:   models.SourceAcademic,
			Category:     models.CategoryResearch,
			Title:        title,
			URL:          link,
			Publisher:    "OpenAlex",
			PublishedAt:  publishedAt,
			IngestedAt:   now,
			Language:     DetectLanguage(work.Language, title),
			Jurisdiction: InferJurisdiction(jurisdictionParts...),
			Entities:     firstN(institutions, 5),
			Tags:         ExtractTags(title),
			Hash:         Fingerprint(sourceID, link, publishedAt),
			Confidence:   ConfidenceFor(profile, relevance),
		},
		Relevance: relevance,
	}, true
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
