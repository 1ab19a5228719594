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

const githubSearchURL = "https://api.github.com/search/repositories"

type githubRepo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	PushedAt    string `json:"pushed_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Topics []string `json:"topics"`
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

// GitHubAdapter surfaces recently pushed Canadian AI repositories.
type GitHubAdapter struct {
	def    SourceDefinition
	client *httpClientHolder
	now    func() time.Time
}

func NewGitHubAdapter(def SourceDefinition) *GitHubAdapter {
	return &GitHubAdapter{
		def:    def,
		client: newClientHolder(15 * time.Second),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *GitHubAdapter) Key() string {
	return a.def.Key
}

func (a *GitHubAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", "artificial intelligence canada in:name,description,topics")
	params.Set("sort", "updated")
	params.Set("order", "desc")
	params.Set("per_page", fmt.Sprintf("%d", limit))

	var payload githubSearchResponse
	if err := fetchJSONVia(ctx, a.client, githubSearchURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	now := a.now()
	var out []Candidate
	for _, repo := range payload.Items {
		if len(out) >= limit {
			break
		}

		title := strings.TrimSpace(repo.FullName)
		description := strings.TrimSpace(repo.Description)
		if title == "" || !ContainsAI(title+" "+description+" "+strings.Join(repo.Topics, " ")) {
			continue
		}

		sourceID := NormalizeSourceID("github-"+title, "github")

		publishedAt := now
		if repo.PushedAt != "" {
			if parsed, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
				publishedAt = ClampFuture(parsed.UTC(), now)
			}
		}

		link := repo.HTMLURL
		if link == "" {
			link = "https://github.com/" + title
		}

		var entities []string
		if repo.Owner.Login != "" {
			entities = append(entities, repo.Owner.Login)
		}

		if len(description) > 500 {
			description = description[:500]
		}

		relevance := CanadaRelevance(title, description, strings.Join(repo.Topics, " "))
		out = append(out, Candidate{
			AIDevelopment: models.AIDevelopment{
				ID:           uuid.New(),
				SourceID:     sourceID,
				SourceType:   models.SourceRepository,
				Category:     models.CategoryIndustry,
				Title:        title,
				Description:  description,
				URL:          link,
				Publisher:    "GitHub",
				PublishedAt:  publishedAt,
				IngestedAt:   now,
				Language:     DetectLanguage("en", title+" "+description),
				Jurisdiction: InferJurisdiction(title, description),
				Entities:     entities,
				Tags:         ExtractTags(title + " " + strings.Join(repo.Topics, " ")),
				Hash:         Fingerprint(sourceID, link, publishedAt),
				Confidence:   ConfidenceFor(profileRepository, relevance),
			},
			Relevance: relevance,
		})
	}
	return out, nil
}
