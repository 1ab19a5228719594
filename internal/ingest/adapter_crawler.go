package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// CrawlerAdapter scrapes listing pages that expose no feed. Currently only
// the PSPC tender board uses it, and that source ships disabled.
type CrawlerAdapter struct {
	def SourceDefinition
	now func() time.Time

	newCollector func() *colly.Collector
}

func NewCrawlerAdapter(def SourceDefinition) *CrawlerAdapter {
	return &CrawlerAdapter{
		def: def,
		now: func() time.Time { return time.Now().UTC() },
		newCollector: func() *colly.Collector {
			c := colly.NewCollector(
				colly.UserAgent(userAgent),
				colly.MaxDepth(1),
			)
			c.SetRequestTimeout(20 * time.Second)
			return c
		},
	}
}

func (a *CrawlerAdapter) Key() string {
	return a.def.Key
}

func (a *CrawlerAdapter) Fetch(ctx context.Context, limit int) ([]Candidate, error) {
	now := a.now()
	var out []Candidate
	var crawlErr error

	c := a.newCollector()
	c.OnError(func(_ *colly.Response, err error) {
		crawlErr = err
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if len(out) >= limit {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		title := strings.Join(strings.Fields(e.Text), " ")
		if title == "" || !ContainsAI(title) {
			return
		}

		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}

		sourceID := NormalizeSourceID(link, a.def.IDPrefix)
		relevance := CanadaRelevance(title, link, a.def.RelevanceHint)

		out = append(out, Candidate{
			AIDevelopment: models.AIDevelopment{
				ID:           uuid.New(),
				SourceID:     sourceID,
				SourceType:   models.SourceType(a.def.SourceType),
				Category:     models.CategoryType(a.def.Category),
				Title:        title,
				Description:  surroundingText(e.DOM, title),
				URL:          link,
				Publisher:    a.def.Publisher,
				PublishedAt:  now,
				IngestedAt:   now,
				Language:     DetectLanguage("en", title),
				Jurisdiction: InferJurisdictionDefault(a.def.DefaultJurisdiction, title, a.def.RelevanceHint),
				Entities:     append([]string{}, a.def.Entities...),
				Tags:         ExtractTags(title),
				Hash:         Fingerprint(sourceID, link, now),
				Confidence:   ConfidenceFor(a.def.Profile, relevance),
			},
			Relevance: relevance,
		})
	})

	if err := c.Visit(a.def.FeedURL); err != nil {
		return nil, err
	}
	c.Wait()

	if crawlErr != nil && len(out) == 0 {
		return nil, crawlErr
	}
	return out, nil
}

// surroundingText pulls a short description from the markup around a link.
// Listing pages usually keep the summary in the same row or card as the
// anchor, so the parent's text minus the link title is a good approximation.
func surroundingText(sel *goquery.Selection, title string) string {
	if sel == nil {
		return ""
	}
	parent := sel.Parent()
	if parent.Length() == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(parent.Text()), " ")
	text = strings.TrimSpace(strings.TrimPrefix(text, title))
	if text == title {
		return ""
	}
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
