package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>BetaKit AI</title>
  <item>
    <title>Canadian AI startup Cohere expands Toronto office</title>
    <link>https://betakit.com/cohere-expands</link>
    <guid>https://betakit.com/?p=101</guid>
    <pubDate>Tue, 20 May 2025 09:00:00 GMT</pubDate>
    <description><![CDATA[<p>The company said it will add &amp; hire 200 staff.</p>]]></description>
  </item>
  <item>
    <title>Weekend reading list for founders</title>
    <link>https://betakit.com/reading-list</link>
    <guid>https://betakit.com/?p=102</guid>
    <pubDate>Tue, 20 May 2025 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Machine learning grants announced for Quebec labs</title>
    <link>https://betakit.com/ml-grants</link>
    <guid>https://betakit.com/?p=103</guid>
    <pubDate>Tue, 20 May 2025 07:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func stubFetch(body string) *httpClientHolder {
	return &httpClientHolder{
		doFetch: func(context.Context, string, string) ([]byte, error) {
			return []byte(body), nil
		},
	}
}

func TestRSSAdapterFetch(t *testing.T) {
	def := SourceDefinition{
		Key:                 "betakit_ai",
		DisplayName:         "BetaKit AI",
		SourceType:          "media",
		AcquisitionMode:     "rss",
		CadenceMinutes:      30,
		Enabled:             true,
		FetchLimit:          8,
		FeedURL:             "https://betakit.com/tag/artificial-intelligence/feed/",
		Publisher:           "BetaKit",
		Category:            "news",
		IDPrefix:            "betakit",
		Profile:             "betakit",
		Entities:            []string{"BetaKit"},
		RelevanceHint:       "BetaKit Canada",
		DefaultJurisdiction: "Canada",
	}

	adapter := NewRSSAdapter(def)
	adapter.client = stubFetch(rssFixture)
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return now }

	candidates, err := adapter.Fetch(context.Background(), 8)
	require.NoError(t, err)
	// The reading-list item fails the AI gate.
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "Canadian AI startup Cohere expands Toronto office", first.Title)
	assert.Equal(t, "https://betakit.com/?p=101", first.SourceID)
	assert.Equal(t, "https://betakit.com/cohere-expands", first.URL)
	assert.Equal(t, "BetaKit", first.Publisher)
	assert.Equal(t, "The company said it will add & hire 200 staff.", first.Description)
	assert.Equal(t, time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, now, first.IngestedAt)
	assert.Equal(t, "Ontario", first.Jurisdiction)
	assert.Equal(t, []string{"BetaKit"}, first.Entities)
	assert.Equal(t, Fingerprint(first.SourceID, first.URL, first.PublishedAt), first.Hash)
	assert.Equal(t, 0.82, first.Confidence)
	assert.InDelta(t, 0.35, first.Relevance, 1e-9)

	second := candidates[1]
	assert.Equal(t, "Quebec", second.Jurisdiction)
}

func TestRSSAdapterFetchLimit(t *testing.T) {
	def := SourceDefinition{Key: "betakit_ai", Publisher: "BetaKit", Profile: "betakit", IDPrefix: "betakit"}
	adapter := NewRSSAdapter(def)
	adapter.client = stubFetch(rssFixture)

	candidates, err := adapter.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestRSSAdapterPublisherFromTitle(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
  <item>
    <title>Ottawa unveils AI compute strategy - The Globe and Mail</title>
    <link>https://news.google.com/articles/abc</link>
    <guid>gn-abc</guid>
    <pubDate>Tue, 20 May 2025 09:00:00 GMT</pubDate>
  </item>
</channel></rss>`

	def := SourceDefinition{
		Key:                 "google_news_canada_ai",
		Publisher:           "Google News",
		Category:            "news",
		IDPrefix:            "google-news",
		Profile:             "media",
		SourceType:          "media",
		DefaultJurisdiction: "Canada",
		PublisherFromTitle:  true,
	}
	adapter := NewRSSAdapter(def)
	adapter.client = stubFetch(feed)

	candidates, err := adapter.Fetch(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	got := candidates[0]
	assert.Equal(t, "Ottawa unveils AI compute strategy", got.Title)
	assert.Equal(t, "The Globe and Mail", got.Publisher)
	assert.Equal(t, []string{"The Globe and Mail"}, got.Entities)
	assert.Equal(t, "Canada", got.Jurisdiction)
}

func TestRSSAdapterRecencyDrop(t *testing.T) {
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	feed := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>CRTC</title>
  <item>
    <title>CRTC consultation on AI in telecom networks</title>
    <link>https://crtc.gc.ca/eng/notice/1</link>
    <guid>crtc-1</guid>
    <pubDate>%s</pubDate>
  </item>
</channel></rss>`, old.Format(time.RFC1123))

	def := SourceDefinition{
		Key:                 "crtc_canada",
		Publisher:           "CRTC",
		Category:            "policy",
		IDPrefix:            "crtc",
		Profile:             "gov",
		SourceType:          "gov",
		DefaultJurisdiction: "Canada",
		RecencyBoost:        true,
	}
	adapter := NewRSSAdapter(def)
	adapter.client = stubFetch(feed)
	adapter.now = func() time.Time { return time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC) }

	candidates, err := adapter.Fetch(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
