package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenderListingFixture = `<html><body>
<ul>
<li><a href="/en/tender/1">AI model audit services for federal departments</a> Closing 2025-06-01. Ottawa, Ontario.</li>
<li><a href="/en/tender/2">Office furniture supply</a></li>
<li><a href="/en/tender/3">Machine learning platform licences</a></li>
</ul>
</body></html>`

func crawlerSourceDef(feedURL string) SourceDefinition {
	return SourceDefinition{
		Key:                 "pspc_procurement_ai",
		DisplayName:         "PSPC Procurement (AI)",
		SourceType:          "industry",
		AcquisitionMode:     "crawler",
		CadenceMinutes:      60,
		FetchLimit:          10,
		FeedURL:             feedURL,
		Publisher:           "Public Services and Procurement Canada",
		Category:            "industry",
		IDPrefix:            "pspc",
		Profile:             "gov",
		Entities:            []string{"Government of Canada"},
		RelevanceHint:       "Government of Canada procurement",
		DefaultJurisdiction: "Canada",
	}
}

func TestCrawlerAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(tenderListingFixture))
	}))
	defer srv.Close()

	adapter := NewCrawlerAdapter(crawlerSourceDef(srv.URL))
	out, err := adapter.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, "AI model audit services for federal departments", first.Title)
	assert.Equal(t, "Closing 2025-06-01. Ottawa, Ontario.", first.Description)
	assert.True(t, strings.HasPrefix(first.URL, srv.URL))
	assert.True(t, strings.HasSuffix(first.URL, "/en/tender/1"))
	assert.Equal(t, "Public Services and Procurement Canada", first.Publisher)
	assert.Equal(t, "Canada", first.Jurisdiction)
	assert.Equal(t, 0.9, first.Confidence)
	assert.Equal(t, []string{"Government of Canada"}, first.Entities)
	assert.Len(t, first.Hash, 64)

	// The anchor in the second row has no surrounding summary text.
	second := out[1]
	assert.Equal(t, "Machine learning platform licences", second.Title)
	assert.Empty(t, second.Description)
}

func TestCrawlerAdapterFetchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(tenderListingFixture))
	}))
	defer srv.Close()

	adapter := NewCrawlerAdapter(crawlerSourceDef(srv.URL))
	out, err := adapter.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestCrawlerAdapterFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewCrawlerAdapter(crawlerSourceDef(srv.URL))
	_, err := adapter.Fetch(context.Background(), 10)
	assert.Error(t, err)
}
