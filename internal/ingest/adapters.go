package ingest

// BuildAdapters wires every catalog entry to its adapter implementation.
// Sources without a construction path (no endpoint yet) are left out, and
// the runner skips them.
func BuildAdapters(reg *Registry) map[string]Adapter {
	adapters := make(map[string]Adapter)
	for _, def := range reg.List(true) {
		switch def.Key {
		case "openalex":
			adapters[def.Key] = NewOpenAlexAdapter(def)
			continue
		case "github_ai_canada":
			adapters[def.Key] = NewGitHubAdapter(def)
			continue
		case "arxiv_ai_canada":
			adapters[def.Key] = NewArxivAdapter(def)
			continue
		case "crossref_ai_canada":
			adapters[def.Key] = NewCrossrefAdapter(def)
			continue
		case "semantic_scholar_ai_canada":
			// No adapter yet. The catalog keeps the entry so health and
			// catalog endpoints can report it as disabled.
			continue
		}

		switch def.AcquisitionMode {
		case "rss":
			adapters[def.Key] = NewRSSAdapter(def)
		case "sitemap":
			adapters[def.Key] = NewSitemapAdapter(def)
		case "crawler":
			adapters[def.Key] = NewCrawlerAdapter(def)
		}
	}
	return adapters
}
