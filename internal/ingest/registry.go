package ingest

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// SourceDefinition is one entry of the static source catalog. Definitions
// are immutable at runtime.
type SourceDefinition struct {
	Key             string `yaml:"key" json:"key"`
	DisplayName     string `yaml:"display_name" json:"display_name"`
	SourceType      string `yaml:"source_type" json:"source_type"`
	AcquisitionMode string `yaml:"acquisition_mode" json:"acquisition_mode"`
	CadenceMinutes  int    `yaml:"cadence_minutes" json:"cadence_minutes"`
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	FetchLimit      int    `yaml:"fetch_limit" json:"-"`

	// Feed wiring for the generic adapters. API sources carry their own
	// endpoints in code.
	FeedURL             string   `yaml:"feed_url,omitempty" json:"-"`
	Publisher           string   `yaml:"publisher,omitempty" json:"-"`
	Category            string   `yaml:"category,omitempty" json:"-"`
	IDPrefix            string   `yaml:"id_prefix,omitempty" json:"-"`
	Profile             string   `yaml:"profile,omitempty" json:"-"`
	Entities            []string `yaml:"entities,omitempty" json:"-"`
	RelevanceHint       string   `yaml:"relevance_hint,omitempty" json:"-"`
	DefaultJurisdiction string   `yaml:"default_jurisdiction,omitempty" json:"-"`
	PublisherFromTitle  bool     `yaml:"publisher_from_title,omitempty" json:"-"`
	RecencyBoost        bool     `yaml:"recency_boost,omitempty" json:"-"`
	PathPrefix          string   `yaml:"path_prefix,omitempty" json:"-"`
}

// Registry holds the full catalog, keyed for lookup.
type Registry struct {
	Sources []SourceDefinition `yaml:"sources"`
	byKey   map[string]*SourceDefinition
}

// LoadRegistry parses the embedded sources.yaml.
func LoadRegistry() (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded sources.yaml: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse sources.yaml: %w", err)
	}

	reg.byKey = make(map[string]*SourceDefinition, len(reg.Sources))
	for i := range reg.Sources {
		src := &reg.Sources[i]
		if src.Key == "" {
			return nil, fmt.Errorf("sources.yaml entry %d has no key", i)
		}
		if _, dup := reg.byKey[src.Key]; dup {
			return nil, fmt.Errorf("duplicate source key %q", src.Key)
		}
		reg.byKey[src.Key] = src
	}

	return &reg, nil
}

// List returns catalog entries in file order. Disabled sources are skipped
// unless includeDisabled is set.
func (r *Registry) List(includeDisabled bool) []SourceDefinition {
	if includeDisabled {
		out := make([]SourceDefinition, len(r.Sources))
		copy(out, r.Sources)
		return out
	}
	var out []SourceDefinition
	for _, src := range r.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// Get looks up one definition by key. Returns nil when unknown.
func (r *Registry) Get(key string) *SourceDefinition {
	return r.byKey[key]
}
