// Package query implements the persona-filtered retrieval facade (C8):
// it composes a persona definition with a free-text query into a
// filtered vector search over the ingested store.
package query

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is a closed retrieval-scoping configuration: one per consumer
// of the query facade. A zero-value field means "unrestricted" for that
// dimension except where noted.
type Persona struct {
	Name string `yaml:"name"`

	// YearMax bounds results to year_max <= YearMax. Zero means no bound.
	YearMax int `yaml:"year_max"`

	// AllowedLocations, when non-empty, restricts results to those
	// whose location is in this set.
	AllowedLocations []string `yaml:"allowed_locations"`

	// AllowedRegions, when non-empty, restricts results to those whose
	// region_type is in this set.
	AllowedRegions []string `yaml:"allowed_regions"`

	// AllowedInfoSources, when non-empty, restricts results to those
	// whose info_source is in this set. An empty set means no records
	// pass — personas should always specify sources explicitly.
	AllowedInfoSources []string `yaml:"allowed_info_sources"`

	// MaxKnowledgeTier, when set, caps results to this tier or below in
	// the defined ordering: common < regional < classified < restricted.
	MaxKnowledgeTier string `yaml:"max_knowledge_tier"`

	// ContentTypeWhitelist, when non-empty, restricts results to these
	// content types.
	ContentTypeWhitelist []string `yaml:"content_type_whitelist"`
}

var knowledgeTierRank = map[string]int{
	"common":     0,
	"regional":   1,
	"classified": 2,
	"restricted": 3,
}

// LoadPersona reads a persona definition from a YAML file: a closed
// configuration, one per persona.
func LoadPersona(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file %s: %w", path, err)
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	return p, nil
}
