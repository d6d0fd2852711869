// Package enrich deterministically labels chunks with temporal, spatial,
// typological, and trust metadata (C5). Classification is table-driven:
// package-private immutable tables loaded once, consulted by pure
// functions — never globally mutated, never clock- or RNG-dependent, so
// re-running the enricher on identical inputs always yields identical
// output.
package enrich

import "github.com/wikivault/process-wiki/internal/chunk"

// Enrich classifies a single chunk's text against its structural metadata
// and returns the enriched view. extraText carries infobox/template
// parameter values discovered on the page, scanned alongside the chunk
// body for temporal signals (a year often lives in an infobox param
// rather than prose).
func Enrich(text string, structural chunk.Structural, extraText []string) chunk.Enriched {
	period, yearMin, yearMax, preWar, postWar, temporalConf := temporal(text, extraText)
	location, regionType, spatialConf := spatial(text, structural.Categories, structural.WikilinkTargets)
	contentType, typeConf := typeClassification(structural.InfoboxTypes, structural.Categories)
	tier, source, trustConf := trust(contentType, structural.InfoboxTypes, structural.Categories, structural.GameRefs)

	return chunk.Enriched{
		TimePeriod: period,
		YearMin:    yearMin,
		YearMax:    yearMax,
		IsPreWar:   preWar,
		IsPostWar:  postWar,

		Location:   location,
		RegionType: regionType,

		ContentType:   chunk.ContentType(contentType),
		KnowledgeTier: chunk.KnowledgeTier(tier),
		InfoSource:    chunk.InfoSource(source),

		TemporalConfidence: temporalConf,
		SpatialConfidence:  spatialConf,
		TypeConfidence:     typeConf,
		TrustConfidence:    trustConf,
	}
}
