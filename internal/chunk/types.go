// Package chunk partitions a cleaned wiki page into overlapping,
// token-budgeted, section-aware windows — the unit of embedding and
// retrieval — and carries each window's structural and enriched metadata.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Default chunking parameters.
const (
	DefaultTargetTokens  = 800
	DefaultMinTokens     = 500
	DefaultOverlapTokens = 100
	// OverBudgetTolerance is how far a merged trailing chunk may grow past
	// TargetTokens before being left as its own (undersized) chunk instead.
	OverBudgetTolerance = 1.25
)

// TimePeriod is the enumerated era tag assigned by the metadata enricher.
type TimePeriod string

const (
	TimePeriodUnknown  TimePeriod = ""
	TimePeriodPreWar   TimePeriod = "pre-war"
	TimePeriodEra2077  TimePeriod = "2077-2102"
	TimePeriodEra2103  TimePeriod = "2103-2160"
	TimePeriodEra2161  TimePeriod = "2161-2240"
	TimePeriodEra2241  TimePeriod = "2241-2286"
	TimePeriodEra2287  TimePeriod = "2287+"
)

// ContentType is the closed classification of what a chunk describes.
type ContentType string

const (
	ContentTypeCharacter  ContentType = "character"
	ContentTypeLocation   ContentType = "location"
	ContentTypeFaction    ContentType = "faction"
	ContentTypeEvent      ContentType = "event"
	ContentTypeItem       ContentType = "item"
	ContentTypeTechnology ContentType = "technology"
	ContentTypeCreature   ContentType = "creature"
	ContentTypeQuest      ContentType = "quest"
	ContentTypeLore       ContentType = "lore"
	ContentTypeOther      ContentType = "other"
)

// KnowledgeTier is the sensitivity label for a chunk's content.
type KnowledgeTier string

const (
	KnowledgeTierCommon     KnowledgeTier = "common"
	KnowledgeTierRegional   KnowledgeTier = "regional"
	KnowledgeTierClassified KnowledgeTier = "classified"
	KnowledgeTierRestricted KnowledgeTier = "restricted"
)

// InfoSource is the origin category of a chunk's content.
type InfoSource string

const (
	InfoSourcePublic   InfoSource = "public"
	InfoSourceMilitary InfoSource = "military"
	InfoSourceCorporate InfoSource = "corporate"
	InfoSourceVaultTec InfoSource = "vault-tec"
	InfoSourceFaction  InfoSource = "faction"
)

// Structural is the section/link/category view of a chunk, carried over
// unchanged from the page's CleanedPage.
type Structural struct {
	WikiTitle       string
	SectionTitle    string
	SectionPath     string
	SectionLevel    int
	Categories      []string
	WikilinkTargets []string
	InfoboxTypes    []string
	GameRefs        []string
	ChunkIndex      int
}

// Enriched is the temporal/spatial/typological/trust view of a chunk,
// produced by the metadata enricher (C5). Every classification decision
// carries a confidence in [0,1].
type Enriched struct {
	TimePeriod TimePeriod
	YearMin    int
	YearMax    int
	IsPreWar   bool
	IsPostWar  bool

	Location   string // canonical region token, empty when unknown
	RegionType string

	ContentType   ContentType
	KnowledgeTier KnowledgeTier
	InfoSource    InfoSource

	TemporalConfidence float64
	SpatialConfidence  float64
	TypeConfidence     float64
	TrustConfidence    float64
}

// Metadata is the full metadata record attached to a Chunk.
type Metadata struct {
	Structural Structural
	Enriched   Enriched
}

// Chunk is a token-budgeted, overlapping slice of a page's plain text —
// the unit of embedding and retrieval.
type Chunk struct {
	ID         string
	Text       string
	ChunkIndex int
	Metadata   Metadata
}

// NewID computes the deterministic chunk id: a hash of title, chunk
// index, and text. Same inputs always produce the same id, which is what
// makes re-running the pipeline against an unchanged dump idempotent.
func NewID(title string, index int, text string) string {
	h := sha256.Sum256([]byte(title + "\x00" + strconv.Itoa(index) + "\x00" + text))
	return hex.EncodeToString(h[:])[:24]
}

// ToFlat is the single source of truth for the store's flat metadata
// schema. Nested collections become comma-joined strings plus a sibling
// "<name>_count" integer; nested records expand to "parent_child" scalar
// keys; null/zero-value optional fields are dropped rather than emitted
// as null.
func (m Metadata) ToFlat() map[string]any {
	flat := map[string]any{
		"wiki_title":     m.Structural.WikiTitle,
		"chunk_index":    m.Structural.ChunkIndex,
		"section_title":  m.Structural.SectionTitle,
		"section_path":   m.Structural.SectionPath,
		"section_level":  m.Structural.SectionLevel,
		"categories":      strings.Join(m.Structural.Categories, ","),
		"category_count":  len(m.Structural.Categories),
		"wikilink_targets": strings.Join(m.Structural.WikilinkTargets, ","),
		"wikilink_count":   len(m.Structural.WikilinkTargets),
		"infobox_types":    strings.Join(m.Structural.InfoboxTypes, ","),
		"infobox_count":    len(m.Structural.InfoboxTypes),
		"game_refs":        strings.Join(m.Structural.GameRefs, ","),

		"time_period": string(m.Enriched.TimePeriod),
		"year_min":    m.Enriched.YearMin,
		"year_max":    m.Enriched.YearMax,
		"is_pre_war":  m.Enriched.IsPreWar,
		"is_post_war": m.Enriched.IsPostWar,
		"region_type": m.Enriched.RegionType,
		"content_type":    string(m.Enriched.ContentType),
		"knowledge_tier":  string(m.Enriched.KnowledgeTier),
		"info_source":     string(m.Enriched.InfoSource),

		"temporal_confidence": m.Enriched.TemporalConfidence,
		"spatial_confidence":  m.Enriched.SpatialConfidence,
		"type_confidence":     m.Enriched.TypeConfidence,
		"trust_confidence":    m.Enriched.TrustConfidence,
	}

	// location is an enum tag-or-null; absent location is dropped rather
	// than stored as an empty/null scalar.
	if m.Enriched.Location != "" {
		flat["location"] = m.Enriched.Location
	}

	return flat
}
