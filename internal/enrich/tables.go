// Package enrich deterministically labels chunks with temporal, spatial,
// typological, and trust metadata (C5). Classification is table-driven:
// package-private immutable tables loaded once, consulted by pure
// functions — never globally mutated, never clock- or RNG-dependent, so
// re-running the enricher on identical inputs always yields identical
// output.
package enrich

// GreatWarYear is the dividing line between pre- and post-war content.
const GreatWarYear = 2077

// MinAcceptedYear and MaxAcceptedYear bound the years accepted as
// plausible in-universe dates; anything outside is discarded rather than
// clamped into range.
const (
	MinAcceptedYear = 1950
	MaxAcceptedYear = 2290
)

// keywordMapping is one (keyword, resolved value) pair in a priority-
// ordered lookup table. Tables that may match more than one entry for
// the same input are kept as an ordered slice rather than a map: map
// iteration order is randomized per run, and ranging over a map to find
// the "first" match would make classification non-deterministic across
// runs whenever a token matches two entries with different values.
type keywordMapping struct {
	keyword string
	value   string
}

// locationKeywords maps a free-text or category/wikilink token (matched
// case-insensitively) to its canonical location name. Earlier entries
// win on a tie (e.g. a token containing both "vault 101" and "vault
// city" resolves to the first match, not whichever a map would have
// iterated to).
var locationKeywords = []keywordMapping{
	{"vault 101", "Capital Wasteland"},
	{"rivet city", "Capital Wasteland"},
	{"megaton", "Capital Wasteland"},
	{"capital wasteland", "Capital Wasteland"},
	{"diamond city", "Commonwealth"},
	{"goodneighbor", "Commonwealth"},
	{"commonwealth", "Commonwealth"},
	{"new vegas", "Mojave Wasteland"},
	{"freeside", "Mojave Wasteland"},
	{"mojave wasteland", "Mojave Wasteland"},
	{"shady sands", "West Coast"},
	{"new california republic", "West Coast"},
	{"ncr", "West Coast"},
	{"vault city", "West Coast"},
	{"appalachia", "Appalachia"},
	{"new orleans", "Gulf Coast"},
}

// regionTable buckets a canonical location into its broader region type.
var regionTable = map[string]string{
	"Capital Wasteland": "East Coast",
	"Commonwealth":      "East Coast",
	"Mojave Wasteland":  "West Coast",
	"West Coast":        "West Coast",
	"Appalachia":        "Appalachia",
	"Gulf Coast":        "Gulf Coast",
}

// infoboxContentType maps an infobox type-name prefix (lowercased) to the
// content type it implies; checked before category patterns and keyword
// fallback. Ordered: "infobox armor" must be checked before any broader
// "infobox item"-like prefix would swallow it, and a type name that
// happens to share a prefix with two entries resolves to the first.
var infoboxContentType = []keywordMapping{
	{"infobox character", "character"},
	{"infobox vault", "location"},
	{"infobox location", "location"},
	{"infobox faction", "faction"},
	{"infobox organization", "faction"},
	{"infobox event", "event"},
	{"infobox item", "item"},
	{"infobox weapon", "item"},
	{"infobox armor", "item"},
	{"infobox technology", "technology"},
	{"infobox creature", "creature"},
	{"infobox quest", "quest"},
}

// categoryContentType maps a substring found in a category name to the
// content type it implies, used when no infobox type matched. Ordered so
// a category matching two substrings (e.g. both "armor" and
// "technology") always resolves to the same entry.
var categoryContentType = []keywordMapping{
	{"characters", "character"},
	{"locations", "location"},
	{"factions", "faction"},
	{"events", "event"},
	{"items", "item"},
	{"weapons", "item"},
	{"armor", "item"},
	{"technology", "technology"},
	{"creatures", "creature"},
	{"quests", "quest"},
}

// nonYearKeywords flags a year token as a publisher/developer note rather
// than an in-universe date when one of these appears nearby — a
// developer-commentary year must never be mistaken for an in-universe
// one.
var nonYearKeywords = []string{
	"interview", "developer", "retrieved", "published", "press release",
	"magazine", "behind the scenes", "blog post", "design document",
}
