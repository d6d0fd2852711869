package enrich

import "strings"

// spatial classifies a chunk's canonical location and region type by
// consulting, in priority order: structural signals (categories and
// wikilink targets — the strongest evidence since they are author-curated
// links, not free text), then a keyword scan of the chunk body. The first
// source to produce a match wins; no match leaves Location empty rather
// than guessing at one with no confident match.
func spatial(text string, categories, wikilinks []string) (location, regionType string, confidence float64) {
	if loc, ok := matchKeywords(categories); ok {
		return loc, regionTable[loc], 0.9
	}
	if loc, ok := matchKeywords(wikilinks); ok {
		return loc, regionTable[loc], 0.8
	}
	if loc, ok := matchText(text); ok {
		return loc, regionTable[loc], 0.6
	}
	return "", "", 0
}

func matchKeywords(tokens []string) (string, bool) {
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		for _, m := range locationKeywords {
			if strings.Contains(lower, m.keyword) {
				return m.value, true
			}
		}
	}
	return "", false
}

func matchText(text string) (string, bool) {
	lower := strings.ToLower(text)
	best := ""
	bestPos := -1
	for _, m := range locationKeywords {
		if pos := strings.Index(lower, m.keyword); pos != -1 {
			if bestPos == -1 || pos < bestPos {
				bestPos = pos
				best = m.value
			}
		}
	}
	if bestPos == -1 {
		return "", false
	}
	return best, true
}
