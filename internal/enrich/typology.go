package enrich

import "strings"

// typeClassification resolves content type from infobox types first,
// then category names, then falls back to ContentTypeOther — mirroring
// spatial's priority order since infobox/category signals are
// author-curated and free text is not.
func typeClassification(infoboxTypes, categories []string) (contentType string, confidence float64) {
	for _, ib := range infoboxTypes {
		lower := strings.ToLower(ib)
		for _, m := range infoboxContentType {
			if strings.HasPrefix(lower, m.keyword) {
				return m.value, 0.9
			}
		}
	}
	for _, cat := range categories {
		lower := strings.ToLower(cat)
		for _, m := range categoryContentType {
			if strings.Contains(lower, m.keyword) {
				return m.value, 0.7
			}
		}
	}
	return "other", 0.3
}

// trust derives knowledge tier and info source from the resolved content
// type plus its supporting structural signals. This is a coarse,
// deterministic heuristic: vault-tec/military/corporate sources are
// inferred from the same infobox/category/game-ref tokens already
// consulted elsewhere, defaulting to public/common when nothing
// distinguishes the content.
func trust(contentType string, infoboxTypes, categories []string, gameRefs []string) (tier, source string, confidence float64) {
	switch {
	case hasVaultSignal(infoboxTypes, categories):
		return "classified", "vault-tec", 0.8
	case contentType == "faction":
		return "regional", "faction", 0.7
	case contentType == "technology":
		return "restricted", "corporate", 0.6
	case contentType == "event" && hasMilitaryRef(gameRefs):
		return "classified", "military", 0.6
	default:
		return "common", "public", 0.5
	}
}

func hasVaultSignal(infoboxTypes, categories []string) bool {
	for _, ib := range infoboxTypes {
		if strings.Contains(strings.ToLower(ib), "vault") {
			return true
		}
	}
	for _, cat := range categories {
		if strings.Contains(strings.ToLower(cat), "vault") {
			return true
		}
	}
	return false
}

func hasMilitaryRef(gameRefs []string) bool {
	for _, r := range gameRefs {
		lower := strings.ToLower(r)
		if strings.Contains(lower, "enclave") || strings.Contains(lower, "brotherhood") {
			return true
		}
	}
	return false
}
