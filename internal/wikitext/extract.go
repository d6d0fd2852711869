package wikitext

import (
	"regexp"
	"strings"
)

var reWikilink = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]*))?\]\]`)

// gameAbbreviations maps canonical two-letter-plus-digit game codes to the
// full title they reference. Loaded once; never mutated.
var gameAbbreviations = map[string]string{
	"fo1":  "Fallout",
	"fo2":  "Fallout 2",
	"fo3":  "Fallout 3",
	"fnv":  "Fallout: New Vegas",
	"fo4":  "Fallout 4",
	"fo76": "Fallout 76",
	"fst":  "Fallout Shelter",
	"fot":  "Fallout Tactics",
	"fobos": "Fallout: Brotherhood of Steel",
}

var reGameCode = regexp.MustCompile(`(?i)\b([a-z]{2,3}\d{0,3})\b`)

// Extract walks a parsed Document (C2's output) and derives the
// CleanedPage's plain text plus its structural metadata (C3's contract).
func Extract(doc *Document) CleanedPage {
	cp := CleanedPage{
		Title:      doc.Title,
		Infoboxes:  doc.Infoboxes,
		Templates:  doc.Templates,
	}

	var text strings.Builder
	headerStack := []SectionInfo{{Level: 1, Title: "Introduction"}}
	current := &SectionInfo{Level: 1, Title: "Introduction", Path: "Introduction", StartOffset: 0}
	seenCategories := map[string]bool{}

	closeSection := func() {
		current.EndOffset = text.Len()
		cp.Sections = append(cp.Sections, *current)
	}

	for _, ln := range doc.Lines {
		if ln.headerLevel > 0 {
			closeSection()

			for len(headerStack) > 0 && headerStack[len(headerStack)-1].Level >= ln.headerLevel {
				headerStack = headerStack[:len(headerStack)-1]
			}
			headerStack = append(headerStack, SectionInfo{Level: ln.headerLevel, Title: ln.headerTitle})

			path := make([]string, len(headerStack))
			for i, h := range headerStack {
				path[i] = h.Title
			}

			current = &SectionInfo{
				Level:       ln.headerLevel,
				Title:       ln.headerTitle,
				Path:        strings.Join(path, " > "),
				StartOffset: text.Len(),
			}
			continue
		}

		resolved, links, cats := resolveInlineLinks(ln.raw)
		resolved = stripInlineFormatting(resolved)
		resolved = normalizeWhitespace(resolved)
		if resolved == "" {
			continue
		}

		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(resolved)

		for _, l := range links {
			cp.WikiLinks = append(cp.WikiLinks, l)
		}
		for _, c := range cats {
			if !seenCategories[c] {
				seenCategories[c] = true
				cp.Categories = append(cp.Categories, c)
			}
		}
	}
	closeSection()

	cp.PlainText = text.String()
	cp.GameRefs = extractGameRefs(cp, doc)
	return cp
}

// resolveInlineLinks replaces [[target|display]] / [[target]] with its
// display text, recording the link (and, for categories, stripping it
// from the rendered line entirely since categories are not prose).
func resolveInlineLinks(s string) (string, []WikiLink, []string) {
	var links []WikiLink
	var categories []string

	out := reWikilink.ReplaceAllStringFunc(s, func(m string) string {
		sub := reWikilink.FindStringSubmatch(m)
		target := strings.TrimSpace(sub[1])
		display := strings.TrimSpace(sub[2])
		if display == "" {
			display = target
		}

		lower := strings.ToLower(target)
		switch {
		case strings.HasPrefix(lower, "category:"):
			categories = append(categories, strings.TrimSpace(target[len("category:"):]))
			return ""
		case strings.HasPrefix(lower, "file:") || strings.HasPrefix(lower, "image:"):
			links = append(links, WikiLink{Target: target, Display: display, IsFile: true})
			return ""
		default:
			links = append(links, WikiLink{Target: target, Display: display})
			return display
		}
	})
	return out, links, categories
}

// extractGameRefs scans plain text and every template/infobox parameter
// value for canonical game-code tokens, resolving them through the fixed
// abbreviation table.
func extractGameRefs(cp CleanedPage, doc *Document) []string {
	seen := map[string]bool{}
	var refs []string

	add := func(token string) {
		if name, ok := gameAbbreviations[strings.ToLower(token)]; ok {
			if !seen[name] {
				seen[name] = true
				refs = append(refs, name)
			}
		}
	}

	scan := func(s string) {
		for _, m := range reGameCode.FindAllString(s, -1) {
			add(m)
		}
	}

	scan(cp.PlainText)
	for _, t := range doc.Templates {
		for _, p := range t.Parameters {
			scan(p.Value)
		}
	}
	for _, b := range doc.Infoboxes {
		for _, p := range b.Parameters {
			scan(p.Value)
		}
	}
	return refs
}
