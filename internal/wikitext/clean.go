package wikitext

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/wikivault/process-wiki/internal/wiki"
)

// Config tunes cleaning behaviour.
type Config struct {
	// MaxPageBytes flags (but does not reject) pages above this size; 0
	// disables the cap. Oversized pages are still processed in full.
	MaxPageBytes int
}

// DefaultConfig returns the default cleaning configuration.
func DefaultConfig() Config {
	return Config{MaxPageBytes: 2_000_000}
}

// line is one heading or body line of the intermediate parse tree, after
// comments/refs/tables/templates have been stripped but before inline
// wikilink resolution collapses it into a single plain-text run.
type line struct {
	headerLevel int // 0 for body text
	headerTitle string
	raw         string // body text with wikilink/formatting markup still present
}

// Document is the parse tree C2 builds and C3 walks: a line-oriented
// skeleton plus every template/infobox invocation found anywhere on the
// page (templates can appear inside list items, infobox bodies, etc., so
// they are extracted globally rather than per line).
type Document struct {
	Title     string
	Lines     []line
	Templates []Template
	Infoboxes []Infobox
	Oversized bool
}

var (
	reComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	reRefPair    = regexp.MustCompile(`(?is)<ref[^>]*>.*?</ref>`)
	reRefSelf    = regexp.MustCompile(`(?is)<ref[^/>]*/>`)
	reGallery    = regexp.MustCompile(`(?is)<gallery[^>]*>.*?</gallery>`)
	reTable      = regexp.MustCompile(`(?s)\{\|.*?\|\}`)
	reFileLink   = regexp.MustCompile(`(?is)\[\[(?:File|Image):[^\]]*\]\]`)
	reHeader     = regexp.MustCompile(`^(={2,6})\s*(.+?)\s*=+\s*$`)
	reBoldItalic = regexp.MustCompile(`'{2,5}`)
	reListMarker = regexp.MustCompile(`^[*#:;]+\s*`)
	reHTMLTag    = regexp.MustCompile(`(?s)<[^>]+>`)
)

// Clean runs the full C2+C3 pipeline over a page: parse the wikitext into
// the intermediate Document, then extract the CleanedPage (plain text plus
// structural metadata) from it.
func Clean(page wiki.Page, cfg Config) (CleanedPage, error) {
	doc, err := Parse(page, cfg)
	if err != nil {
		return CleanedPage{}, err
	}
	return Extract(doc), nil
}

// Parse converts a page's raw wikitext into the intermediate Document
// (C2's parse tree), stripping non-textual markup and extracting every
// template/infobox invocation for C3.
func Parse(page wiki.Page, cfg Config) (*Document, error) {
	text := page.Wikitext

	text = reComment.ReplaceAllString(text, "")
	text = reRefPair.ReplaceAllString(text, "")
	text = reRefSelf.ReplaceAllString(text, "")
	text = reGallery.ReplaceAllString(text, "")
	text = reTable.ReplaceAllString(text, "")
	text = reFileLink.ReplaceAllString(text, "")

	text, templates, infoboxes := extractTemplates(text)
	text = reHTMLTag.ReplaceAllString(text, "")

	doc := &Document{
		Title:     page.Title,
		Templates: templates,
		Infoboxes: infoboxes,
		Oversized: cfg.MaxPageBytes > 0 && len(page.Wikitext) > cfg.MaxPageBytes,
	}

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(raw, " \t\r")
		if m := reHeader.FindStringSubmatch(trimmed); m != nil {
			doc.Lines = append(doc.Lines, line{
				headerLevel: len(m[1]),
				headerTitle: strings.TrimSpace(m[2]),
			})
			continue
		}
		doc.Lines = append(doc.Lines, line{raw: trimmed})
	}

	return doc, nil
}

// extractTemplates removes every {{...}} invocation from text (via
// brace-depth matching, so nested templates are handled correctly) and
// returns the templates/infoboxes found. Nested templates are handled
// by flattening the outermost occurrence and then recursing into its
// raw body to discover templates nested within it.
func extractTemplates(text string) (string, []Template, []Infobox) {
	var templates []Template
	var infoboxes []Infobox

	var out strings.Builder
	i := 0
	for i < len(text) {
		if i+1 < len(text) && text[i] == '{' && text[i+1] == '{' {
			end := matchingBraceClose(text, i)
			if end < 0 {
				// Unterminated template: best-effort, drop the rest of the line.
				nl := strings.IndexByte(text[i:], '\n')
				if nl < 0 {
					break
				}
				i += nl
				continue
			}
			inner := text[i+2 : end-2]
			tpls, boxes := parseTemplate(inner)
			templates = append(templates, tpls...)
			infoboxes = append(infoboxes, boxes...)
			i = end
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String(), templates, infoboxes
}

// matchingBraceClose returns the index just past the "}}" that closes the
// "{{" starting at start, accounting for nested "{{...}}" pairs. Returns
// -1 if unterminated.
func matchingBraceClose(text string, start int) int {
	depth := 0
	i := start
	for i < len(text)-1 {
		switch {
		case text[i] == '{' && text[i+1] == '{':
			depth++
			i += 2
		case text[i] == '}' && text[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return -1
}

// parseTemplate splits one template body ("Name|p1=v1|v2") into its
// typed Template/Infobox, recursing into the body to pick up templates
// nested inside parameter values.
func parseTemplate(body string) ([]Template, []Infobox) {
	// Recurse first: the outer template's own parameters are parsed from
	// the flattened body (nested templates removed) so a nested template's
	// pipes don't get mistaken for the outer template's parameter splits.
	flattened, nestedTemplates, nestedInfoboxes := extractTemplates(body)

	parts := splitTopLevelPipes(flattened)
	if len(parts) == 0 {
		return nestedTemplates, nestedInfoboxes
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nestedTemplates, nestedInfoboxes
	}

	params := parseParams(parts[1:])

	if isInfoboxName(name) {
		box := Infobox{TypeName: name, Parameters: params}
		if len(params) == 0 {
			// Empty infoboxes carry no signal and are dropped.
			return append([]Template{}, nestedTemplates...), nestedInfoboxes
		}
		return nestedTemplates, append([]Infobox{box}, nestedInfoboxes...)
	}

	tpl := Template{TypeName: name, Parameters: params}
	return append([]Template{tpl}, nestedTemplates...), nestedInfoboxes
}

func isInfoboxName(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "infobox")
}

// splitTopLevelPipes splits a template body on "|" that is not nested
// inside [[...]] wikilinks.
func splitTopLevelPipes(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch {
		case i+1 < len(body) && body[i] == '[' && body[i+1] == '[':
			depth++
			i++
		case i+1 < len(body) && body[i] == ']' && body[i+1] == ']':
			if depth > 0 {
				depth--
			}
			i++
		case body[i] == '|' && depth == 0:
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	parts = append(parts, body[start:])
	return parts
}

func parseParams(fields []string) []Param {
	var params []Param
	positional := 1
	for _, f := range fields {
		if eq := strings.Index(f, "="); eq >= 0 {
			name := strings.TrimSpace(f[:eq])
			value := strings.TrimSpace(f[eq+1:])
			if name != "" {
				params = append(params, Param{Name: name, Value: value})
				continue
			}
		}
		value := strings.TrimSpace(f)
		if value == "" {
			continue
		}
		params = append(params, Param{Name: itoa(positional), Value: value})
		positional++
	}
	return params
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// stripInlineFormatting removes bold/italic markers and leading list
// markers, leaving the text content behind.
func stripInlineFormatting(s string) string {
	s = reBoldItalic.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	return s
}

// normalizeWhitespace applies Unicode NFC normalization and collapses runs
// of intra-line whitespace to a single space, preserving the line as a
// paragraph/section break marker (callers join lines with "\n").
func normalizeWhitespace(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) && r != '\n' {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
