// Package wikitext cleans MediaWiki markup into plain text (C2) and
// derives structural metadata — categories, links, sections, infoboxes,
// templates, and game references — from the same parse tree (C3).
package wikitext

// SectionInfo describes one heading-delimited section of a page's plain
// text. Root-level lead text (before the first heading) is reported as an
// implicit "Introduction" section at level 1.
type SectionInfo struct {
	Level       int
	Title       string
	Path        string // breadcrumb of ancestor titles joined by " > "
	StartOffset int
	EndOffset   int
}

// WikiLink is one [[target|display]] reference.
type WikiLink struct {
	Target     string
	Display    string
	IsCategory bool
	IsFile     bool
}

// Param is one ordered key/value pair of an Infobox or Template. Unnamed
// (positional) parameters use their 1-based position as Name.
type Param struct {
	Name  string
	Value string
}

// Infobox is a {{Infobox ...}}-family template, distinguished from a plain
// Template by name prefix.
type Infobox struct {
	TypeName   string
	Parameters []Param
}

// Template is any non-infobox template invocation retained for structural
// metadata (game refs, typological hints).
type Template struct {
	TypeName   string
	Parameters []Param
}

// CleanedPage is the plain-text-plus-structure view of a decoded Page.
type CleanedPage struct {
	Title      string
	PlainText  string
	Sections   []SectionInfo
	Categories []string
	WikiLinks  []WikiLink
	Infoboxes  []Infobox
	Templates  []Template
	GameRefs   []string
}

// paramsGet returns a parameter's value by name, and whether it was present.
func paramsGet(params []Param, name string) (string, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Get returns an infobox parameter's value by name.
func (i Infobox) Get(name string) (string, bool) { return paramsGet(i.Parameters, name) }

// Get returns a template parameter's value by name.
func (t Template) Get(name string) (string, bool) { return paramsGet(t.Parameters, name) }
