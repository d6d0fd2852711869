package wikitext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wikivault/process-wiki/internal/wiki"
)

func TestCleanExtractsSectionsAndLinks(t *testing.T) {
	page := wiki.Page{
		Title: "Vault 101",
		Wikitext: `{{Infobox vault
|name=Vault 101
|location=Capital Wasteland
}}
Vault 101 is a [[Vault-Tec]] vault in the [[Capital Wasteland]], built in 2063.
It appears in [[Fallout 3]] (fo3).

== History ==
The vault was sealed in 2077.

=== Overseer ===
The Overseer ran the vault until 2277.

[[Category:Vaults]]
[[Category:Vaults|sort key]]
`,
	}

	cp, err := Clean(page, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, "Vault 101", cp.Title)
	require.Contains(t, cp.PlainText, "Vault 101 is a Vault-Tec vault")
	require.NotContains(t, cp.PlainText, "[[")

	require.Len(t, cp.Infoboxes, 1)
	require.Equal(t, "Infobox vault", cp.Infoboxes[0].TypeName)
	v, ok := cp.Infoboxes[0].Get("name")
	require.True(t, ok)
	require.Equal(t, "Vault 101", v)

	require.Equal(t, []string{"Vaults"}, cp.Categories)

	var sawHistory, sawOverseer bool
	for _, s := range cp.Sections {
		if s.Title == "History" {
			sawHistory = true
			require.Equal(t, 2, s.Level)
			require.Equal(t, "Introduction > History", s.Path)
		}
		if s.Title == "Overseer" {
			sawOverseer = true
			require.Equal(t, "Introduction > History > Overseer", s.Path)
		}
		require.LessOrEqual(t, s.StartOffset, s.EndOffset)
	}
	require.True(t, sawHistory)
	require.True(t, sawOverseer)

	var targets []string
	for _, l := range cp.WikiLinks {
		targets = append(targets, l.Target)
	}
	require.Contains(t, targets, "Vault-Tec")
	require.Contains(t, targets, "Capital Wasteland")
	require.Contains(t, targets, "Fallout 3")

	require.Contains(t, cp.GameRefs, "Fallout 3")
}

func TestCleanStripsNoise(t *testing.T) {
	page := wiki.Page{
		Title: "Noise",
		Wikitext: `<!-- a comment -->
Some text<ref>a citation</ref> continues here.
[[File:Example.png|thumb|An image]]
{| class="wikitable"
|-
| a || b
|}
More text.
`,
	}

	cp, err := Clean(page, DefaultConfig())
	require.NoError(t, err)
	require.NotContains(t, cp.PlainText, "a comment")
	require.NotContains(t, cp.PlainText, "citation")
	require.NotContains(t, cp.PlainText, "wikitable")
	require.Contains(t, cp.PlainText, "Some text")
	require.Contains(t, cp.PlainText, "More text.")
}

func TestNestedTemplatesAreFlattened(t *testing.T) {
	page := wiki.Page{
		Title: "Nested",
		Wikitext: `{{Infobox character
|name={{PAGENAME}}
|affiliation=[[Brotherhood of Steel]]
}}
Body text.
`,
	}
	cp, err := Clean(page, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, cp.Infoboxes, 1)
	var names []string
	for _, tpl := range cp.Templates {
		names = append(names, tpl.TypeName)
	}
	require.Contains(t, names, "PAGENAME")
}

func TestEmptyInfoboxIsDropped(t *testing.T) {
	page := wiki.Page{
		Title:    "Empty",
		Wikitext: "{{Infobox empty}}\nBody.\n",
	}
	cp, err := Clean(page, DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, cp.Infoboxes)
}
