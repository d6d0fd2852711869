//go:build ignore

// Package main generates a synthetic MediaWiki XML export dump for
// benchmarking the ingestion pipeline without needing a real wiki dump on
// disk. Usage: go run scripts/generate-test-corpus.go -pages 5000 -output testdata/bench-dump.xml
package main

import (
	"bufio"
	"encoding/xml"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

var (
	numPages     = flag.Int("pages", 1000, "Number of pages to generate")
	outputPath   = flag.String("output", "testdata/bench-dump.xml", "Output dump path")
	seed         = flag.Int64("seed", 42, "Random seed for reproducibility")
	redirectFrac = flag.Float64("redirect-frac", 0.05, "Fraction of pages that are redirects")
	talkFrac     = flag.Float64("talk-frac", 0.1, "Fraction of pages outside the article namespace")
)

var regions = []string{"East Coast", "West Coast", "Midwest", "Mojave", "Appalachia"}
var factions = []string{"Brotherhood of Steel", "NCR", "Enclave", "Raiders", "Vault-Tec"}
var sectionNames = []string{"Background", "Layout", "Notable loot", "Notable inhabitants", "Appearances"}

// page mirrors the subset of the export schema internal/wiki.Decoder reads.
type page struct {
	XMLName  xml.Name  `xml:"page"`
	Title    string    `xml:"title"`
	Ns       string    `xml:"ns"`
	Redirect *redirect `xml:"redirect,omitempty"`
	Revision revision  `xml:"revision"`
}

type redirect struct {
	Target string `xml:"title,attr"`
}

type revision struct {
	Timestamp string `xml:"timestamp"`
	Text      string `xml:"text"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(dirOf(*outputPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create dump file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, `<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintln(w, `<mediawiki xmlns="http://www.mediawiki.org/xml/export-0.11/">`)

	enc := xml.NewEncoder(w)
	enc.Indent("  ", "  ")

	titles := make([]string, 0, *numPages)
	for i := 0; i < *numPages; i++ {
		titles = append(titles, fmt.Sprintf("%s %d", pick(rng, articleNouns), i))
	}

	for _, title := range titles {
		var p page
		roll := rng.Float64()
		switch {
		case roll < *redirectFrac:
			p = page{
				Title:    title,
				Ns:       "0",
				Redirect: &redirect{Target: titles[rng.Intn(len(titles))]},
				Revision: revision{Timestamp: randomTimestamp(rng), Text: ""},
			}
		case roll < *redirectFrac+*talkFrac:
			p = page{
				Title:    "Talk:" + title,
				Ns:       "1",
				Revision: revision{Timestamp: randomTimestamp(rng), Text: "Discussion about " + title},
			}
		default:
			p = page{
				Title:    title,
				Ns:       "0",
				Revision: revision{Timestamp: randomTimestamp(rng), Text: randomWikitext(rng, title)},
			}
		}
		if err := enc.Encode(p); err != nil {
			fmt.Fprintf(os.Stderr, "encode page %q: %v\n", title, err)
			os.Exit(1)
		}
	}
	enc.Flush()
	fmt.Fprintln(w, `</mediawiki>`)
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush dump file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d pages to %s\n", *numPages, *outputPath)
}

var articleNouns = []string{"Settlement", "Vault", "Raider camp", "Power armor", "Holotape", "Terminal", "Ghoul", "Brahmin ranch"}

func pick(rng *rand.Rand, opts []string) string {
	return opts[rng.Intn(len(opts))]
}

func randomTimestamp(rng *rand.Rand) string {
	year := 2075 + rng.Intn(160)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00Z", year, month, day)
}

func randomWikitext(rng *rand.Rand, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{{Infobox location\n| region = %s\n| faction = %s\n| year = %d\n}}\n",
		pick(rng, regions), pick(rng, factions), 2075+rng.Intn(160))
	fmt.Fprintf(&b, "'''%s''' is a location featured in the wiki.\n\n", title)
	numSections := 2 + rng.Intn(len(sectionNames)-1)
	for s := 0; s < numSections; s++ {
		fmt.Fprintf(&b, "== %s ==\n", sectionNames[s])
		for p := 0; p < 2+rng.Intn(3); p++ {
			b.WriteString(randomParagraph(rng, title))
			b.WriteString("\n\n")
		}
	}
	fmt.Fprintf(&b, "[[Category:Locations]]\n[[Category:%s]]\n", pick(rng, regions))
	return b.String()
}

func randomParagraph(rng *rand.Rand, title string) string {
	sentences := []string{
		fmt.Sprintf("The [[%s]] was established after the Great War.", title),
		"Its inhabitants traded scrap for clean water.",
		fmt.Sprintf("Raiders from the %s frequently raided the area.", pick(rng, factions)),
		"A terminal inside logs the facility's last broadcast.",
		"Supply caches are scattered throughout the ruins.",
	}
	n := 2 + rng.Intn(3)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = sentences[rng.Intn(len(sentences))]
	}
	return strings.Join(parts, " ")
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
