package chunk

import (
	"strings"

	"github.com/wikivault/process-wiki/internal/wikitext"
)

// Config tunes the chunker's token budget.
type Config struct {
	TargetTokens  int
	MinTokens     int
	OverlapTokens int
}

// DefaultConfig returns the default chunking parameters.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  DefaultTargetTokens,
		MinTokens:     DefaultMinTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

// Chunker partitions a CleanedPage's text into overlapping, token-budgeted
// windows that respect section boundaries.
type Chunker struct {
	tokenizer Tokenizer
	cfg       Config
}

// New creates a Chunker. A nil tokenizer defaults to WordTokenizer.
func New(tokenizer Tokenizer, cfg Config) *Chunker {
	if tokenizer == nil {
		tokenizer = NewWordTokenizer()
	}
	if cfg.TargetTokens <= 0 {
		cfg = DefaultConfig()
	}
	return &Chunker{tokenizer: tokenizer, cfg: cfg}
}

// rawChunk is a chunk still in word-slice form, before text is rejoined
// and metadata is attached.
type rawChunk struct {
	words   []string
	section wikitext.SectionInfo
}

// Chunk splits a cleaned page into an ordered list of Chunks. Chunk order
// equals reading order; chunk_index is assigned 0-based and strictly
// increasing; ids are unique within the page.
func (c *Chunker) Chunk(page wikitext.CleanedPage) []*Chunk {
	var raw []rawChunk

	for _, section := range page.Sections {
		if section.StartOffset < 0 || section.EndOffset > len(page.PlainText) || section.StartOffset > section.EndOffset {
			continue
		}
		blockText := strings.TrimSpace(page.PlainText[section.StartOffset:section.EndOffset])
		if blockText == "" {
			continue
		}
		raw = append(raw, c.windowBlock(blockText, section)...)
	}

	merged := c.mergeShortTrailing(raw)

	chunks := make([]*Chunk, 0, len(merged))
	for i, rc := range merged {
		text := strings.Join(rc.words, " ")
		chunks = append(chunks, &Chunk{
			ID:         NewID(page.Title, i, text),
			Text:       text,
			ChunkIndex: i,
			Metadata: Metadata{
				Structural: Structural{
					WikiTitle:       page.Title,
					SectionTitle:    rc.section.Title,
					SectionPath:     rc.section.Path,
					SectionLevel:    rc.section.Level,
					Categories:      page.Categories,
					WikilinkTargets: wikilinkTargets(page.WikiLinks),
					InfoboxTypes:    infoboxTypes(page.Infoboxes),
					GameRefs:        page.GameRefs,
					ChunkIndex:      i,
				},
			},
		})
	}
	return chunks
}

// windowBlock splits one section's text into one chunk (if it fits the
// target budget) or a sliding-window sequence with the configured overlap.
// Budgeting is charged against c.tokenizer, the same tokenizer the
// embedding engine counts against, so a chunk's declared token budget and
// its actual embedding charge always agree.
func (c *Chunker) windowBlock(blockText string, section wikitext.SectionInfo) []rawChunk {
	words := wordsOf(blockText)
	if len(words) == 0 {
		return nil
	}
	if c.tokenizer.Count(blockText) <= c.cfg.TargetTokens {
		return []rawChunk{{words: words, section: section}}
	}

	stride := c.cfg.TargetTokens - c.cfg.OverlapTokens
	if stride <= 0 {
		stride = c.cfg.TargetTokens
	}

	var out []rawChunk
	for start := 0; start < len(words); start += stride {
		end := start + c.cfg.TargetTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, rawChunk{words: words[start:end], section: section})
		if end == len(words) {
			break
		}
	}
	return out
}

// mergeShortTrailing folds any chunk (other than the first, or the sole
// chunk of a genuinely short page) whose token count falls below MinTokens
// into the chunk before it, tolerating growth past TargetTokens up to
// OverBudgetTolerance. Token counts are charged against c.tokenizer, not
// a raw word count, so the merge threshold matches what the chunk will
// actually cost to embed.
func (c *Chunker) mergeShortTrailing(raw []rawChunk) []rawChunk {
	if len(raw) == 0 {
		return nil
	}

	merged := make([]rawChunk, 0, len(raw))
	merged = append(merged, raw[0])
	maxMerged := int(float64(c.cfg.TargetTokens) * OverBudgetTolerance)

	for i := 1; i < len(raw); i++ {
		rc := raw[i]
		count := c.tokenizer.Count(strings.Join(rc.words, " "))
		prev := &merged[len(merged)-1]
		if count < c.cfg.MinTokens && c.tokenizer.Count(strings.Join(prev.words, " "))+count <= maxMerged {
			prev.words = append(append([]string{}, prev.words...), rc.words...)
			continue
		}
		merged = append(merged, rc)
	}
	return merged
}

func wikilinkTargets(links []wikitext.WikiLink) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if !l.IsCategory {
			out = append(out, l.Target)
		}
	}
	return out
}

func infoboxTypes(boxes []wikitext.Infobox) []string {
	out := make([]string, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, b.TypeName)
	}
	return out
}
