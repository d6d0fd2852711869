package chunk

import (
	"strings"
	"unicode"
)

// Tokenizer counts tokens in a string. The chunker and the embedding
// engine share one Tokenizer so a chunk's token budget always matches
// what the embedding model is actually charged for.
type Tokenizer interface {
	Count(s string) int
	Name() string
}

// WordTokenizer approximates a subword tokenizer by counting
// whitespace-delimited words, the same heuristic the static CPU
// embedder's own token counting uses. It is deterministic and needs no
// model download, at the cost of being an approximation of a real BPE
// tokenizer's count. Count is defined to equal len(wordsOf(s)) exactly,
// so the chunker can budget and slide its window on word slices and
// still be charging against the tokenizer the embedding engine uses.
type WordTokenizer struct{}

// NewWordTokenizer returns the default tokenizer.
func NewWordTokenizer() WordTokenizer { return WordTokenizer{} }

func (WordTokenizer) Name() string { return "word-approx" }

func (WordTokenizer) Count(s string) int {
	return len(wordsOf(s))
}

// wordsOf splits s into the same word units WordTokenizer counts, so the
// chunker can slide a window and re-join by word while staying in sync
// with the token budget it is charged against.
func wordsOf(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) })
}
