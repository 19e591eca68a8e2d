// Package retrieval ranks a team's decisions against a free-text query and
// selects a token-bounded subset for grounding a downstream generation call.
package retrieval

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen drops short tokens that carry no retrieval signal.
const minTokenLen = 3

// stopWords is the fixed English stop-word list shared by indexing and
// query tokenization.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "been": true, "were": true, "they": true,
	"their": true, "them": true, "this": true, "that": true, "with": true,
	"from": true, "will": true, "would": true, "there": true, "what": true,
	"about": true, "which": true, "when": true, "make": true, "like": true,
	"time": true, "just": true, "into": true, "your": true, "some": true,
	"could": true, "than": true, "then": true, "other": true, "these": true,
	"also": true, "should": true, "because": true, "does": true, "very": true,
}

// foldDiacritics strips combining marks so "décision" and "decision"
// tokenize identically.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tokenize lower-cases the text, folds diacritics, splits on
// non-alphanumeric runs, and drops short tokens and stop words.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	folded, _, err := transform.String(foldDiacritics, text)
	if err != nil {
		// Folding is best-effort; fall back to the raw text.
		folded = text
	}
	lower := strings.ToLower(folded)

	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLen || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
