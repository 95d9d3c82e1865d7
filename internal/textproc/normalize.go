// Package textproc provides the text preparation used by the ingestion
// pipeline: whitespace normalization of raw source text and recursive
// character chunking of the normalized result. Both operations are pure
// functions of their inputs.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

// newlineRun matches two or more consecutive newlines.
var newlineRun = regexp.MustCompile(`\n{2,}`)

// Normalize collapses excessive newlines in raw source text so it chunks as
// one logical stream.
//
// Rules:
//   - A run of two or more newlines becomes a single space.
//   - A lone newline directly between two word characters becomes a space
//     (transcripts frequently wrap mid-sentence).
//   - A lone newline adjacent to punctuation is preserved — it marks a
//     structural break, not a wrapped line.
//
// No other transformation (case, punctuation) is applied.
func Normalize(text string) string {
	collapsed := newlineRun.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(collapsed))

	runes := []rune(collapsed)
	for i, r := range runes {
		if r == '\n' && i > 0 && i < len(runes)-1 && isWord(runes[i-1]) && isWord(runes[i+1]) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isWord reports whether r is a word character (letter, digit, or underscore).
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
