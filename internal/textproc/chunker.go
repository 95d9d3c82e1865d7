package textproc

import (
	"strings"
)

// Default chunking parameters. A 1000-character window with 100 characters
// of overlap keeps each chunk inside typical embedding-model context while
// preserving continuity across chunk boundaries.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// separators lists the split points the chunker prefers, in order: paragraph
// breaks, line breaks, sentence-ending punctuation, then plain whitespace.
// A hard character cut is the fallback when none of these occur inside the
// window.
var separators = []string{"\n\n", "\n", ".", "!", "?", " "}

// Chunker splits normalized text into overlapping chunks of at most
// chunkSize characters, preferring semantic boundaries over hard cuts.
// It is deterministic: the same input and parameters always produce the
// same chunk sequence.
type Chunker struct {
	// chunkSize is the maximum number of characters per chunk.
	chunkSize int
	// chunkOverlap is the number of characters shared between consecutive chunks.
	chunkOverlap int
}

// NewChunker constructs a Chunker, applying defaults for non-positive sizes
// and clamping the overlap below the chunk size.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split breaks text into an ordered sequence of chunks. Empty or
// whitespace-only input yields a nil slice — the caller treats that as
// "no usable content", not an error.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := c.split(text, separators)
	return c.merge(pieces)
}

// split recursively divides text into pieces no longer than chunkSize,
// trying each separator in preference order and falling back to a hard cut
// when none is present.
func (c *Chunker) split(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	sep := ""
	rest := seps
	for i, s := range seps {
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardCut(text)
	}

	var out []string
	for _, part := range splitAfter(text, sep) {
		if len(part) <= c.chunkSize {
			out = append(out, part)
			continue
		}
		out = append(out, c.split(part, rest)...)
	}
	return out
}

// hardCut slices text into chunkSize windows stepping by
// chunkSize-chunkOverlap. Used only when no separator exists in the window.
func (c *Chunker) hardCut(text string) []string {
	step := c.chunkSize - c.chunkOverlap
	var out []string
	for start := 0; start < len(text); start += step {
		end := min(start+c.chunkSize, len(text))
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
	}
	return out
}

// merge greedily packs pieces into chunks of at most chunkSize characters,
// carrying up to chunkOverlap trailing characters of each emitted chunk
// into the next one.
func (c *Chunker) merge(pieces []string) []string {
	var (
		chunks []string
		window []string
		winLen int
	)

	flush := func() {
		if winLen == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(window, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, p := range pieces {
		if winLen+len(p) > c.chunkSize && winLen > 0 {
			flush()
			// Retain trailing pieces as overlap for the next chunk.
			for winLen > c.chunkOverlap || (winLen+len(p) > c.chunkSize && winLen > 0) {
				winLen -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		winLen += len(p)
	}
	flush()

	return chunks
}

// splitAfter splits text on sep, keeping the separator attached to the
// preceding piece so no characters are lost when pieces are rejoined.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
