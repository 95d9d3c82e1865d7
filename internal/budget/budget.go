// Package budget provides token budget estimation and context trimming for
// grounded answer prompts. Because EduRAG supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/54b3r/edurag-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B, GPT-3.5)
	// while leaving room for the output.
	DefaultMaxContextTokens = 6000

	// perHitOverheadTokens covers the excerpt heading and separators wrapped
	// around each chunk when it is rendered into the prompt.
	perHitOverheadTokens = 12
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateHits returns the estimated token count of rendering the given
// retrieval hits into a prompt context block.
func EstimateHits(hits []rag.Hit) int {
	total := 0
	for _, h := range hits {
		total += perHitOverheadTokens
		total += Estimate(h.Metadata.Title)
		total += Estimate(h.Content)
	}
	return total
}

// TrimHits drops hits from the end of the slice until the estimated cost of
// reserved + hits fits within maxTokens. reserved is the token estimate of
// the prompt parts that must not be trimmed (system prompt and question).
// Hits arrive best-first from the retriever, so trimming from the end removes
// the least relevant context first.
//
// If even a single hit exceeds the budget, the empty slice is returned —
// callers fall back to their no-context behavior.
func TrimHits(hits []rag.Hit, reserved, maxTokens int) []rag.Hit {
	for len(hits) > 0 {
		if reserved+EstimateHits(hits) <= maxTokens {
			break
		}
		hits = hits[:len(hits)-1]
	}
	return hits
}
