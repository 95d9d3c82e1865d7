// Package answer composes retrieved curriculum chunks into a grounded prompt
// and generates a natural-language answer with the configured chat model.
// Answers cite the sources they were built from so educators can verify them.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/edurag-go/internal/budget"
	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/rag"
)

// systemPrompt frames the model as a curriculum assistant that answers only
// from the supplied context.
const systemPrompt = `You are an assistant for an education platform. Answer the
user's question using ONLY the curriculum excerpts provided in the context
message. If the context does not contain the answer, say so plainly — do not
invent facts. Keep answers concise and suitable for educators.`

// noContextAnswer is returned when retrieval finds nothing relevant.
const noContextAnswer = "I could not find any relevant content in the library for that question."

// Retriever is the subset of the retrieval API the generator needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, filters ...rag.Filter) (*rag.Result, error)
}

// Source identifies one retrieved chunk that grounded the answer.
type Source struct {
	// Title is the source title, when known.
	Title string `json:"title,omitempty"`
	// SourceType is the origin of the chunk (youtube, boclips, ...).
	SourceType string `json:"source_type,omitempty"`
	// EntityID is the upstream entity the chunk belongs to.
	EntityID string `json:"entity_id,omitempty"`
	// Score is the retrieval similarity score.
	Score float32 `json:"score"`
}

// Answer is the result of one grounded generation.
type Answer struct {
	// Question is the question that was asked.
	Question string `json:"question"`
	// Text is the generated answer.
	Text string `json:"text"`
	// Sources lists the chunks the answer was grounded on, best first.
	Sources []Source `json:"sources,omitempty"`
	// Elapsed is the total wall-clock time including retrieval.
	Elapsed time.Duration `json:"elapsed"`
}

// Generator retrieves context for a question and generates a grounded answer.
type Generator struct {
	model     model.ToolCallingChatModel
	retriever Retriever
	topK      int
}

// NewGenerator constructs a Generator. topK bounds the number of chunks
// injected into the prompt; values < 1 fall back to 5.
func NewGenerator(m model.ToolCallingChatModel, r Retriever, topK int) (*Generator, error) {
	if m == nil {
		return nil, fmt.Errorf("answer: nil chat model")
	}
	if r == nil {
		return nil, fmt.Errorf("answer: nil retriever")
	}
	if topK < 1 {
		topK = 5
	}
	return &Generator{model: m, retriever: r, topK: topK}, nil
}

// Generate answers the question from retrieved context. Filters narrow the
// retrieval the same way they do for plain search.
func (g *Generator) Generate(ctx context.Context, question string, filters ...rag.Filter) (*Answer, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	res, err := g.retriever.Retrieve(ctx, question, g.topK, filters...)
	if err != nil {
		return nil, fmt.Errorf("answer: retrieval failed: %w", err)
	}

	// Fit the context into the model's input budget: the least relevant
	// chunks are dropped first.
	reserved := budget.Estimate(systemPrompt) + budget.Estimate(question)
	hits := budget.TrimHits(res.Hits, reserved, budget.DefaultMaxContextTokens)
	if trimmed := len(res.Hits) - len(hits); trimmed > 0 {
		log.Debug("answer: context trimmed to fit token budget", slog.Int("dropped", trimmed))
	}

	ans := &Answer{Question: question}
	if len(hits) == 0 {
		ans.Text = noContextAnswer
		ans.Elapsed = time.Since(start)
		return ans, nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.SystemMessage(buildContext(hits)),
		schema.UserMessage(question),
	}

	msg, err := g.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("answer: generation failed: %w", err)
	}

	ans.Text = strings.TrimSpace(msg.Content)
	for _, h := range hits {
		ans.Sources = append(ans.Sources, Source{
			Title:      h.Metadata.Title,
			SourceType: h.Metadata.SourceType,
			EntityID:   h.Metadata.EntityID,
			Score:      h.Score,
		})
	}
	ans.Elapsed = time.Since(start)

	log.Debug("answer: generated",
		slog.Int("sources", len(ans.Sources)),
		slog.Duration("elapsed", ans.Elapsed),
	)
	return ans, nil
}

// buildContext formats retrieved chunks into a system message the model can
// ground its answer on.
func buildContext(hits []rag.Hit) string {
	var sb strings.Builder
	sb.WriteString("## Curriculum Context\n\n" +
		"The following excerpts were retrieved from the content library. " +
		"Use them to answer the user's question.\n\n")
	for i, h := range hits {
		title := h.Metadata.Title
		if title == "" {
			title = h.ID
		}
		fmt.Fprintf(&sb, "### Excerpt %d: %s\n%s\n\n", i+1, title, h.Content)
	}
	return sb.String()
}
