package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/edurag-go/internal/rag"
)

// fakeModel records the messages it was invoked with and returns a canned reply.
type fakeModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.received = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.received = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func (m *fakeModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// fakeRetriever returns a preset result regardless of the query.
type fakeRetriever struct {
	hits []rag.Hit
	err  error
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, _ int, _ ...rag.Filter) (*rag.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &rag.Result{Query: query, Hits: r.hits}, nil
}

func contextHit(id, title, content string, score float32) rag.Hit {
	return rag.Hit{Document: rag.Document{
		ID:      id,
		Content: content,
		Score:   score,
		Metadata: rag.Metadata{
			Title:      title,
			SourceType: rag.SourceYouTube,
			EntityID:   "vid1",
		},
	}}
}

func TestGenerate_GroundedAnswer(t *testing.T) {
	t.Parallel()

	m := &fakeModel{reply: "Photosynthesis converts light into chemical energy."}
	r := &fakeRetriever{hits: []rag.Hit{
		contextHit("vid1_chunk_0", "Biology basics", "Plants use photosynthesis.", 0.91),
		contextHit("vid1_chunk_1", "Biology basics", "Chlorophyll absorbs light.", 0.85),
	}}

	g, err := NewGenerator(m, r, 5)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	ans, err := g.Generate(context.Background(), "What is photosynthesis?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ans.Text != "Photosynthesis converts light into chemical energy." {
		t.Errorf("text: got %q", ans.Text)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources: want 2, got %d", len(ans.Sources))
	}
	if ans.Sources[0].Title != "Biology basics" || ans.Sources[0].Score != 0.91 {
		t.Errorf("source[0]: got %+v", ans.Sources[0])
	}

	// The model must have seen the system prompt, the context, and the question.
	if len(m.received) != 3 {
		t.Fatalf("messages: want 3, got %d", len(m.received))
	}
	if m.received[0].Role != schema.System {
		t.Errorf("message[0] role: got %s", m.received[0].Role)
	}
	if !strings.Contains(m.received[1].Content, "Plants use photosynthesis.") {
		t.Errorf("context message missing retrieved chunk: %q", m.received[1].Content)
	}
	if m.received[2].Content != "What is photosynthesis?" {
		t.Errorf("user message: got %q", m.received[2].Content)
	}
}

func TestGenerate_NoContextSkipsModel(t *testing.T) {
	t.Parallel()

	m := &fakeModel{reply: "should not be called"}
	g, err := NewGenerator(m, &fakeRetriever{}, 5)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	ans, err := g.Generate(context.Background(), "Anything about llamas?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ans.Text != noContextAnswer {
		t.Errorf("text: got %q", ans.Text)
	}
	if m.received != nil {
		t.Errorf("model was invoked despite empty retrieval")
	}
}

func TestGenerate_RetrievalErrorPropagates(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&fakeModel{}, &fakeRetriever{err: errors.New("index down")}, 5)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	if _, err := g.Generate(context.Background(), "question"); err == nil {
		t.Fatal("want error when retrieval fails")
	}
}

func TestGenerate_ModelErrorPropagates(t *testing.T) {
	t.Parallel()

	m := &fakeModel{err: errors.New("rate limited")}
	r := &fakeRetriever{hits: []rag.Hit{contextHit("c0", "t", "body", 0.8)}}
	g, err := NewGenerator(m, r, 5)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	if _, err := g.Generate(context.Background(), "question"); err == nil {
		t.Fatal("want error when generation fails")
	}
}

func TestNewGenerator_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(nil, &fakeRetriever{}, 5); err == nil {
		t.Error("want error for nil model")
	}
	if _, err := NewGenerator(&fakeModel{}, nil, 5); err == nil {
		t.Error("want error for nil retriever")
	}
}
