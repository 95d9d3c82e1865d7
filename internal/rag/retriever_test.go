package rag

import (
	"context"
	"errors"
	"testing"
)

// stubEmbedder returns a fixed vector per known text and fails on unknown
// input, keeping retrieval tests deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, errors.New("unknown text")
		}
		out = append(out, v)
	}
	return out, nil
}

// failingStore returns a fixed error from every search.
type failingStore struct {
	MemoryStore
	err error
}

func (s *failingStore) SearchWithFilter(context.Context, []float32, int, []Filter) ([]Document, error) {
	return nil, s.err
}

func TestRetrieveEmptyQuery(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&stubEmbedder{}, NewMemoryStore(), 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := r.Retrieve(context.Background(), q, 5); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Retrieve(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestRetrieveReturnsHits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	docs := []Document{
		{ID: "v1_chunk_0", Content: "near", Metadata: Metadata{EntityID: "v1"}},
		{ID: "v2_chunk_0", Content: "far", Metadata: Metadata{EntityID: "v2"}},
	}
	if err := store.Insert(ctx, docs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	emb := &stubEmbedder{vectors: map[string][]float32{"question": {1, 0}}}
	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	res, err := r.Retrieve(ctx, "question", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Query != "question" {
		t.Errorf("Query = %q, want %q", res.Query, "question")
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "v1_chunk_0" {
		t.Fatalf("Hits = %+v, want single v1_chunk_0", res.Hits)
	}
	if res.Hits[0].MatchedKeyword != "" {
		t.Errorf("single-query hit tagged with keyword %q", res.Hits[0].MatchedKeyword)
	}
	if res.Elapsed < 0 {
		t.Errorf("Elapsed = %v, want >= 0", res.Elapsed)
	}
}

func TestRetrieveWrapsEmbeddingFailure(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{err: errors.New("backend down")}
	r, err := NewRetriever(emb, NewMemoryStore(), 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "question", 5)
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want EmbeddingError", err)
	}
}

func TestRetrieveWrapsIndexFailure(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vectors: map[string][]float32{"question": {1}}}
	store := &failingStore{err: errors.New("connection refused")}
	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "question", 5)
	var ie *IndexError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want IndexError", err)
	}
}

func TestRetrieveKeywordsTagsAndAccumulates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	docs := []Document{
		{ID: "e1_chunk_0", Metadata: Metadata{EntityID: "e1"}},
		{ID: "e2_chunk_0", Metadata: Metadata{EntityID: "e2"}},
	}
	if err := store.Insert(ctx, docs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	emb := &stubEmbedder{vectors: map[string][]float32{
		"reading": {1, 0},
		"math":    {0, 1},
	}}
	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	res, err := r.RetrieveKeywords(ctx, []string{"reading", "math"}, 1)
	if err != nil {
		t.Fatalf("RetrieveKeywords: %v", err)
	}
	if res.Query != "reading, math" {
		t.Errorf("Query = %q, want %q", res.Query, "reading, math")
	}
	if len(res.Hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(res.Hits))
	}
	if res.Hits[0].MatchedKeyword != "reading" || res.Hits[1].MatchedKeyword != "math" {
		t.Errorf("keyword tags = [%q, %q], want [reading, math]",
			res.Hits[0].MatchedKeyword, res.Hits[1].MatchedKeyword)
	}
	if res.Hits[0].ID != "e1_chunk_0" || res.Hits[1].ID != "e2_chunk_0" {
		t.Errorf("hit ids = [%s, %s], want [e1_chunk_0, e2_chunk_0]", res.Hits[0].ID, res.Hits[1].ID)
	}
}

func TestRetrieveKeywordsEmptyList(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&stubEmbedder{}, NewMemoryStore(), 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	if _, err := r.RetrieveKeywords(context.Background(), nil, 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestRetrieveKeywordsFailFast(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vectors: map[string][]float32{"known": {1}}}
	r, err := NewRetriever(emb, NewMemoryStore(), 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.RetrieveKeywords(context.Background(), []string{"known", "unknown"}, 5)
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want EmbeddingError", err)
	}
}
