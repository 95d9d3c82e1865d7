package rag

import (
	"context"
	"strings"
	"time"
)

// Hit is one retrieval result. MatchedKeyword is set only in keyword fan-out
// mode, recording which keyword query produced the hit.
type Hit struct {
	Document

	// MatchedKeyword is the keyword whose search returned this hit; empty
	// in single-query mode.
	MatchedKeyword string
}

// Result is the outcome of one retrieval: the hits in descending score order
// and the time the backend spent producing them. In keyword fan-out mode
// Elapsed is the sum of per-keyword search times, not the wall clock of the
// batch, so callers see aggregate backend load.
type Result struct {
	// Query is the query text, or the comma-joined keyword list in fan-out
	// mode.
	Query string

	// Hits are the raw results, ordered as the index returned them.
	Hits []Hit

	// Elapsed is the total time spent embedding and searching.
	Elapsed time.Duration
}

// DefaultRetriever embeds queries and delegates similarity search to a
// VectorStore. Safe for concurrent use when its collaborators are.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and
// VectorStore. defaultTopK sets the fallback result count when Retrieve is
// called with topK=0.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, &EmbeddingError{Err: errNilEmbedder}
	}
	if store == nil {
		return nil, &IndexError{Op: "init", Err: errNilStore}
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and runs one filtered top-k search. A blank
// query returns ErrEmptyQuery before any backend call. Failures surface as a
// single wrapped error; no partial results are returned.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int, filters ...Filter) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	start := time.Now()

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(embeddings) == 0 {
		return nil, &EmbeddingError{Err: errEmptyEmbedding}
	}

	docs, err := r.store.SearchWithFilter(ctx, embeddings[0], topK, filters)
	if err != nil {
		return nil, wrapIndexErr(err)
	}

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, Hit{Document: doc})
	}

	return &Result{
		Query:   query,
		Hits:    hits,
		Elapsed: time.Since(start),
	}, nil
}

// RetrieveKeywords runs Retrieve once per keyword, tags each hit with the
// keyword that produced it, and concatenates the hit lists in keyword order.
// Elapsed accumulates across keywords. Any single keyword failure fails the
// whole batch.
func (r *DefaultRetriever) RetrieveKeywords(ctx context.Context, keywords []string, topK int, filters ...Filter) (*Result, error) {
	if len(keywords) == 0 {
		return nil, ErrEmptyQuery
	}

	merged := &Result{Query: strings.Join(keywords, ", ")}
	for _, kw := range keywords {
		res, err := r.Retrieve(ctx, kw, topK, filters...)
		if err != nil {
			return nil, err
		}
		for _, h := range res.Hits {
			h.MatchedKeyword = kw
			merged.Hits = append(merged.Hits, h)
		}
		merged.Elapsed += res.Elapsed
	}

	return merged, nil
}
