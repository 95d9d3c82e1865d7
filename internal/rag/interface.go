// Package rag defines the retrieval-augmented-generation building blocks:
// vector storage, embedding, and query retrieval. Concrete backends
// (Qdrant, the in-memory test store) satisfy these interfaces so the
// ingestion and recommendation layers never depend on a specific backend.
package rag

import (
	"context"
)

// Source type values stamped onto chunk metadata by the ingestion variants.
const (
	SourceYouTube  = "youtube"
	SourceBoclips  = "boclips"
	SourceDocument = "document"
	SourceGrant    = "grant_opportunity"
)

// Document represents one stored or retrieved chunk of source content.
type Document struct {
	// ID is the logical chunk identifier, e.g. "dQw4w9WgXcQ_chunk_3" or
	// "GRANT-123-0". Prefix plus sequence number; see ingest for allocation.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata carries the typed fields every consumer relies on plus an
	// open extension map for source-specific extras.
	Metadata Metadata

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Metadata is the typed chunk metadata record. Required fields are explicit;
// anything source-specific (doc_type, grant_id, funder_id, …) goes in Extra.
type Metadata struct {
	// Title is the human-readable title of the source the chunk came from.
	Title string

	// SourceType is one of the Source* constants.
	SourceType string

	// SourceRef points back to the original source: URL, file name, or
	// record identifier.
	SourceRef string

	// EntityID identifies the parent entity of the chunk (video id,
	// document id, grant id). Grouping and distinct-dedup key on it.
	EntityID string

	// ChunkIndex is the position of the chunk within its ingestion run.
	ChunkIndex int

	// OrgID is the tenant tag stamped by ingestion; empty for untenanted
	// sources.
	OrgID string

	// Extra holds source-specific metadata keys that retrieval filters may
	// address by name.
	Extra map[string]string
}

// Payload keys under which the typed Metadata fields are stored. Filters
// address them by these names; Extra keys pass through under their own names.
const (
	KeyTitle      = "title"
	KeySourceType = "source_type"
	KeySourceRef  = "source_ref"
	KeyEntityID   = "entity_id"
	KeyOrgID      = "org_id"
)

// lookup returns the metadata value for a payload key, consulting the typed
// fields first and Extra second. ChunkIndex is numeric and not addressable
// through string filters.
func (m Metadata) lookup(key string) (string, bool) {
	switch key {
	case KeyTitle:
		return m.Title, true
	case KeySourceType:
		return m.SourceType, true
	case KeySourceRef:
		return m.SourceRef, true
	case KeyEntityID:
		return m.EntityID, true
	case KeyOrgID:
		return m.OrgID, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Filter constrains a search to documents whose metadata key matches any of
// the given values. Multiple filters are ANDed together.
type Filter struct {
	// Key is the payload key to match: "source_type", "entity_id",
	// "funder_id", or any Extra key.
	Key string

	// Any lists the accepted values; a document matches if its value for
	// Key equals any of them.
	Any []string
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Insert stores a batch of documents with their pre-computed embeddings.
	// The embeddings slice is parallel to docs — embeddings[i] is the vector
	// for docs[i].
	Insert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the topK most similar documents for the query vector,
	// ordered by descending score.
	Search(ctx context.Context, vector []float32, topK int) ([]Document, error)

	// SearchWithFilter is Search restricted to documents matching every
	// given filter.
	SearchWithFilter(ctx context.Context, vector []float32, topK int, filters []Filter) ([]Document, error)

	// IDsWithPrefix returns the logical IDs of all stored documents whose
	// ID starts with prefix. Used for sequence-number allocation.
	IDsWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// Delete removes documents by their logical IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
