// Package ingest implements the deduplicating ingestion pipeline: fetch raw
// source text, normalize it, chunk it, embed each chunk, skip chunks that
// already have a near-duplicate in the vector index, and insert the rest
// under monotonically increasing sequence IDs. One Adapter exists per
// content source; they all share the same Ingestor control skeleton.
package ingest

import (
	"context"

	"github.com/54b3r/edurag-go/internal/rag"
)

// Content is the raw material an Adapter fetches for one source.
type Content struct {
	// Text is the full raw text to normalize and chunk.
	Text string

	// Title is the human-readable source title stamped onto chunk metadata.
	Title string
}

// Adapter supplies the source-specific pieces of an ingestion run: reference
// resolution, content fetching, ID prefix construction, and metadata. The
// Ingestor owns everything else.
type Adapter interface {
	// SourceType returns the rag.Source* constant for this adapter.
	SourceType() string

	// Resolve turns a source reference (URL, file path, record ID) into the
	// canonical source identifier. An unresolvable reference is an input
	// error: the run stops before any fetch.
	Resolve(ref string) (string, error)

	// Fetch retrieves the raw content for a resolved identifier. A (nil,
	// nil) return means "legitimately no content" — transcript disabled,
	// metadata forbidden — which ends the run with a message, not an error.
	Fetch(ctx context.Context, id string) (*Content, error)

	// IDPrefix returns the chunk ID prefix for this source; sequence
	// numbers are appended directly to it.
	IDPrefix(id string) string

	// Metadata builds the metadata record for one chunk. ChunkIndex is set
	// by the caller.
	Metadata(id string, content *Content) rag.Metadata

	// Cleanup releases any resources acquired during the run (temp files).
	// The Ingestor always calls it, even after a failure.
	Cleanup() error
}
