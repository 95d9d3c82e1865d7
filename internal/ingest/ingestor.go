package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/textproc"
)

// DefaultSimilarityThreshold is the minimum similarity score at which an
// existing chunk counts as a duplicate of a new one. Near-duplicate
// re-phrasings across re-ingested sources are skipped; semantically close
// but distinct content below the threshold is inserted.
const DefaultSimilarityThreshold = 0.90

// Config holds the tunable parameters of the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to textproc.DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to textproc.DefaultChunkOverlap if zero.
	ChunkOverlap int

	// SimilarityThreshold is the duplicate-skip cutoff. Defaults to
	// DefaultSimilarityThreshold if zero.
	SimilarityThreshold float32
}

// Ingestor runs the shared deduplicating ingestion skeleton. The
// source-specific behavior comes from the Adapter passed to Run.
//
// One run is synchronous and single-threaded: chunks are processed in order
// because each dedup decision depends on the current index state. Concurrent
// runs against the same source prefix can collide on sequence numbers — the
// dispatching layer serializes runs per source key.
type Ingestor struct {
	// embedder converts chunk text into dense vectors.
	embedder rag.Embedder

	// store is the vector index being populated.
	store rag.VectorStore

	// chunker splits normalized text into overlapping chunks.
	chunker *textproc.Chunker

	// threshold is the resolved duplicate-skip cutoff.
	threshold float32
}

// NewIngestor constructs an Ingestor from its collaborators and config.
func NewIngestor(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Ingestor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	return &Ingestor{
		embedder:  embedder,
		store:     store,
		chunker:   textproc.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		threshold: threshold,
	}, nil
}

// Run executes one ingestion run for the given adapter and source reference.
// It always returns a Result — never an error and never a panic — so
// asynchronous callers can persist and inspect the outcome. Per-chunk
// embedding or insert failures are logged and skipped; unexpected failures
// around fetch, normalization, or sequence resolution land in Result.Error.
func (ing *Ingestor) Run(ctx context.Context, a Adapter, ref string) *Result {
	log := logging.FromContext(ctx).With("source_type", a.SourceType(), "source_ref", ref)
	start := time.Now()

	result := &Result{
		SourceType:  a.SourceType(),
		SourceRef:   ref,
		InsertedIDs: []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
			log.Error("ingestion run panicked", "panic", r)
		}
		if err := a.Cleanup(); err != nil {
			log.Warn("adapter cleanup failed", "error", err)
		}
		result.Elapsed = time.Since(start)
	}()

	id, err := a.Resolve(ref)
	if err != nil {
		result.Error = fmt.Sprintf("resolving source reference: %v", err)
		return result
	}
	result.SourceID = id
	log = log.With("source_id", id)

	content, err := a.Fetch(ctx, id)
	if err != nil {
		result.Error = fmt.Sprintf("fetching content: %v", err)
		return result
	}
	if content == nil {
		result.Message = fmt.Sprintf("no content available for %s %s", a.SourceType(), id)
		log.Info("no content available, nothing to ingest")
		return result
	}
	result.Title = content.Title

	chunks := ing.chunker.Split(textproc.Normalize(content.Text))
	result.TotalChunks = len(chunks)
	if len(chunks) == 0 {
		result.Message = fmt.Sprintf("no usable text content for %s %s", a.SourceType(), id)
		log.Info("fetched content produced no chunks")
		return result
	}

	prefix := a.IDPrefix(id)
	next, err := ing.nextSequence(ctx, prefix)
	if err != nil {
		result.Error = fmt.Sprintf("resolving next sequence for prefix %q: %v", prefix, err)
		return result
	}

	for i, chunk := range chunks {
		vectors, err := ing.embedder.Embed(ctx, []string{chunk})
		if err != nil || len(vectors) == 0 {
			log.Warn("embedding chunk failed, skipping", "chunk_index", i, "error", err)
			continue
		}
		vec := vectors[0]

		// k=1 nearest neighbor against the current index state. A search
		// failure is treated as "no neighbor found": the chunk is inserted
		// rather than silently dropped.
		neighbors, err := ing.store.Search(ctx, vec, 1)
		if err != nil {
			log.Warn("duplicate search failed, treating chunk as new", "chunk_index", i, "error", err)
		}
		if len(neighbors) > 0 && neighbors[0].Score >= ing.threshold {
			result.Skipped = append(result.Skipped, SkippedChunk{
				Index:       i,
				DuplicateOf: neighbors[0].ID,
				Score:       neighbors[0].Score,
			})
			result.SkippedCount++
			log.Debug("skipping duplicate chunk",
				"chunk_index", i, "duplicate_of", neighbors[0].ID, "score", neighbors[0].Score)
			continue
		}

		// The sequence number is consumed even if the insert below fails,
		// keeping allocated suffixes strictly increasing across runs.
		chunkID := prefix + strconv.Itoa(next)
		next++

		meta := a.Metadata(id, content)
		meta.ChunkIndex = i
		doc := rag.Document{
			ID:       chunkID,
			Content:  chunk,
			Metadata: meta,
		}

		if err := ing.store.Insert(ctx, []rag.Document{doc}, [][]float32{vec}); err != nil {
			log.Warn("inserting chunk failed, skipping", "chunk_id", chunkID, "error", err)
			continue
		}
		result.InsertedIDs = append(result.InsertedIDs, chunkID)
	}

	result.Message = fmt.Sprintf("ingested %d of %d chunks (%d duplicates)",
		len(result.InsertedIDs), result.TotalChunks, result.SkippedCount)
	log.Info("ingestion run complete",
		"total_chunks", result.TotalChunks,
		"inserted", len(result.InsertedIDs),
		"skipped", result.SkippedCount)
	return result
}

// nextSequence derives the next sequence number for an ID prefix: one past
// the maximum numeric suffix currently stored under it. Suffixes that do not
// parse as integers are ignored. A fresh prefix starts at 0.
func (ing *Ingestor) nextSequence(ctx context.Context, prefix string) (int, error) {
	ids, err := ing.store.IDsWithPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}

	max := -1
	for _, id := range ids {
		suffix := strings.TrimPrefix(id, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}
