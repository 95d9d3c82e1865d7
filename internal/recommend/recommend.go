// Package recommend post-processes retrieval hits into recommendation
// shapes: distinct per entity, grouped per entity, or merged across keyword
// runs. Every function is pure — none re-queries the index — and all assume
// the input is ordered by descending relevance, as the retriever returns it.
package recommend

import (
	"github.com/54b3r/edurag-go/internal/rag"
)

// Flat returns the raw hits unchanged. It exists so callers can select an
// aggregation policy uniformly.
func Flat(hits []rag.Hit) []rag.Hit {
	return hits
}

// DistinctByEntity keeps the first (highest-scoring) hit per entity ID and
// drops the rest. Hits without an entity ID cannot be attributed and are
// dropped silently.
func DistinctByEntity(hits []rag.Hit) []rag.Hit {
	seen := make(map[string]bool, len(hits))
	out := make([]rag.Hit, 0, len(hits))
	for _, h := range hits {
		key := h.Metadata.EntityID
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

// Group is one entity with its distinct chunks, in discovery order.
type Group struct {
	// EntityID identifies the parent entity.
	EntityID string `json:"entity_id"`

	// Title is the entity title, taken from the first chunk seen.
	Title string `json:"title"`

	// Chunks are the distinct member chunks.
	Chunks []rag.Hit `json:"chunks"`
}

// GroupByEntity first dedupes hits at (entity ID, chunk index) grain, then
// buckets the survivors under their entity, preserving discovery order of
// entities and of chunks within each entity. Hits without an entity ID are
// dropped.
func GroupByEntity(hits []rag.Hit) []Group {
	type chunkKey struct {
		entity string
		index  int
	}
	seenChunks := make(map[chunkKey]bool, len(hits))
	groupIdx := make(map[string]int, len(hits))

	var groups []Group
	for _, h := range hits {
		entity := h.Metadata.EntityID
		if entity == "" {
			continue
		}
		key := chunkKey{entity: entity, index: h.Metadata.ChunkIndex}
		if seenChunks[key] {
			continue
		}
		seenChunks[key] = true

		i, ok := groupIdx[entity]
		if !ok {
			i = len(groups)
			groupIdx[entity] = i
			groups = append(groups, Group{EntityID: entity, Title: h.Metadata.Title})
		}
		groups[i].Chunks = append(groups[i].Chunks, h)
	}
	return groups
}

// MergeKeywords collapses keyword fan-out hits to one hit per entity: the
// hit with the globally highest score across all keyword runs. Entities keep
// their first-discovery order; the winning hit retains its keyword tag.
func MergeKeywords(hits []rag.Hit) []rag.Hit {
	pos := make(map[string]int, len(hits))
	out := make([]rag.Hit, 0, len(hits))
	for _, h := range hits {
		key := h.Metadata.EntityID
		if key == "" {
			continue
		}
		if i, ok := pos[key]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		pos[key] = len(out)
		out = append(out, h)
	}
	return out
}
