package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a brute-force in-memory VectorStore using cosine similarity.
// It backs pipeline tests and local experimentation; it has no persistence.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []Document
	vecs [][]float32
}

// NewMemoryStore returns an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends documents and their embeddings. Documents with an ID already
// present are overwritten in place, matching upsert semantics.
func (s *MemoryStore) Insert(_ context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &IndexError{Op: "insert", Err: fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		if j := s.indexOf(doc.ID); j >= 0 {
			s.docs[j] = doc
			s.vecs[j] = embeddings[i]
			continue
		}
		s.docs = append(s.docs, doc)
		s.vecs = append(s.vecs, embeddings[i])
	}
	return nil
}

// indexOf returns the position of the document with the given ID, or -1.
// Caller must hold the lock.
func (s *MemoryStore) indexOf(id string) int {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return i
		}
	}
	return -1
}

// Search returns the topK most similar documents by cosine similarity.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, topK int) ([]Document, error) {
	return s.SearchWithFilter(ctx, vector, topK, nil)
}

// SearchWithFilter is Search restricted to documents matching every filter.
func (s *MemoryStore) SearchWithFilter(_ context.Context, vector []float32, topK int, filters []Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   Document
		score float32
	}
	var hits []scored
	for i, doc := range s.docs {
		if !matches(doc.Metadata, filters) {
			continue
		}
		hits = append(hits, scored{doc: doc, score: cosine(vector, s.vecs[i])})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		h.doc.Score = h.score
		docs = append(docs, h.doc)
	}
	return docs, nil
}

// IDsWithPrefix returns all stored IDs starting with prefix.
func (s *MemoryStore) IDsWithPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, doc := range s.docs {
		if strings.HasPrefix(doc.ID, prefix) {
			ids = append(ids, doc.ID)
		}
	}
	return ids, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	docs := s.docs[:0]
	vecs := s.vecs[:0]
	for i, doc := range s.docs {
		if drop[doc.ID] {
			continue
		}
		docs = append(docs, doc)
		vecs = append(vecs, s.vecs[i])
	}
	s.docs = docs
	s.vecs = vecs
	return nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// matches reports whether metadata satisfies every filter.
func matches(m Metadata, filters []Filter) bool {
	for _, f := range filters {
		v, ok := m.lookup(f.Key)
		if !ok {
			return false
		}
		found := false
		for _, want := range f.Any {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// cosine computes the cosine similarity between two vectors. Mismatched
// lengths compare over the shorter span; zero vectors score zero.
func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
