package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointIDNamespace is the fixed UUIDv5 namespace for deriving Qdrant point
// IDs from logical chunk IDs. Qdrant only accepts UUID or integer point IDs,
// so the logical ID ("abc_chunk_3") is hashed deterministically and kept in
// the payload for round-tripping.
var pointIDNamespace = uuid.MustParse("8f1c62de-9a4b-4f0e-b6a1-3a7c45d90e12")

// Payload keys internal to the Qdrant store.
const (
	payloadContent    = "content"
	payloadChunkID    = "chunk_id"
	payloadIDPrefix   = "id_prefix"
	payloadChunkIndex = "chunk_index"
)

// scrollPageSize bounds a prefix ID lookup. A single source yields at most a
// few hundred chunks, so one page is sufficient in practice.
const scrollPageSize = 10000

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// pointID derives the deterministic Qdrant point ID for a logical chunk ID.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointIDNamespace, []byte(chunkID)).String())
}

// idPrefix strips the trailing run of digits from a logical chunk ID, giving
// the prefix under which sequence numbers are allocated.
func idPrefix(chunkID string) string {
	end := len(chunkID)
	for end > 0 && chunkID[end-1] >= '0' && chunkID[end-1] <= '9' {
		end--
	}
	return chunkID[:end]
}

// payload flattens a Document into the Qdrant payload map.
func payload(doc Document) map[string]any {
	p := map[string]any{
		payloadContent:    doc.Content,
		payloadChunkID:    doc.ID,
		payloadIDPrefix:   idPrefix(doc.ID),
		payloadChunkIndex: doc.Metadata.ChunkIndex,
		KeyTitle:          doc.Metadata.Title,
		KeySourceType:     doc.Metadata.SourceType,
		KeySourceRef:      doc.Metadata.SourceRef,
		KeyEntityID:       doc.Metadata.EntityID,
	}
	if doc.Metadata.OrgID != "" {
		p[KeyOrgID] = doc.Metadata.OrgID
	}
	for k, v := range doc.Metadata.Extra {
		p[k] = v
	}
	return p
}

// documentFromPayload reverses payload, rebuilding a Document from a stored
// point's payload map.
func documentFromPayload(p map[string]*qdrant.Value) Document {
	doc := Document{Metadata: Metadata{Extra: make(map[string]string)}}
	for k, v := range p {
		switch k {
		case payloadContent:
			doc.Content = v.GetStringValue()
		case payloadChunkID:
			doc.ID = v.GetStringValue()
		case payloadChunkIndex:
			doc.Metadata.ChunkIndex = int(v.GetIntegerValue())
		case payloadIDPrefix:
			// Derivable from chunk_id; not surfaced on the Document.
		case KeyTitle:
			doc.Metadata.Title = v.GetStringValue()
		case KeySourceType:
			doc.Metadata.SourceType = v.GetStringValue()
		case KeySourceRef:
			doc.Metadata.SourceRef = v.GetStringValue()
		case KeyEntityID:
			doc.Metadata.EntityID = v.GetStringValue()
		case KeyOrgID:
			doc.Metadata.OrgID = v.GetStringValue()
		default:
			doc.Metadata.Extra[k] = v.GetStringValue()
		}
	}
	return doc
}

// qdrantFilter converts the store-agnostic filters into a Qdrant must-filter.
func qdrantFilter(filters []Filter) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filters))
	for _, f := range filters {
		must = append(must, qdrant.NewMatchKeywords(f.Key, f.Any...))
	}
	return &qdrant.Filter{Must: must}
}

// Insert stores a batch of documents with their embeddings. The embeddings
// slice must be parallel to docs.
func (s *QdrantStore) Insert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &IndexError{Op: "insert", Err: fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))}
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload(doc)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return &IndexError{Op: "insert", Err: err}
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]Document, error) {
	return s.SearchWithFilter(ctx, vector, topK, nil)
}

// SearchWithFilter performs a cosine similarity search restricted to points
// whose payload matches every given filter.
func (s *QdrantStore) SearchWithFilter(ctx context.Context, vector []float32, topK int, filters []Filter) ([]Document, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         qdrantFilter(filters),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := documentFromPayload(r.Payload)
		doc.Score = r.Score
		docs = append(docs, doc)
	}

	return docs, nil
}

// IDsWithPrefix returns the logical chunk IDs stored under the given ID
// prefix, via a payload-filtered scroll.
func (s *QdrantStore) IDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.Collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword(payloadIDPrefix, prefix)},
		},
		Limit:       qdrant.PtrOf(uint32(scrollPageSize)),
		WithPayload: qdrant.NewWithPayloadInclude(payloadChunkID),
	})
	if err != nil {
		return nil, &IndexError{Op: "scroll", Err: err}
	}

	ids := make([]string, 0, len(points))
	for _, p := range points {
		if v, ok := p.Payload[payloadChunkID]; ok {
			if id := v.GetStringValue(); strings.HasPrefix(id, prefix) {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

// Delete removes documents from the collection by their logical IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return &IndexError{Op: "delete", Err: err}
	}

	return nil
}

// HealthCheck probes the Qdrant instance. Used by the server readiness probe.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Client exposes the underlying Qdrant client for readiness pingers.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
