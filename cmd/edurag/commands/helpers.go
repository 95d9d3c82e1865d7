package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/edurag-go/internal/embedder"
	"github.com/54b3r/edurag-go/internal/ingest"
	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/runs"
)

// getEnvOrDefault returns the env var value, or def when unset or empty.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the env var parsed as an int, or def when unset or
// unparsable.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvFloat32 returns the env var parsed as a float32, or def when unset
// or unparsable.
func getEnvFloat32(key string, def float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(f)
}

// orgIdentity returns the tenant tag and application name stamped onto
// ingested chunk metadata. Both are optional.
func orgIdentity() (orgID, orgAppName string) {
	return os.Getenv("EDURAG_ORG_ID"), os.Getenv("EDURAG_ORG_APP_NAME")
}

// buildEmbedder validates the embedding configuration and constructs the
// embedding backend from the environment.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	return emb, nil
}

// buildStore connects to Qdrant using the QDRANT_* environment variables and
// ensures the collection exists.
func buildStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "edurag-chunks")
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
	vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
	return store, nil
}

// buildIngestor constructs the deduplicating ingestion pipeline with chunking
// parameters taken from the INGEST_* environment variables.
func buildIngestor(emb rag.Embedder, store rag.VectorStore) (*ingest.Ingestor, error) {
	ing, err := ingest.NewIngestor(emb, store, &ingest.Config{
		ChunkSize:           getEnvInt("INGEST_CHUNK_SIZE", 0),
		ChunkOverlap:        getEnvInt("INGEST_CHUNK_OVERLAP", 0),
		SimilarityThreshold: getEnvFloat32("INGEST_SIMILARITY_THRESHOLD", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}
	return ing, nil
}

// buildRetriever constructs the retriever over the given embedder and store.
func buildRetriever(emb rag.Embedder, store rag.VectorStore, topK int) (*rag.DefaultRetriever, error) {
	r, err := rag.NewRetriever(emb, store, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}
	return r, nil
}

// openRunStore opens the ingestion run history database. EDURAG_RUNS_DB
// overrides the default path (~/.edurag/runs.db); set it to "disabled" to
// skip run recording. A nil return with nil error means history is off —
// failures to open are downgraded to a warning because history is never
// worth failing an ingestion for.
func openRunStore(log *slog.Logger) runs.Store {
	path := os.Getenv("EDURAG_RUNS_DB")
	if path == "disabled" {
		log.Info("runs: history disabled via EDURAG_RUNS_DB=disabled")
		return nil
	}
	if path == "" {
		var err error
		path, err = runs.DefaultDBPath()
		if err != nil {
			log.Warn("runs: could not resolve default DB path, disabling history", slog.Any("error", err))
			return nil
		}
	}
	store, err := runs.Open(path)
	if err != nil {
		log.Warn("runs: failed to open store, disabling history", slog.Any("error", err))
		return nil
	}
	log.Info("runs: store opened", slog.String("path", path))
	return store
}

// recordRun persists a run summary when history is enabled.
func recordRun(ctx context.Context, store runs.Store, res *ingest.Result, log *slog.Logger) {
	if store == nil {
		return
	}
	if err := store.Record(ctx, res); err != nil {
		log.Warn("runs: failed to record run", slog.Any("error", err))
	}
}

// parseFilterFlags converts repeated key=value flag values into retrieval
// filters. Repeated keys accumulate into one multi-value filter.
func parseFilterFlags(kvs []string) ([]rag.Filter, error) {
	byKey := make(map[string][]string, len(kvs))
	order := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("invalid --filter %q: expected key=value", kv)
		}
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], v)
	}
	filters := make([]rag.Filter, 0, len(order))
	for _, k := range order {
		filters = append(filters, rag.Filter{Key: k, Any: byKey[k]})
	}
	return filters, nil
}
