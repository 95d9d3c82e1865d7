package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/edurag-go/internal/answer"
	"github.com/54b3r/edurag-go/internal/ingest"
	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/recommend"
	"github.com/54b3r/edurag-go/internal/runs"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full ingestion run, which can take minutes for long videos.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metric registrations.
	// If nil, prometheus.DefaultRegisterer is used.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. If nil, prometheus.DefaultGatherer
	// is used.
	MetricsGatherer prometheus.Gatherer
	// UploadDir receives uploaded document files before ingestion. Defaults
	// to os.TempDir().
	UploadDir string
	// OrgID tags ingested content with the owning organisation.
	OrgID string
	// OrgAppName tags ingested content with the originating application.
	OrgAppName string
}

// ingestRunner runs one ingestion pipeline pass. *ingest.Ingestor satisfies
// it; tests inject a fake.
type ingestRunner interface {
	Run(ctx context.Context, a ingest.Adapter, ref string) *ingest.Result
}

// retrieverAPI is the retrieval surface the query handlers call.
type retrieverAPI interface {
	Retrieve(ctx context.Context, query string, topK int, filters ...rag.Filter) (*rag.Result, error)
	RetrieveKeywords(ctx context.Context, keywords []string, topK int, filters ...rag.Filter) (*rag.Result, error)
}

// generatorAPI is the grounded answer surface handleAsk calls.
type generatorAPI interface {
	Generate(ctx context.Context, question string, filters ...rag.Filter) (*answer.Answer, error)
}

// runHistory is the subset of runs.Store the server uses.
type runHistory interface {
	Record(ctx context.Context, res *ingest.Result) error
	Recent(ctx context.Context, sourceType string, n int) ([]runs.Record, error)
}

// Deps carries the domain dependencies the server handlers delegate to.
// Generator, Runs, YouTube, and Boclips are optional; the corresponding
// endpoints return 503 when absent.
type Deps struct {
	// Ingestor runs the deduplicating ingestion pipeline.
	Ingestor ingestRunner
	// Retriever serves /api/retrieve and /api/recommend.
	Retriever retrieverAPI
	// Generator serves /api/ask.
	Generator generatorAPI
	// Runs persists and lists ingestion run history.
	Runs runHistory
	// YouTube fetches video transcripts and titles.
	YouTube ingest.VideoFetcher
	// Boclips fetches Boclips video metadata and transcripts.
	Boclips ingest.BoclipsAPI
}

// Server is the HTTP server exposing the ingestion and retrieval API.
type Server struct {
	// cfg holds the resolved server configuration.
	cfg *Config
	// deps holds the domain dependencies.
	deps *Deps
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// sources serialises ingestion per source key so sequence allocation for
	// one prefix never races with itself.
	sources keyedMutex
}

// keyedMutex provides one mutex per string key. Zero value is ready to use.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key, creating it on first use, and returns the
// unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ingestURLRequest is the JSON body for POST /api/ingest/youtube and
// POST /api/ingest/boclips.
type ingestURLRequest struct {
	// URL is the video URL or bare identifier to ingest.
	URL string `json:"url"`
}

// retrieveRequest is the JSON body for POST /api/retrieve.
type retrieveRequest struct {
	// Query is the free-text query. Mutually exclusive with Keywords.
	Query string `json:"query,omitempty"`
	// Keywords triggers fan-out mode: one search per keyword, results merged.
	Keywords []string `json:"keywords,omitempty"`
	// TopK bounds the number of hits (per keyword in fan-out mode).
	TopK int `json:"top_k,omitempty"`
	// Filters narrows the search by payload key (value lists are OR-ed,
	// keys are AND-ed).
	Filters map[string][]string `json:"filters,omitempty"`
}

// recommendRequest is the JSON body for POST /api/recommend.
type recommendRequest struct {
	// Keywords is the list of interest keywords to fan out over.
	Keywords []string `json:"keywords"`
	// TopK bounds the number of hits per keyword.
	TopK int `json:"top_k,omitempty"`
	// Mode selects the post-processing: "flat", "distinct", "grouped", or
	// "merged" (default: "merged").
	Mode string `json:"mode,omitempty"`
	// Filters narrows the search by payload key.
	Filters map[string][]string `json:"filters,omitempty"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural-language question to answer.
	Question string `json:"question"`
	// Filters narrows the grounding retrieval by payload key.
	Filters map[string][]string `json:"filters,omitempty"`
}

// hitDTO is the wire form of one retrieved chunk.
type hitDTO struct {
	ID             string  `json:"id"`
	Content        string  `json:"content"`
	Title          string  `json:"title,omitempty"`
	SourceType     string  `json:"source_type,omitempty"`
	SourceRef      string  `json:"source_ref,omitempty"`
	EntityID       string  `json:"entity_id,omitempty"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float32 `json:"score"`
	MatchedKeyword string  `json:"matched_keyword,omitempty"`
}

// groupDTO is the wire form of one entity group.
type groupDTO struct {
	EntityID string   `json:"entity_id"`
	Title    string   `json:"title,omitempty"`
	Chunks   []hitDTO `json:"chunks"`
}

// retrieveResponse is the JSON response for POST /api/retrieve and the flat
// and distinct modes of POST /api/recommend.
type retrieveResponse struct {
	Query     string   `json:"query"`
	Hits      []hitDTO `json:"hits"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// groupedResponse is the JSON response for the grouped mode of
// POST /api/recommend.
type groupedResponse struct {
	Query     string     `json:"query"`
	Groups    []groupDTO `json:"groups"`
	ElapsedMS int64      `json:"elapsed_ms"`
}

// newHitDTO converts a retrieval hit to its wire form.
func newHitDTO(h rag.Hit) hitDTO {
	return hitDTO{
		ID:             h.ID,
		Content:        h.Content,
		Title:          h.Metadata.Title,
		SourceType:     h.Metadata.SourceType,
		SourceRef:      h.Metadata.SourceRef,
		EntityID:       h.Metadata.EntityID,
		ChunkIndex:     h.Metadata.ChunkIndex,
		Score:          h.Score,
		MatchedKeyword: h.MatchedKeyword,
	}
}

// newHitDTOs converts a slice of hits to wire form, never returning nil so
// the JSON field encodes as [] rather than null.
func newHitDTOs(hits []rag.Hit) []hitDTO {
	out := make([]hitDTO, 0, len(hits))
	for _, h := range hits {
		out = append(out, newHitDTO(h))
	}
	return out
}

// newGroupDTOs converts entity groups to wire form.
func newGroupDTOs(groups []recommend.Group) []groupDTO {
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupDTO{
			EntityID: g.EntityID,
			Title:    g.Title,
			Chunks:   newHitDTOs(g.Chunks),
		})
	}
	return out
}

// parseFilters converts the wire filter map to rag filters, skipping empty
// value lists.
func parseFilters(m map[string][]string) []rag.Filter {
	if len(m) == 0 {
		return nil
	}
	out := make([]rag.Filter, 0, len(m))
	for key, values := range m {
		if len(values) == 0 {
			continue
		}
		out = append(out, rag.Filter{Key: key, Any: values})
	}
	return out
}
