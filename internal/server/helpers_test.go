package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/edurag-go/internal/answer"
	"github.com/54b3r/edurag-go/internal/ingest"
	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/runs"
)

// fakeIngestor is a test double for ingestRunner. It records the adapter and
// ref it was invoked with and returns a canned result.
type fakeIngestor struct {
	// result is returned from Run; if nil a minimal success result is built.
	result *ingest.Result
	// gotSourceType and gotRef record the last invocation.
	gotSourceType string
	gotRef        string
	// calls counts invocations.
	calls int
}

func (f *fakeIngestor) Run(_ context.Context, a ingest.Adapter, ref string) *ingest.Result {
	f.calls++
	f.gotSourceType = a.SourceType()
	f.gotRef = ref
	// Adapters own temp-file cleanup; honour the contract so upload tests
	// can assert deletion.
	defer a.Cleanup()
	if f.result != nil {
		return f.result
	}
	return &ingest.Result{
		SourceType:  a.SourceType(),
		SourceRef:   ref,
		TotalChunks: 1,
		InsertedIDs: []string{"x_chunk_0"},
		Elapsed:     time.Millisecond,
	}
}

// fakeServerRetriever is a test double for retrieverAPI.
type fakeServerRetriever struct {
	res         *rag.Result
	err         error
	gotQuery    string
	gotKeywords []string
	gotTopK     int
	gotFilters  []rag.Filter
}

func (f *fakeServerRetriever) Retrieve(_ context.Context, query string, topK int, filters ...rag.Filter) (*rag.Result, error) {
	f.gotQuery = query
	f.gotTopK = topK
	f.gotFilters = filters
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeServerRetriever) RetrieveKeywords(_ context.Context, keywords []string, topK int, filters ...rag.Filter) (*rag.Result, error) {
	f.gotKeywords = keywords
	f.gotTopK = topK
	f.gotFilters = filters
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

// fakeGenerator is a test double for generatorAPI.
type fakeGenerator struct {
	ans *answer.Answer
	err error
}

func (f *fakeGenerator) Generate(_ context.Context, question string, _ ...rag.Filter) (*answer.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.ans != nil {
		return f.ans, nil
	}
	return &answer.Answer{Question: question, Text: "answer"}, nil
}

// fakeRunHistory is an in-memory test double for runHistory.
type fakeRunHistory struct {
	records []runs.Record
	// recordErr forces Record to fail.
	recordErr error
}

func (f *fakeRunHistory) Record(_ context.Context, res *ingest.Result) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, runs.Record{
		SourceType: res.SourceType,
		SourceRef:  res.SourceRef,
		SourceID:   res.SourceID,
		Inserted:   len(res.InsertedIDs),
		Skipped:    res.SkippedCount,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (f *fakeRunHistory) Recent(_ context.Context, sourceType string, n int) ([]runs.Record, error) {
	var out []runs.Record
	for i := len(f.records) - 1; i >= 0 && len(out) < n; i-- {
		if sourceType == "" || f.records[i].SourceType == sourceType {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

// fakeVideoFetcher is a test double for ingest.VideoFetcher.
type fakeVideoFetcher struct{}

func (fakeVideoFetcher) Transcript(_ context.Context, _ string) (string, error) {
	return "a transcript", nil
}

func (fakeVideoFetcher) Title(_ context.Context, _ string) (string, error) {
	return "a title", nil
}

// newTestServer builds a *Server with fake dependencies and an isolated
// Prometheus registry. Individual tests overwrite fields as needed.
func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		cfg: &Config{
			UploadDir: "/tmp",
		},
		deps: &Deps{
			Ingestor:  &fakeIngestor{},
			Retriever: &fakeServerRetriever{res: &rag.Result{}},
			Generator: &fakeGenerator{},
			Runs:      &fakeRunHistory{},
			YouTube:   fakeVideoFetcher{},
		},
		log:     slog.Default(),
		metrics: newServerMetrics(reg),
	}
}
