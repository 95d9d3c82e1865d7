package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/54b3r/edurag-go/internal/rag"
)

// hashEmbedder is a deterministic embedder: every distinct text gets its own
// orthogonal one-hot vector, so identical texts score 1.0 against each other
// and distinct texts score 0.0.
type hashEmbedder struct {
	mu  sync.Mutex
	idx map[string]int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{idx: make(map[string]int)}
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		i, ok := e.idx[t]
		if !ok {
			i = len(e.idx)
			e.idx[t] = i
		}
		vec := make([]float32, 256)
		vec[i%256] = 1
		out = append(out, vec)
	}
	return out, nil
}

// fakeAdapter is a minimal in-test adapter with controllable behavior.
type fakeAdapter struct {
	text       string
	title      string
	noContent  bool
	resolveErr error
	fetchErr   error
	cleanups   int
}

func (a *fakeAdapter) SourceType() string { return "test" }

func (a *fakeAdapter) Resolve(ref string) (string, error) {
	if a.resolveErr != nil {
		return "", a.resolveErr
	}
	return "src-" + ref, nil
}

func (a *fakeAdapter) Fetch(context.Context, string) (*Content, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	if a.noContent {
		return nil, nil
	}
	return &Content{Text: a.text, Title: a.title}, nil
}

func (a *fakeAdapter) IDPrefix(id string) string { return id + "_chunk_" }

func (a *fakeAdapter) Metadata(id string, content *Content) rag.Metadata {
	return rag.Metadata{Title: content.Title, SourceType: "test", EntityID: id}
}

func (a *fakeAdapter) Cleanup() error {
	a.cleanups++
	return nil
}

func newTestIngestor(t *testing.T, store rag.VectorStore) *Ingestor {
	t.Helper()
	ing, err := NewIngestor(newHashEmbedder(), store, &Config{ChunkSize: 50, ChunkOverlap: 0})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	return ing
}

// sentences builds text that chunks into n distinct pieces under a 50-char
// chunk size.
func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("This is unique sentence number ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(". ")
	}
	return b.String()
}

func TestRunInsertsAllChunksFirstTime(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	ing := newTestIngestor(t, store)
	adapter := &fakeAdapter{text: sentences(3), title: "Lesson"}

	res := ing.Run(context.Background(), adapter, "ref1")
	if res.Failed() {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.TotalChunks == 0 {
		t.Fatal("no chunks produced")
	}
	if len(res.InsertedIDs) != res.TotalChunks {
		t.Errorf("inserted %d of %d chunks", len(res.InsertedIDs), res.TotalChunks)
	}
	if res.SkippedCount != 0 {
		t.Errorf("SkippedCount = %d, want 0", res.SkippedCount)
	}
	for i, id := range res.InsertedIDs {
		want := "src-ref1_chunk_" + strconv.Itoa(i)
		if id != want {
			t.Errorf("InsertedIDs[%d] = %s, want %s", i, id, want)
		}
	}
	if res.Title != "Lesson" {
		t.Errorf("Title = %q", res.Title)
	}
	if adapter.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", adapter.cleanups)
	}
}

func TestRunSecondIngestionSkipsDuplicates(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	ing := newTestIngestor(t, store)

	first := ing.Run(context.Background(), &fakeAdapter{text: sentences(3)}, "ref1")
	if first.Failed() {
		t.Fatalf("first run failed: %s", first.Error)
	}

	second := ing.Run(context.Background(), &fakeAdapter{text: sentences(3)}, "ref1")
	if second.Failed() {
		t.Fatalf("second run failed: %s", second.Error)
	}
	if len(second.InsertedIDs) != 0 {
		t.Errorf("second run inserted %v, want none", second.InsertedIDs)
	}
	if second.SkippedCount != second.TotalChunks {
		t.Errorf("SkippedCount = %d, want %d", second.SkippedCount, second.TotalChunks)
	}
	if store.Len() != first.TotalChunks {
		t.Errorf("store has %d docs, want %d", store.Len(), first.TotalChunks)
	}
}

func TestRunAllocatesMonotonicIDs(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	ing := newTestIngestor(t, store)
	ctx := context.Background()

	first := ing.Run(ctx, &fakeAdapter{text: sentences(2)}, "ref1")
	second := ing.Run(ctx, &fakeAdapter{text: sentences(2) + sentences(4)[len(sentences(2)):]}, "ref1")

	var all []string
	all = append(all, first.InsertedIDs...)
	all = append(all, second.InsertedIDs...)

	prev := -1
	seen := make(map[string]bool)
	for _, id := range all {
		if seen[id] {
			t.Errorf("duplicate chunk ID %s", id)
		}
		seen[id] = true
		n, err := strconv.Atoi(strings.TrimPrefix(id, "src-ref1_chunk_"))
		if err != nil {
			t.Fatalf("unparseable suffix in %s: %v", id, err)
		}
		if n <= prev {
			t.Errorf("suffixes not strictly increasing: %d after %d", n, prev)
		}
		prev = n
	}
}

// insertFailStore fails the nth insert call, then recovers.
type insertFailStore struct {
	*rag.MemoryStore
	failOn int
	calls  int
}

func (s *insertFailStore) Insert(ctx context.Context, docs []rag.Document, vecs [][]float32) error {
	s.calls++
	if s.calls == s.failOn {
		return errors.New("transient backend failure")
	}
	return s.MemoryStore.Insert(ctx, docs, vecs)
}

func TestRunConsumesSequenceOnFailedInsert(t *testing.T) {
	t.Parallel()

	store := &insertFailStore{MemoryStore: rag.NewMemoryStore(), failOn: 2}
	ing := newTestIngestor(t, store)

	res := ing.Run(context.Background(), &fakeAdapter{text: sentences(3)}, "ref1")
	if res.Failed() {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.TotalChunks != 3 {
		t.Fatalf("TotalChunks = %d, want 3 (adjust sentence sizing)", res.TotalChunks)
	}
	// Chunk 1's insert failed but its sequence number was consumed.
	want := []string{"src-ref1_chunk_0", "src-ref1_chunk_2"}
	if len(res.InsertedIDs) != 2 || res.InsertedIDs[0] != want[0] || res.InsertedIDs[1] != want[1] {
		t.Errorf("InsertedIDs = %v, want %v", res.InsertedIDs, want)
	}
	if res.SkippedCount != 0 {
		t.Errorf("failed insert counted as duplicate skip")
	}
}

func TestRunNoContent(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	ing := newTestIngestor(t, store)
	adapter := &fakeAdapter{noContent: true}

	res := ing.Run(context.Background(), adapter, "ref1")
	if res.Failed() {
		t.Fatalf("no-content run must not be an error, got %s", res.Error)
	}
	if res.TotalChunks != 0 || len(res.InsertedIDs) != 0 {
		t.Errorf("no-content run touched chunks: %+v", res)
	}
	if res.Message == "" {
		t.Error("no-content run must carry a message")
	}
	if store.Len() != 0 {
		t.Errorf("no-content run wrote %d docs to the index", store.Len())
	}
	if adapter.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", adapter.cleanups)
	}
}

func TestRunResolveFailure(t *testing.T) {
	t.Parallel()

	ing := newTestIngestor(t, rag.NewMemoryStore())
	adapter := &fakeAdapter{resolveErr: errors.New("not a valid reference")}

	res := ing.Run(context.Background(), adapter, "garbage")
	if !res.Failed() {
		t.Fatal("resolve failure must set Error")
	}
	if res.SourceID != "" {
		t.Errorf("SourceID = %q, want empty", res.SourceID)
	}
	if adapter.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", adapter.cleanups)
	}
}

func TestRunFetchFailure(t *testing.T) {
	t.Parallel()

	ing := newTestIngestor(t, rag.NewMemoryStore())
	res := ing.Run(context.Background(), &fakeAdapter{fetchErr: errors.New("upstream 500")}, "ref1")
	if !res.Failed() {
		t.Fatal("fetch failure must set Error")
	}
	if !strings.Contains(res.Error, "upstream 500") {
		t.Errorf("Error = %q, want diagnostic to mention the cause", res.Error)
	}
	if res.Elapsed <= 0 {
		t.Error("failed run must still record elapsed time")
	}
}

func TestRunLongTextDefaultConfig(t *testing.T) {
	t.Parallel()

	store := rag.NewMemoryStore()
	ing, err := NewIngestor(newHashEmbedder(), store, nil)
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 150))
	res := ing.Run(context.Background(), &fakeAdapter{text: text}, "ref1")
	if res.Failed() {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.TotalChunks != 2 {
		t.Fatalf("TotalChunks = %d, want 2", res.TotalChunks)
	}
	want := []string{"src-ref1_chunk_0", "src-ref1_chunk_1"}
	if len(res.InsertedIDs) != 2 || res.InsertedIDs[0] != want[0] || res.InsertedIDs[1] != want[1] {
		t.Errorf("InsertedIDs = %v, want %v", res.InsertedIDs, want)
	}
}
