package budget

import (
	"strings"
	"testing"

	"github.com/54b3r/edurag-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

// budgetHit builds a hit whose rendered cost is perHitOverheadTokens plus
// contentTokens (title left empty).
func budgetHit(contentTokens int) rag.Hit {
	return rag.Hit{
		Document: rag.Document{
			Content: strings.Repeat("x", contentTokens*charsPerToken),
		},
	}
}

func Test_EstimateHits(t *testing.T) {
	t.Parallel()
	hits := []rag.Hit{budgetHit(10), budgetHit(20)}
	// Each hit: 12 overhead + content. Total: (12+10) + (12+20) = 54.
	if got := EstimateHits(hits); got != 54 {
		t.Errorf("EstimateHits = %d, want 54", got)
	}
}

func Test_TrimHits_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	hits := []rag.Hit{budgetHit(10), budgetHit(10)}
	got := TrimHits(hits, 100, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 hits, got %d", len(got))
	}
}

func Test_TrimHits_DropsLeastRelevantFirst(t *testing.T) {
	t.Parallel()
	hits := []rag.Hit{budgetHit(100), budgetHit(100), budgetHit(100)}
	// Each hit costs 112 tokens. Budget of 250 after reserve fits two.
	got := TrimHits(hits, 50, 300)
	if len(got) != 2 {
		t.Fatalf("want 2 hits, got %d", len(got))
	}
	// The survivors are the first (best-ranked) hits.
	if got[0].Content != hits[0].Content || got[1].Content != hits[1].Content {
		t.Error("trim should drop from the end of the slice")
	}
}

func Test_TrimHits_AllOverBudget(t *testing.T) {
	t.Parallel()
	hits := []rag.Hit{budgetHit(1000)}
	got := TrimHits(hits, 0, 100)
	if len(got) != 0 {
		t.Errorf("want no hits, got %d", len(got))
	}
}
