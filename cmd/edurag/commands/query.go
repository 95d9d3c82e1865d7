package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/rag"
)

// printHits writes retrieval hits in a compact human-readable listing.
func printHits(hits []rag.Hit) {
	if len(hits) == 0 {
		fmt.Println("no results")
		return
	}
	for i, h := range hits {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, h.Score, h.Metadata.Title, h.Metadata.SourceType)
		if h.MatchedKeyword != "" {
			fmt.Printf("    keyword: %s\n", h.MatchedKeyword)
		}
		fmt.Printf("    %s\n", h.ID)
		fmt.Printf("    %s\n", snippet(h.Content, 160))
	}
}

// snippet truncates content to at most n characters for terminal display.
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// NewQueryCmd constructs the `edurag query` command, which runs a single
// semantic search against the vector store and prints the hits.
func NewQueryCmd() *cobra.Command {
	var topK int
	var filterFlags []string

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the curriculum vector store",
		Long: `Run a semantic search against the indexed content and print the matching
chunks, best first.

Filters narrow the search by metadata; repeat --filter to combine values.

Examples:
  edurag query "introducing fractions to third graders"
  edurag query --top-k 10 --filter source_type=youtube "photosynthesis"
  edurag query --filter source_type=grant_opportunity "after-school programs"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			filters, err := parseFilterFlags(filterFlags)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer store.Close()

			retriever, err := buildRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			res, err := retriever.Retrieve(ctx, args[0], topK, filters...)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			printHits(res.Hits)
			fmt.Printf("\n%d hits in %s\n", len(res.Hits), res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum number of results")
	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "Metadata filter as key=value (repeatable)")

	return cmd
}
