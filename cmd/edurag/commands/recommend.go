package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/recommend"
)

// NewRecommendCmd constructs the `edurag recommend` command: keyword fan-out
// retrieval followed by per-entity aggregation of the merged hits.
func NewRecommendCmd() *cobra.Command {
	var topK int
	var mode string
	var filterFlags []string

	cmd := &cobra.Command{
		Use:   "recommend [keyword...]",
		Short: "Recommend content for a set of curriculum keywords",
		Long: `Run one semantic search per keyword and aggregate the merged results.

Modes:
  merged    one entry per entity, its best score across all keywords (default)
  distinct  one entry per entity, first keyword wins
  grouped   entities with all their matching chunks
  flat      every hit from every keyword, unaggregated

Examples:
  edurag recommend fractions "number line"
  edurag recommend --mode grouped photosynthesis "water cycle"
  edurag recommend --filter source_type=boclips --top-k 10 geometry`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			switch mode {
			case "flat", "distinct", "grouped", "merged":
			default:
				return fmt.Errorf("recommend: mode must be one of: flat, distinct, grouped, merged")
			}

			filters, err := parseFilterFlags(filterFlags)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			defer store.Close()

			retriever, err := buildRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}

			res, err := retriever.RetrieveKeywords(ctx, args, topK, filters...)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}

			switch mode {
			case "flat":
				printHits(recommend.Flat(res.Hits))
			case "distinct":
				printHits(recommend.DistinctByEntity(res.Hits))
			case "merged":
				printHits(recommend.MergeKeywords(res.Hits))
			case "grouped":
				groups := recommend.GroupByEntity(res.Hits)
				if len(groups) == 0 {
					fmt.Println("no results")
				}
				for _, g := range groups {
					fmt.Printf("%s (%s) — %d chunks\n", g.Title, g.EntityID, len(g.Chunks))
					for _, h := range g.Chunks {
						fmt.Printf("  [%.3f] %s\n", h.Score, snippet(h.Content, 120))
					}
				}
			}

			fmt.Printf("\n%d raw hits in %s\n", len(res.Hits), res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum number of results per keyword")
	cmd.Flags().StringVarP(&mode, "mode", "m", "merged", "Aggregation mode: flat, distinct, grouped, merged")
	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "Metadata filter as key=value (repeatable)")

	return cmd
}
