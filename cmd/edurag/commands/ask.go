package commands

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/answer"
	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/provider"
	"github.com/54b3r/edurag-go/internal/tracing"
)

// NewAskCmd constructs the `edurag ask` command, which answers a question
// grounded in the indexed curriculum content.
func NewAskCmd() *cobra.Command {
	var topK int
	var filterFlags []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from the indexed content",
		Long: `Retrieve the most relevant indexed chunks for the question and generate an
answer grounded in them. The model refuses to answer from outside the
retrieved context.

Examples:
  edurag ask "how are fractions introduced in the indexed unit plans?"
  edurag ask --filter source_type=grant_opportunity "which grants fund STEM kits?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			filters, err := parseFilterFlags(filterFlags)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			if handler, flush, ok := tracing.Setup(); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			retriever, err := buildRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			gen, err := answer.NewGenerator(chatModel, retriever, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			ans, err := gen.Generate(ctx, args[0], filters...)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(ans.Text)
			if len(ans.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range ans.Sources {
					fmt.Printf("  [%.3f] %s (%s)\n", src.Score, src.Title, src.SourceType)
				}
			}
			fmt.Printf("\nanswered in %s\n", ans.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Number of chunks to ground the answer on")
	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "Metadata filter as key=value (repeatable)")

	return cmd
}
