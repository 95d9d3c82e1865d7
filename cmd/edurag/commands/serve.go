package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/answer"
	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/provider"
	"github.com/54b3r/edurag-go/internal/server"
	"github.com/54b3r/edurag-go/internal/sources/boclips"
	"github.com/54b3r/edurag-go/internal/sources/youtube"
	"github.com/54b3r/edurag-go/internal/tracing"
)

// NewServeCmd constructs the `edurag serve` command, which starts the HTTP
// API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the EduRAG HTTP API server",
		Long: `Start the EduRAG HTTP server on localhost.

The server exposes ingestion, retrieval, recommendation, and grounded
question-answering endpoints. Set EDURAG_API_KEY to require bearer token
authentication on all /api/ routes.

Examples:
  edurag serve
  edurag serve --port 9090
  EMBEDDING_PROVIDER=openai edurag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("embedding_provider", os.Getenv("EMBEDDING_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			ingestor, err := buildIngestor(emb, store)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			topK := getEnvInt("EDURAG_TOP_K", 5)
			retriever, err := buildRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// The answer endpoint needs a chat model. A missing model config
			// disables /api/ask but leaves ingestion and retrieval up.
			var generator *answer.Generator
			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				log.Warn("serve: chat model unavailable, /api/ask disabled", slog.Any("error", err))
			} else {
				generator, err = answer.NewGenerator(chatModel, retriever, topK)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
			}

			runStore := openRunStore(log)
			if runStore != nil {
				defer runStore.Close()
			}

			youtubeClient := youtube.NewClient()

			// Boclips ingestion is only offered when credentials are present.
			var boclipsClient *boclips.Client
			if os.Getenv("BOCLIPS_CLIENT_ID") != "" && os.Getenv("BOCLIPS_CLIENT_SECRET") != "" {
				boclipsClient = boclips.NewClient(boclips.Config{
					ClientID:     os.Getenv("BOCLIPS_CLIENT_ID"),
					ClientSecret: os.Getenv("BOCLIPS_CLIENT_SECRET"),
					BaseURL:      os.Getenv("BOCLIPS_BASE_URL"),
				})
			} else {
				log.Info("serve: boclips credentials not set, /api/ingest/boclips disabled")
			}

			orgID, orgAppName := orgIdentity()

			deps := &server.Deps{
				Ingestor:  ingestor,
				Retriever: retriever,
				Runs:      runStore,
				YouTube:   youtubeClient,
			}
			if generator != nil {
				deps.Generator = generator
			}
			if boclipsClient != nil {
				deps.Boclips = boclipsClient
			}

			srv, err := server.New(deps, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					server.NewEmbedderPinger(emb, "embedder"),
					server.NewQdrantPinger(store.Client()),
				},
				APIKey:     os.Getenv("EDURAG_API_KEY"),
				OrgID:      orgID,
				OrgAppName: orgAppName,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
