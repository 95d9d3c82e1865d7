package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/ingest"
	"github.com/54b3r/edurag-go/internal/logging"
	"github.com/54b3r/edurag-go/internal/runs"
	"github.com/54b3r/edurag-go/internal/sources/boclips"
	"github.com/54b3r/edurag-go/internal/sources/grantsgov"
	"github.com/54b3r/edurag-go/internal/sources/youtube"
)

// ingestEnv bundles the pipeline pieces every ingest subcommand needs.
type ingestEnv struct {
	ingestor *ingest.Ingestor
	runStore runs.Store
	log      *slog.Logger
	close    func()
}

// setupIngest wires the embedder, vector store, pipeline, and run history.
// The caller must invoke close when done.
func setupIngest(ctx context.Context, log *slog.Logger) (*ingestEnv, error) {
	emb, err := buildEmbedder(log)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, log)
	if err != nil {
		return nil, err
	}
	ing, err := buildIngestor(emb, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	runStore := openRunStore(log)

	return &ingestEnv{
		ingestor: ing,
		runStore: runStore,
		log:      log,
		close: func() {
			if runStore != nil {
				_ = runStore.Close()
			}
			_ = store.Close()
		},
	}, nil
}

// run executes one ingestion, records it, and prints the outcome. It returns
// an error only for run-fatal failures so bulk commands can keep going on
// per-chunk trouble.
func (e *ingestEnv) run(ctx context.Context, a ingest.Adapter, ref string) error {
	res := e.ingestor.Run(ctx, a, ref)
	recordRun(ctx, e.runStore, res, e.log)
	fmt.Println(res.Summary())
	if res.Failed() {
		return fmt.Errorf("ingest: %s", res.Error)
	}
	return nil
}

// NewIngestCmd constructs the `edurag ingest` command tree. Each subcommand
// feeds one content source through the shared deduplicating pipeline.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest content into the curriculum vector store",
		Long: `Index educational content into the Qdrant vector store.

Every source runs through the same pipeline: normalize, chunk, embed, and
insert — skipping chunks whose nearest stored neighbor scores at or above
the similarity threshold.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: edurag-chunks)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure, gemini
  INGEST_*             Chunking and dedup overrides (see README)`,
	}

	cmd.AddCommand(
		newIngestYouTubeCmd(),
		newIngestBoclipsCmd(),
		newIngestDocumentCmd(),
		newIngestGrantsCmd(),
	)
	return cmd
}

func newIngestYouTubeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "youtube [url...]",
		Short: "Ingest YouTube video transcripts",
		Long: `Fetch the transcript of each YouTube video and index it.

Examples:
  edurag ingest youtube https://www.youtube.com/watch?v=dQw4w9WgXcQ
  edurag ingest youtube https://youtu.be/abc123def45 https://youtu.be/xyz987uvw65`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			env, err := setupIngest(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest youtube: %w", err)
			}
			defer env.close()

			client := youtube.NewClient()
			orgID, orgAppName := orgIdentity()
			for _, url := range args {
				a := ingest.NewYouTubeAdapter(client, orgID, orgAppName)
				if err := env.run(ctx, a, url); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newIngestBoclipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boclips [video-id...]",
		Short: "Ingest Boclips video transcripts",
		Long: `Fetch the transcript of each Boclips video and index it.

Credentials come from BOCLIPS_CLIENT_ID and BOCLIPS_CLIENT_SECRET.

Examples:
  edurag ingest boclips 5c54d6a3d8eafeecae1fe4e1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			env, err := setupIngest(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest boclips: %w", err)
			}
			defer env.close()

			client := boclips.NewClient(boclips.Config{
				ClientID:     os.Getenv("BOCLIPS_CLIENT_ID"),
				ClientSecret: os.Getenv("BOCLIPS_CLIENT_SECRET"),
				BaseURL:      os.Getenv("BOCLIPS_BASE_URL"),
			})
			orgID, orgAppName := orgIdentity()
			for _, id := range args {
				a := ingest.NewBoclipsAdapter(client, orgID, orgAppName)
				if err := env.run(ctx, a, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newIngestDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "document [file...]",
		Short: "Ingest local documents (PDF, DOCX, or plain text)",
		Long: `Extract the text of each file and index it. The extractor dispatches on
the file extension: .pdf, .docx, and anything else is read as plain text.

Examples:
  edurag ingest document ./curriculum/unit-3-fractions.pdf
  edurag ingest document notes.txt syllabus.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			env, err := setupIngest(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest document: %w", err)
			}
			defer env.close()

			orgID, orgAppName := orgIdentity()
			for _, path := range args {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("ingest document: %w", err)
				}
				name := filepath.Base(path)
				a := ingest.NewDocumentAdapter(path, name, orgID, orgAppName)
				if err := env.run(ctx, a, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newIngestGrantsCmd() *cobra.Command {
	var file string
	var search string
	var rows int

	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Ingest grant opportunity records",
		Long: `Index structured grant opportunity records.

Records come from one of two places:
  --file    a JSON file holding an array of grant records
  --search  a Grants.gov keyword search for currently posted opportunities

Examples:
  edurag ingest grants --file ./grants.json
  edurag ingest grants --search "STEM education" --rows 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if (file == "") == (search == "") {
				return fmt.Errorf("ingest grants: exactly one of --file or --search is required")
			}

			var records []ingest.GrantRecord
			var err error
			if file != "" {
				records, err = grantRecordsFromFile(file)
			} else {
				records, err = grantRecordsFromSearch(ctx, search, rows, log)
			}
			if err != nil {
				return fmt.Errorf("ingest grants: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("no grant records to ingest")
				return nil
			}

			env, err := setupIngest(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest grants: %w", err)
			}
			defer env.close()

			for _, rec := range records {
				if rec.ID == "" {
					log.Warn("grants: skipping record without an id", slog.String("title", rec.Title))
					continue
				}
				if err := env.run(ctx, ingest.NewGrantAdapter(rec), rec.ID); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of grant records")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Grants.gov keyword to search for posted opportunities")
	cmd.Flags().IntVar(&rows, "rows", 50, "Maximum number of search results to ingest")

	return cmd
}

// grantRecordsFromFile loads a JSON array of grant records.
func grantRecordsFromFile(path string) ([]ingest.GrantRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []ingest.GrantRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// grantRecordsFromSearch queries Grants.gov for posted opportunities matching
// the keyword and converts them to grant records. The search listing carries
// only summary fields; the description falls back to the title so the chunk
// is never empty.
func grantRecordsFromSearch(ctx context.Context, keyword string, rows int, log *slog.Logger) ([]ingest.GrantRecord, error) {
	client := grantsgov.NewClient(os.Getenv("GRANTS_GOV_BASE_URL"))

	opps, err := client.SearchPosted(ctx, keyword, rows)
	if err != nil {
		return nil, err
	}
	log.Info("grants: search complete", slog.String("keyword", keyword), slog.Int("results", len(opps)))

	records := make([]ingest.GrantRecord, 0, len(opps))
	for _, opp := range opps {
		id := opp.Number
		if id == "" {
			id = opp.ID.String()
		}
		records = append(records, ingest.GrantRecord{
			ID:                  id,
			Title:               opp.Title,
			Description:         grantDescription(ctx, client, opp, log),
			FunderName:          opp.Agency,
			ApplicationDeadline: opp.CloseDate,
		})
	}
	return records, nil
}

// grantDescription tries to pull the synopsis out of the full opportunity
// detail record. The detail shape varies by opportunity type, so the lookup
// is best-effort and falls back to the title.
func grantDescription(ctx context.Context, client *grantsgov.Client, opp grantsgov.Opportunity, log *slog.Logger) string {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	detail, err := client.FetchOpportunity(fetchCtx, opp.ID.String())
	if err != nil {
		log.Warn("grants: detail fetch failed, using title as description",
			slog.String("opportunity", opp.Number), slog.Any("error", err))
		return opp.Title
	}
	if syn, ok := detail["synopsis"].(map[string]any); ok {
		if desc, ok := syn["synopsisDesc"].(string); ok && desc != "" {
			return desc
		}
	}
	return opp.Title
}
