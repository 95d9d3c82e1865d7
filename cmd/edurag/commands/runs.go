package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/logging"
)

// NewRunsCmd constructs the `edurag runs` command, which lists recent
// ingestion runs from the local history database.
func NewRunsCmd() *cobra.Command {
	var sourceType string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		Long: `List recent ingestion runs recorded in the local history database
(~/.edurag/runs.db, override with EDURAG_RUNS_DB).

Examples:
  edurag runs
  edurag runs --source-type youtube --limit 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			store := openRunStore(log)
			if store == nil {
				return fmt.Errorf("runs: history database is not available")
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), sourceType, limit)
			if err != nil {
				return fmt.Errorf("runs: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			for _, rec := range records {
				status := "ok"
				if rec.Failed() {
					status = "FAILED: " + rec.Error
				}
				fmt.Printf("%s  %-18s %-40s inserted=%d skipped=%d %s  %s\n",
					rec.CreatedAt.Format(time.DateTime),
					rec.SourceType,
					rec.SourceRef,
					rec.Inserted,
					rec.Skipped,
					rec.Elapsed.Round(time.Millisecond),
					status,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceType, "source-type", "s", "", "Only show runs for one source type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}
