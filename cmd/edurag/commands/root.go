// Package commands defines all Cobra CLI commands for the edurag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/edurag-go/internal/audit"
	"github.com/54b3r/edurag-go/internal/config"
	"github.com/54b3r/edurag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "edurag",
		Short: "EduRAG — curriculum knowledge base with deduplicating ingestion",
		Long: `EduRAG indexes educational content — YouTube transcripts, Boclips videos,
uploaded documents, and grant opportunities — into a Qdrant vector store,
deduplicating near-identical chunks at ingest time, and answers questions
grounded in the indexed material.

Model and embedding providers are selected via the MODEL_PROVIDER and
EMBEDDING_PROVIDER environment variables or a YAML config file
(~/.edurag/config.yaml).
See 'edurag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.edurag/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewQueryCmd(),
		NewRecommendCmd(),
		NewAskCmd(),
		NewRunsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
