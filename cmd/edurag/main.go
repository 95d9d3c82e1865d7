// Command edurag is the entry point for the EduRAG curriculum knowledge
// base. It provides a CLI for ingestion, retrieval, and grounded question
// answering (via Cobra) and an optional HTTP server for API use.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/edurag-go/cmd/edurag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
