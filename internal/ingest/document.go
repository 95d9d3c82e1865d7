package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/sources/docfile"
)

// DocumentAdapter ingests an uploaded document file. The file at path is a
// temporary copy of the upload; Cleanup deletes it unconditionally — success
// or failure — so failed runs never leak uploads on disk.
type DocumentAdapter struct {
	// path is the on-disk location of the uploaded file.
	path string

	// originalName is the filename the user uploaded; it decides the format
	// and the chunk ID prefix.
	originalName string

	orgID      string
	orgAppName string
}

// NewDocumentAdapter builds an adapter for one document ingestion run.
func NewDocumentAdapter(path, originalName, orgID, orgAppName string) *DocumentAdapter {
	return &DocumentAdapter{
		path:         path,
		originalName: originalName,
		orgID:        orgID,
		orgAppName:   orgAppName,
	}
}

func (a *DocumentAdapter) SourceType() string { return rag.SourceDocument }

// Resolve validates the file extension and returns the filename-derived
// document ID. An unsupported extension is an input error: the run stops
// before the file is opened.
func (a *DocumentAdapter) Resolve(string) (string, error) {
	if !docfile.Supported(a.originalName) {
		return "", fmt.Errorf("%w: %q", docfile.ErrUnsupportedExtension, a.originalName)
	}
	return docfile.SafeName(a.originalName), nil
}

// Fetch extracts the document text. A file that parses but contains no text
// is an error, not a no-content condition: an unreadable upload is something
// the caller should hear about.
func (a *DocumentAdapter) Fetch(_ context.Context, _ string) (*Content, error) {
	text, err := docfile.Extract(a.path, a.originalName)
	if err != nil {
		return nil, err
	}
	return &Content{Text: text, Title: a.originalName}, nil
}

func (a *DocumentAdapter) IDPrefix(id string) string {
	return "doc_" + id + "_chunk_"
}

func (a *DocumentAdapter) Metadata(id string, content *Content) rag.Metadata {
	return rag.Metadata{
		Title:      a.originalName,
		SourceType: rag.SourceDocument,
		SourceRef:  a.originalName,
		EntityID:   id,
		OrgID:      a.orgID,
		Extra: map[string]string{
			"org_app_name":      a.orgAppName,
			"original_filename": a.originalName,
		},
	}
}

// Cleanup removes the temporary upload. A missing file is not an error.
func (a *DocumentAdapter) Cleanup() error {
	if a.path == "" {
		return nil
	}
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", a.path, err)
	}
	return nil
}
