package ingest

import (
	"context"
	"fmt"

	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/sources/boclips"
)

// BoclipsAPI is the slice of the Boclips client the adapter needs.
type BoclipsAPI interface {
	VideoMetadata(ctx context.Context, videoID string) (*boclips.Metadata, error)
	Transcript(ctx context.Context, videoID string, meta *boclips.Metadata) (string, error)
}

// BoclipsAdapter ingests a Boclips video transcript. Metadata lookups that
// come back 403/404 are tolerated — the transcript endpoint is still tried —
// because licensing hides metadata for some watchable videos.
type BoclipsAdapter struct {
	client     BoclipsAPI
	orgID      string
	orgAppName string
}

// NewBoclipsAdapter builds an adapter for one Boclips ingestion run.
func NewBoclipsAdapter(client BoclipsAPI, orgID, orgAppName string) *BoclipsAdapter {
	return &BoclipsAdapter{client: client, orgID: orgID, orgAppName: orgAppName}
}

func (a *BoclipsAdapter) SourceType() string { return rag.SourceBoclips }

// Resolve normalizes a URL or bare reference to the Boclips video ID.
func (a *BoclipsAdapter) Resolve(ref string) (string, error) {
	id := boclips.ExtractID(ref)
	if id == "" {
		return "", fmt.Errorf("empty boclips reference %q", ref)
	}
	return id, nil
}

// Fetch retrieves metadata (best effort) and the transcript. No transcript
// means no content.
func (a *BoclipsAdapter) Fetch(ctx context.Context, id string) (*Content, error) {
	meta, err := a.client.VideoMetadata(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}

	transcript, err := a.client.Transcript(ctx, id, meta)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}
	if transcript == "" {
		return nil, nil
	}

	var title string
	if meta != nil {
		title = meta.Title
	}
	return &Content{Text: transcript, Title: title}, nil
}

func (a *BoclipsAdapter) IDPrefix(id string) string {
	return "boclips_" + id + "_chunk_"
}

func (a *BoclipsAdapter) Metadata(id string, content *Content) rag.Metadata {
	return rag.Metadata{
		Title:      content.Title,
		SourceType: rag.SourceBoclips,
		SourceRef:  "boclips:" + id,
		EntityID:   id,
		OrgID:      a.orgID,
		Extra: map[string]string{
			"org_app_name": a.orgAppName,
		},
	}
}

func (a *BoclipsAdapter) Cleanup() error { return nil }
