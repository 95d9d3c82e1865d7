package ingest

import (
	"context"
	"fmt"

	"github.com/54b3r/edurag-go/internal/rag"
	"github.com/54b3r/edurag-go/internal/sources/youtube"
)

// VideoFetcher is the slice of the YouTube client the adapter needs.
type VideoFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
	Title(ctx context.Context, videoID string) (string, error)
}

// YouTubeAdapter ingests a YouTube video transcript. One adapter instance
// serves one run: it captures the source URL at Resolve time.
type YouTubeAdapter struct {
	client     VideoFetcher
	orgID      string
	orgAppName string

	videoURL string
}

// NewYouTubeAdapter builds an adapter for one video ingestion run. orgID and
// orgAppName are tenant tags stamped onto every chunk.
func NewYouTubeAdapter(client VideoFetcher, orgID, orgAppName string) *YouTubeAdapter {
	return &YouTubeAdapter{client: client, orgID: orgID, orgAppName: orgAppName}
}

func (a *YouTubeAdapter) SourceType() string { return rag.SourceYouTube }

// Resolve extracts the 11-character video ID from the URL.
func (a *YouTubeAdapter) Resolve(ref string) (string, error) {
	id, err := youtube.ExtractVideoID(ref)
	if err != nil {
		return "", err
	}
	a.videoURL = ref
	return id, nil
}

// Fetch retrieves the transcript and title. A video without a transcript
// yields (nil, nil); a failed title lookup is tolerated since the transcript
// is the content.
func (a *YouTubeAdapter) Fetch(ctx context.Context, id string) (*Content, error) {
	title, err := a.client.Title(ctx, id)
	if err != nil {
		title = ""
	}

	transcript, err := a.client.Transcript(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}
	if transcript == "" {
		return nil, nil
	}

	return &Content{Text: transcript, Title: title}, nil
}

func (a *YouTubeAdapter) IDPrefix(id string) string {
	return id + "_chunk_"
}

func (a *YouTubeAdapter) Metadata(id string, content *Content) rag.Metadata {
	return rag.Metadata{
		Title:      content.Title,
		SourceType: rag.SourceYouTube,
		SourceRef:  a.videoURL,
		EntityID:   id,
		OrgID:      a.orgID,
		Extra: map[string]string{
			"org_app_name": a.orgAppName,
		},
	}
}

func (a *YouTubeAdapter) Cleanup() error { return nil }
