// Package youtube fetches video transcripts and titles for ingestion.
// Transcripts come from the public timedtext endpoint; titles are scraped
// from the watch page since the Data API needs a key for a single field.
package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// videoIDPattern matches an 11-character YouTube video ID token.
var videoIDPattern = regexp.MustCompile(`[A-Za-z0-9_-]{11}`)

var (
	shortPathPattern = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`)
	embedPathPattern = regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`)
	titlePattern     = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
)

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL.
// Supported shapes, tried in order: watch?v= query parameter, youtu.be short
// links, /embed/ paths, and finally any 11-character token in the path.
func ExtractVideoID(videoURL string) (string, error) {
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("youtube: parsing url %q: %w", videoURL, err)
	}

	if v := parsed.Query().Get("v"); len(v) == 11 {
		return v, nil
	}
	// The short-link host lands in parsed.Host, so match against the full
	// input for youtu.be links.
	if m := shortPathPattern.FindStringSubmatch(videoURL); m != nil {
		return m[1], nil
	}
	if m := embedPathPattern.FindStringSubmatch(parsed.Path); m != nil {
		return m[1], nil
	}
	if m := videoIDPattern.FindString(parsed.Path); m != "" {
		return m, nil
	}

	return "", fmt.Errorf("youtube: no video ID found in %q", videoURL)
}

// Client fetches transcripts and titles. The zero value is not usable; call
// NewClient.
type Client struct {
	// httpClient is used for all requests.
	httpClient *http.Client

	// watchBaseURL is the watch-page base, overridable in tests.
	watchBaseURL string

	// timedtextBaseURL is the transcript endpoint base, overridable in tests.
	timedtextBaseURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURLs points the client at alternate watch and timedtext endpoints.
func WithBaseURLs(watch, timedtext string) Option {
	return func(cl *Client) {
		cl.watchBaseURL = watch
		cl.timedtextBaseURL = timedtext
	}
}

// NewClient constructs a Client with a 30s request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		watchBaseURL:     "https://www.youtube.com/watch",
		timedtextBaseURL: "https://video.google.com/timedtext",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// timedtextDoc mirrors the timedtext XML response.
type timedtextDoc struct {
	Texts []struct {
		Content string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript fetches the English transcript for a video ID. A missing or
// disabled transcript returns ("", nil): absence is an expected condition,
// not an error.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	u := fmt.Sprintf("%s?lang=en&v=%s", c.timedtextBaseURL, url.QueryEscape(videoID))
	body, status, err := c.get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("youtube: fetching transcript for %s: %w", videoID, err)
	}
	// The endpoint answers 200 with an empty body when no transcript exists
	// and 404 for unavailable videos.
	if status == http.StatusNotFound || len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("youtube: transcript request for %s returned status %d", videoID, status)
	}

	var doc timedtextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("youtube: parsing transcript for %s: %w", videoID, err)
	}
	if len(doc.Texts) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		if s := strings.TrimSpace(html.UnescapeString(t.Content)); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Title scrapes the video title from the watch page, stripping the trailing
// " - YouTube" suffix. A title that cannot be parsed returns ("", nil) so a
// missing title never blocks ingestion.
func (c *Client) Title(ctx context.Context, videoID string) (string, error) {
	u := fmt.Sprintf("%s?v=%s", c.watchBaseURL, url.QueryEscape(videoID))
	body, status, err := c.get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("youtube: fetching title for %s: %w", videoID, err)
	}
	if status != http.StatusOK {
		return "", nil
	}

	m := titlePattern.FindSubmatch(body)
	if m == nil {
		return "", nil
	}
	title := html.UnescapeString(string(m[1]))
	title = strings.TrimSpace(strings.ReplaceAll(title, " - YouTube", ""))
	return title, nil
}

// get performs a GET and returns the body and status code. Non-2xx statuses
// are returned to the caller for per-endpoint interpretation.
func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	return body, resp.StatusCode, nil
}
