// Package boclips is a minimal client for the Boclips video platform API:
// client-credentials auth, video metadata, and transcript retrieval.
//
// Boclips answers 403 or 404 for videos outside the licensed catalog; both
// are treated as "no content" rather than errors because a forbidden video
// is an expected condition for ingestion callers.
package boclips

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production Boclips API root.
const DefaultBaseURL = "https://api.boclips.com"

// ExtractID normalizes a Boclips video reference to a bare ID. Full URLs
// ("https://classroom.boclips.com/videos/shared/<id>?...") reduce to the last
// non-empty path segment; a bare ID passes through unchanged.
func ExtractID(videoRef string) string {
	parsed, err := url.Parse(videoRef)
	if err != nil {
		return videoRef
	}
	segments := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return videoRef
	}
	return segments[len(segments)-1]
}

// Metadata is the subset of the Boclips video record the pipeline consumes.
type Metadata struct {
	// ID is the Boclips video ID.
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// Description is the catalog description.
	Description string `json:"description"`

	// Links holds HAL-style links; the transcript link is used when present.
	Links struct {
		Transcript struct {
			Href string `json:"href"`
		} `json:"transcript"`
	} `json:"_links"`
}

// Config holds Boclips API credentials and connection settings.
type Config struct {
	// ClientID is the OAuth client ID (BOCLIPS_CLIENT_ID).
	ClientID string

	// ClientSecret is the OAuth client secret (BOCLIPS_CLIENT_SECRET).
	ClientSecret string

	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string

	// HTTPTimeout bounds each request. Defaults to 30s.
	HTTPTimeout time.Duration
}

// Client talks to the Boclips API. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a Client. Credentials are validated lazily on the
// first token request so a client can be built before config is complete.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// token obtains an access token via the client-credentials flow.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", fmt.Errorf("boclips: missing BOCLIPS_CLIENT_ID or BOCLIPS_CLIENT_SECRET")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("boclips: creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("boclips: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("boclips: reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("boclips: token request failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("boclips: parsing token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("boclips: token response had no access_token")
	}
	return payload.AccessToken, nil
}

// VideoMetadata fetches /v1/videos/{id}. A 403 or 404 returns (nil, nil);
// other non-200 statuses are errors.
func (c *Client) VideoMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	body, status, err := c.authedGet(ctx, c.cfg.BaseURL+"/v1/videos/"+url.PathEscape(videoID))
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("boclips: metadata request for %s failed: status %d", videoID, status)
	}

	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("boclips: parsing metadata for %s: %w", videoID, err)
	}
	return &meta, nil
}

// Transcript fetches the transcript text for a video, preferring the
// transcript link from its metadata and falling back to the conventional
// /v1/videos/{id}/transcript path. A 403/404 or empty body returns ("", nil).
func (c *Client) Transcript(ctx context.Context, videoID string, meta *Metadata) (string, error) {
	href := c.cfg.BaseURL + "/v1/videos/" + url.PathEscape(videoID) + "/transcript"
	if meta != nil && meta.Links.Transcript.Href != "" {
		href = meta.Links.Transcript.Href
	}

	body, status, err := c.authedGet(ctx, href)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("boclips: transcript request for %s failed: status %d", videoID, status)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", nil
	}
	// Some transcripts arrive as JSON segment lists rather than plain text.
	var segmented struct {
		Transcript []struct {
			Text string `json:"text"`
		} `json:"transcript"`
	}
	if err := json.Unmarshal(body, &segmented); err == nil && len(segmented.Transcript) > 0 {
		parts := make([]string, 0, len(segmented.Transcript))
		for _, seg := range segmented.Transcript {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), nil
	}
	return text, nil
}

// authedGet performs a bearer-authenticated GET, returning body and status.
func (c *Client) authedGet(ctx context.Context, u string) ([]byte, int, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("boclips: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("boclips: http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("boclips: reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}
