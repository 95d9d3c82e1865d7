// Package grantsgov is a client for the Grants.gov public API. It uses the
// unauthenticated v1 search2 and fetchOpportunity endpoints, which cover
// everything the grant import pipeline needs.
package grantsgov

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Grants.gov API root.
const DefaultBaseURL = "https://api.grants.gov/v1/api"

// Opportunity is one grant opportunity from a search response.
type Opportunity struct {
	// ID is the Grants.gov opportunity ID used by fetchOpportunity.
	ID json.Number `json:"id"`

	// Number is the human-facing opportunity number (e.g. "ED-GRANTS-2026-01").
	Number string `json:"number"`

	// Title is the opportunity title.
	Title string `json:"title"`

	// Agency is the posting agency name.
	Agency string `json:"agencyName"`

	// OpenDate and CloseDate are the posting window, as returned by the API.
	OpenDate  string `json:"openDate"`
	CloseDate string `json:"closeDate"`
}

// Client talks to the Grants.gov API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client against DefaultBaseURL. baseURL overrides it
// when non-empty, mainly for tests.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchPosted returns currently posted opportunities, optionally matching a
// keyword. rows bounds the result count (defaults to 50).
func (c *Client) SearchPosted(ctx context.Context, keyword string, rows int) ([]Opportunity, error) {
	if rows <= 0 {
		rows = 50
	}
	payload := map[string]any{
		"oppStatus": "posted",
		"rows":      rows,
	}
	if keyword != "" {
		payload["keyword"] = keyword
	}

	var result struct {
		Opps []Opportunity `json:"opps"`
	}
	if err := c.post(ctx, "/search2", payload, &result); err != nil {
		return nil, err
	}
	return result.Opps, nil
}

// FetchOpportunity retrieves the full detail record for one opportunity.
// The response shape varies by opportunity type, so it is returned as a raw
// map for the caller to flatten.
func (c *Client) FetchOpportunity(ctx context.Context, opportunityID string) (map[string]any, error) {
	payload := map[string]any{"opportunityId": opportunityID}

	var result map[string]any
	if err := c.post(ctx, "/fetchOpportunity", payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// post sends a JSON POST (the Grants.gov API uses POST even for searches)
// and decodes the response into out.
func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("grantsgov: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("grantsgov: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("grantsgov: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("grantsgov: reading %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grantsgov: %s failed: status %d: %s", endpoint, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("grantsgov: parsing %s response: %w", endpoint, err)
	}
	return nil
}
