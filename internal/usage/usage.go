// Package usage queries the speech provider's request log so a call's
// transcription traffic can be lined up with its audio.
package usage

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

const defaultBaseURL = "https://api.deepgram.com"

// Record is one provider-side request.
type Record struct {
	RequestID string    `json:"request_id"`
	Created   time.Time `json:"created"`
	Path      string    `json:"path"`
	Response  struct {
		Code int `json:"code"`
	} `json:"response"`
}

// Client talks to the Deepgram management API.
type Client struct {
	ProjectID string
	APIKey    string
	BaseURL   string
	HTTP      *http.Client
}

// NewClient creates a Client with a short request timeout.
func NewClient(projectID, apiKey string) *Client {
	return &Client{
		ProjectID: strings.TrimSpace(projectID),
		APIKey:    strings.TrimSpace(apiKey),
		BaseURL:   defaultBaseURL,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.ProjectID != "" && c.APIKey != ""
}

// FetchUsage lists requests between start and end. status filters by
// outcome ("succeeded", "failed") and may be empty. The raw body is returned
// alongside the decoded records so it can be saved verbatim. An unconfigured
// client returns nothing and makes no request.
func (c *Client) FetchUsage(ctx context.Context, start, end time.Time, status string) ([]Record, []byte, error) {
	if !c.Configured() {
		return nil, nil, nil
	}

	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	if status != "" {
		q.Set("status", status)
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/requests?%s", base, url.PathEscape(c.ProjectID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, body, fmt.Errorf("invalid API key (authentication failed)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, body, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Requests []Record `json:"requests"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, body, fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Requests, body, nil
}
