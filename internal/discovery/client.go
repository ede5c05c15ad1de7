// Package discovery wraps the service repository's vector-store search
// API. It is the one collaborator the retrieval fan-out talks to.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
)

// ErrUnavailable indicates the repository service could not be reached
// or answered with a non-success status. It is distinct from a search
// that succeeds with zero results.
var ErrUnavailable = errors.New("service repository unavailable")

// Result is one candidate service returned by the repository.
type Result struct {
	// Content is the service description document.
	Content string `json:"content"`
	// Source identifies the document the content came from.
	Source string `json:"source"`
}

// Client talks to the repository service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientConfig contains configuration for the discovery client.
type ClientConfig struct {
	// BaseURL is the repository service root (e.g. "http://localhost:8001").
	BaseURL string
	// Timeout bounds each search call. Zero means 30s.
	Timeout time.Duration
}

// NewClient creates a discovery client for the given repository service.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// searchRequest is the repository's search payload.
type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// searchResponse is the repository's search result envelope.
type searchResponse struct {
	Results []struct {
		Content  string `json:"content"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	} `json:"results"`
}

// Search queries the repository for the top-k candidate services
// matching the query. Zero results is a valid outcome, not an error.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	url := c.baseURL + "/api/v1/vector-store/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{Content: r.Content, Source: r.Metadata.Source})
	}

	return results, nil
}

// Ping checks the repository's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// ServiceNameFromSource derives a short service name from a result's
// source path: the last path segment with its .md suffix stripped.
// Results without a source get a positional fallback name.
func ServiceNameFromSource(source string, index int) string {
	if source == "" {
		return fmt.Sprintf("unknown-%d", index)
	}
	name := path.Base(source)
	return strings.TrimSuffix(name, ".md")
}
